package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/cryptopulse/api/internal/models"
)

func TestBuyCreatesPositionAndDebitsBalance(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "buy@test.com")
	portfolio := env.createPortfolio(t, user.ID, 10000)

	result, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     0.1,
		Price:        floatPtr(50000),
	})
	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if !almostEqual(result.TotalAmount, 5000) {
		t.Errorf("TotalAmount = %f, want 5000", result.TotalAmount)
	}
	if !almostEqual(result.CurrentBalance, 5000) {
		t.Errorf("CurrentBalance = %f, want 5000", result.CurrentBalance)
	}

	pos, err := env.positions.GetPosition(portfolio.ID, "BTC")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !almostEqual(pos.Quantity, 0.1) {
		t.Errorf("Quantity = %f, want 0.1", pos.Quantity)
	}
	if !almostEqual(pos.AverageBuyPrice, 50000) {
		t.Errorf("AverageBuyPrice = %f, want 50000", pos.AverageBuyPrice)
	}
	if !almostEqual(pos.TotalInvested, 5000) {
		t.Errorf("TotalInvested = %f, want 5000", pos.TotalInvested)
	}
}

func TestBuyAveragesPriceAcrossPurchases(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "avg@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	for _, px := range []float64{100, 200} {
		_, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
			CryptoSymbol: "ETH",
			Quantity:     1,
			Price:        floatPtr(px),
		})
		if err != nil {
			t.Fatalf("Buy() a %f error = %v", px, err)
		}
	}

	pos, err := env.positions.GetPosition(portfolio.ID, "ETH")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !almostEqual(pos.AverageBuyPrice, 150) {
		t.Errorf("AverageBuyPrice = %f, want 150", pos.AverageBuyPrice)
	}
	if !almostEqual(pos.Quantity, 2) {
		t.Errorf("Quantity = %f, want 2", pos.Quantity)
	}
	if !almostEqual(pos.TotalInvested, 300) {
		t.Errorf("TotalInvested = %f, want 300", pos.TotalInvested)
	}
}

func TestBuySymbolCanonicalization(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "canon@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	for _, symbol := range []string{"btc", " BTC ", "Btc"} {
		_, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
			CryptoSymbol: symbol,
			Quantity:     1,
			Price:        floatPtr(100),
		})
		if err != nil {
			t.Fatalf("Buy(%q) error = %v", symbol, err)
		}
	}

	positions, err := env.positions.GetPositions(portfolio.ID)
	if err != nil {
		t.Fatalf("GetPositions() error = %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("posiciones = %d, want 1 (símbolos equivalentes no deben duplicar)", len(positions))
	}
	if !almostEqual(positions[0].Quantity, 3) {
		t.Errorf("Quantity = %f, want 3", positions[0].Quantity)
	}
}

func TestBuyValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "valid@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	tests := []struct {
		name    string
		req     *models.TradeRequest
		wantErr error
	}{
		{"CantidadCero", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 0, Price: floatPtr(100)}, ErrInvalidQuantity},
		{"CantidadNegativa", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: -1, Price: floatPtr(100)}, ErrInvalidQuantity},
		{"SimboloVacio", &models.TradeRequest{CryptoSymbol: "   ", Quantity: 1, Price: floatPtr(100)}, ErrInvalidQuantity},
		{"FeeNegativo", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 1, Price: floatPtr(100), FeePercent: -1}, ErrInvalidFee},
		{"PrecioManualCero", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 1, Price: floatPtr(0)}, ErrPriceUnavailable},
		{"SinPrecio", &models.TradeRequest{CryptoSymbol: "XXX", Quantity: 1}, ErrPriceUnavailable},
		{"SaldoInsuficiente", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 100, Price: floatPtr(100)}, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.executor.Buy(portfolio.ID, user.ID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Buy() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Ninguna operación rechazada debe haber tocado el portfolio
	refreshed, err := env.portfolios.GetPortfolio(portfolio.ID)
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if !almostEqual(refreshed.CurrentBalance, 1000) {
		t.Errorf("CurrentBalance = %f, want 1000 sin cambios", refreshed.CurrentBalance)
	}
	count, err := env.portfolios.CountTransactions(portfolio.ID)
	if err != nil {
		t.Fatalf("CountTransactions() error = %v", err)
	}
	if count != 0 {
		t.Errorf("transacciones = %d, want 0", count)
	}
}

func TestSellPartialKeepsAverageAndReducesInvested(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "sell@test.com")
	portfolio := env.createPortfolio(t, user.ID, 10000)

	if _, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     0.1,
		Price:        floatPtr(50000),
	}); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	result, err := env.executor.Sell(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     0.05,
		Price:        floatPtr(55000),
	})
	if err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	// 0.05 * (55000 - 50000) = 250 de ganancia realizada sin fee
	if !almostEqual(result.RealizedProfit, 250) {
		t.Errorf("RealizedProfit = %f, want 250", result.RealizedProfit)
	}
	if !almostEqual(result.RemainingQuantity, 0.05) {
		t.Errorf("RemainingQuantity = %f, want 0.05", result.RemainingQuantity)
	}

	pos, err := env.positions.GetPosition(portfolio.ID, "BTC")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !almostEqual(pos.AverageBuyPrice, 50000) {
		t.Errorf("AverageBuyPrice = %f, want 50000 (la venta no cambia el promedio)", pos.AverageBuyPrice)
	}
	if !almostEqual(pos.TotalInvested, 2500) {
		t.Errorf("TotalInvested = %f, want 2500", pos.TotalInvested)
	}
}

func TestSellFullClosesPosition(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "close@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	if _, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "ETH",
		Quantity:     2,
		Price:        floatPtr(100),
	}); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if _, err := env.executor.Sell(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "ETH",
		Quantity:     2,
		Price:        floatPtr(120),
	}); err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	if _, err := env.positions.GetPosition(portfolio.ID, "ETH"); !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("GetPosition() tras cierre error = %v, want ErrPositionNotFound", err)
	}
}

func TestSellValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "sellerr@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	if _, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     1,
		Price:        floatPtr(100),
	}); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	tests := []struct {
		name    string
		req     *models.TradeRequest
		wantErr error
	}{
		{"SinPosicion", &models.TradeRequest{CryptoSymbol: "ETH", Quantity: 1, Price: floatPtr(100)}, ErrPositionNotFound},
		{"CantidadInsuficiente", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 2, Price: floatPtr(100)}, ErrInsufficientQuantity},
		{"CantidadCero", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 0, Price: floatPtr(100)}, ErrInvalidQuantity},
		{"FeeNegativo", &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 1, Price: floatPtr(100), FeePercent: -1}, ErrInvalidFee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.executor.Sell(portfolio.ID, user.ID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Sell() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTradeOwnershipAndIDValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com")
	intruder := env.createUser(t, "intruder@test.com")
	portfolio := env.createPortfolio(t, owner.ID, 1000)

	req := &models.TradeRequest{CryptoSymbol: "BTC", Quantity: 1, Price: floatPtr(100)}

	if _, err := env.executor.Buy(portfolio.ID, intruder.ID, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("Buy() de otro usuario error = %v, want ErrForbidden", err)
	}
	if _, err := env.executor.Buy("no-es-uuid", owner.ID, req); !errors.Is(err, ErrInvalidPortfolioID) {
		t.Errorf("Buy() con ID malformado error = %v, want ErrInvalidPortfolioID", err)
	}
	if _, err := env.executor.Buy(models.GenerateUUID(), owner.ID, req); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("Buy() con ID inexistente error = %v, want ErrPortfolioNotFound", err)
	}
}

func TestBuyWithFee(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "fee@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	result, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     1,
		Price:        floatPtr(100),
		FeePercent:   1,
	})
	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if !almostEqual(result.Fee, 1) {
		t.Errorf("Fee = %f, want 1", result.Fee)
	}
	if !almostEqual(result.CurrentBalance, 899) {
		t.Errorf("CurrentBalance = %f, want 899", result.CurrentBalance)
	}

	// El fee no forma parte de la base de costo
	pos, err := env.positions.GetPosition(portfolio.ID, "BTC")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !almostEqual(pos.TotalInvested, 100) {
		t.Errorf("TotalInvested = %f, want 100", pos.TotalInvested)
	}
}

func TestTradeSequenceEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "e2e@test.com")
	portfolio := env.createPortfolio(t, user.ID, 10000)

	steps := []struct {
		sell   bool
		symbol string
		qty    float64
		price  float64
	}{
		{false, "BTC", 0.1, 50000},
		{false, "ETH", 1, 3000},
		{true, "BTC", 0.05, 55000},
	}

	for _, s := range steps {
		req := &models.TradeRequest{CryptoSymbol: s.symbol, Quantity: s.qty, Price: floatPtr(s.price)}
		var err error
		if s.sell {
			_, err = env.executor.Sell(portfolio.ID, user.ID, req)
		} else {
			_, err = env.executor.Buy(portfolio.ID, user.ID, req)
		}
		if err != nil {
			t.Fatalf("operación %+v error = %v", s, err)
		}
	}

	refreshed, err := env.portfolios.GetPortfolio(portfolio.ID)
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	// 10000 - 5000 - 3000 + 2750 = 4750
	if !almostEqual(refreshed.CurrentBalance, 4750) {
		t.Errorf("CurrentBalance = %f, want 4750", refreshed.CurrentBalance)
	}

	btc, err := env.positions.GetPosition(portfolio.ID, "BTC")
	if err != nil {
		t.Fatalf("GetPosition(BTC) error = %v", err)
	}
	if !almostEqual(btc.AverageBuyPrice, 50000) || !almostEqual(btc.TotalInvested, 2500) {
		t.Errorf("BTC avg = %f invested = %f, want 50000 y 2500", btc.AverageBuyPrice, btc.TotalInvested)
	}

	count, err := env.portfolios.CountTransactions(portfolio.ID)
	if err != nil {
		t.Fatalf("CountTransactions() error = %v", err)
	}
	if count != 3 {
		t.Errorf("transacciones = %d, want 3", count)
	}
}

func TestConcurrentBuysSerialized(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "conc@test.com")
	portfolio := env.createPortfolio(t, user.ID, 10000)

	const workers = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
				CryptoSymbol: "BTC",
				Quantity:     1,
				Price:        floatPtr(100),
			})
			if err != nil {
				t.Errorf("Buy() concurrente error = %v", err)
			}
		}()
	}
	wg.Wait()

	refreshed, err := env.portfolios.GetPortfolio(portfolio.ID)
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if !almostEqual(refreshed.CurrentBalance, 10000-workers*100) {
		t.Errorf("CurrentBalance = %f, want %f", refreshed.CurrentBalance, 10000.0-workers*100)
	}

	pos, err := env.positions.GetPosition(portfolio.ID, "BTC")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !almostEqual(pos.Quantity, workers) {
		t.Errorf("Quantity = %f, want %d", pos.Quantity, workers)
	}
}

func TestTradesConcurrentWithDelete(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "delrace@test.com")
	portfolio := env.createPortfolio(t, user.ID, 100000)

	const workers = 8

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
				CryptoSymbol: "BTC",
				Quantity:     1,
				Price:        floatPtr(100),
			})
			// Las compras encoladas detrás del borrado deben fallar
			// limpiamente, nunca tumbar el proceso
			if err != nil && !errors.Is(err, ErrPortfolioNotFound) {
				t.Errorf("Buy() concurrente con borrado error = %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		env.locks.Lock(portfolio.ID)
		err := env.portfolios.DeletePortfolio(portfolio)
		env.locks.Unlock(portfolio.ID)
		if err != nil {
			t.Errorf("DeletePortfolio() error = %v", err)
		}
	}()
	wg.Wait()

	// Ninguna compra pudo mutar el portfolio después del borrado
	if _, err := env.portfolios.GetPortfolio(portfolio.ID); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("GetPortfolio() tras borrar error = %v, want ErrPortfolioNotFound", err)
	}
	count, err := env.portfolios.CountTransactions(portfolio.ID)
	if err != nil {
		t.Fatalf("CountTransactions() error = %v", err)
	}
	if count != 0 {
		t.Errorf("transacciones tras el borrado = %d, want 0", count)
	}
	positions, err := env.positions.GetPositions(portfolio.ID)
	if err != nil {
		t.Fatalf("GetPositions() error = %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("posiciones tras el borrado = %d, want 0", len(positions))
	}

	// El lock del portfolio borrado sigue siendo usable
	env.locks.Lock(portfolio.ID)
	env.locks.Unlock(portfolio.ID)
}

func TestManualPriceDivergesFromMarketValuation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "diverge@test.com")
	portfolio := env.createPortfolio(t, user.ID, 10000)

	// Feed en 110, compra manual a 100: la base de costo usa el precio
	// de ejecución y la valoración usa el precio del feed
	env.savePrice(t, "BTC", 110)

	if _, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     1,
		Price:        floatPtr(100),
	}); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	pos, err := env.positions.GetPosition(portfolio.ID, "BTC")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !almostEqual(pos.AverageBuyPrice, 100) {
		t.Errorf("AverageBuyPrice = %f, want 100", pos.AverageBuyPrice)
	}
	if !almostEqual(pos.CurrentPrice, 110) {
		t.Errorf("CurrentPrice = %f, want 110", pos.CurrentPrice)
	}
	if !almostEqual(pos.ProfitLoss, 10) {
		t.Errorf("ProfitLoss = %f, want 10", pos.ProfitLoss)
	}
}

func TestBuyUsesLatestFeedPrice(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "feed@test.com")
	portfolio := env.createPortfolio(t, user.ID, 10000)

	env.savePrice(t, "SOL", 150)

	result, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "SOL",
		Quantity:     2,
	})
	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}
	if !almostEqual(result.Price, 150) {
		t.Errorf("Price = %f, want 150 (último precio del feed)", result.Price)
	}
	if !almostEqual(result.TotalAmount, 300) {
		t.Errorf("TotalAmount = %f, want 300", result.TotalAmount)
	}
}
