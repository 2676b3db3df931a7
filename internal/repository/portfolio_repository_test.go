package repository

import (
	"errors"
	"testing"

	"github.com/cryptopulse/api/internal/models"
)

// countDefaults cuenta los portfolios predeterminados de un usuario
func countDefaults(t *testing.T, env *testEnv, userID string) int {
	t.Helper()

	portfolios, err := env.portfolios.GetUserPortfolios(userID)
	if err != nil {
		t.Fatalf("GetUserPortfolios() error = %v", err)
	}
	count := 0
	for _, p := range portfolios {
		if p.IsDefault {
			count++
		}
	}
	return count
}

func TestFirstPortfolioBecomesDefault(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "first@test.com")

	p, err := env.portfolios.CreatePortfolio(user.ID, &models.PortfolioCreateRequest{
		Name:           "Primero",
		InitialBalance: 1000,
		IsDefault:      false,
	})
	if err != nil {
		t.Fatalf("CreatePortfolio() error = %v", err)
	}
	if !p.IsDefault {
		t.Error("el primer portfolio debe quedar como predeterminado aunque no se pida")
	}
}

func TestSingleDefaultAcrossPortfolios(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "single@test.com")

	first := env.createPortfolio(t, user.ID, 1000)

	second, err := env.portfolios.CreatePortfolio(user.ID, &models.PortfolioCreateRequest{
		Name:           "Segundo",
		InitialBalance: 2000,
		IsDefault:      true,
	})
	if err != nil {
		t.Fatalf("CreatePortfolio() error = %v", err)
	}

	if got := countDefaults(t, env, user.ID); got != 1 {
		t.Fatalf("predeterminados = %d, want 1", got)
	}

	refreshedFirst, err := env.portfolios.GetPortfolio(first.ID)
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if refreshedFirst.IsDefault {
		t.Error("el primer portfolio debe quedar desmarcado al marcar otro")
	}
	if !second.IsDefault {
		t.Error("el segundo portfolio debe quedar como predeterminado")
	}
}

func TestUpdatePortfolioMovesDefault(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "move@test.com")

	env.createPortfolio(t, user.ID, 1000)
	second, err := env.portfolios.CreatePortfolio(user.ID, &models.PortfolioCreateRequest{
		Name:           "Segundo",
		InitialBalance: 2000,
	})
	if err != nil {
		t.Fatalf("CreatePortfolio() error = %v", err)
	}

	isDefault := true
	if _, err := env.portfolios.UpdatePortfolio(second, &models.PortfolioUpdateRequest{IsDefault: &isDefault}); err != nil {
		t.Fatalf("UpdatePortfolio() error = %v", err)
	}

	if got := countDefaults(t, env, user.ID); got != 1 {
		t.Errorf("predeterminados = %d, want 1", got)
	}
}

func TestDeleteDefaultPromotesNewest(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "promote@test.com")

	first := env.createPortfolio(t, user.ID, 1000)
	second, err := env.portfolios.CreatePortfolio(user.ID, &models.PortfolioCreateRequest{
		Name:           "Segundo",
		InitialBalance: 2000,
	})
	if err != nil {
		t.Fatalf("CreatePortfolio() error = %v", err)
	}

	if err := env.portfolios.DeletePortfolio(first); err != nil {
		t.Fatalf("DeletePortfolio() error = %v", err)
	}

	refreshed, err := env.portfolios.GetPortfolio(second.ID)
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if !refreshed.IsDefault {
		t.Error("al borrar el predeterminado debe promoverse el que queda")
	}
}

func TestDeletePortfolioRemovesPositionsAndTransactions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "cascade@test.com")
	portfolio := env.createPortfolio(t, user.ID, 1000)

	if _, err := env.executor.Buy(portfolio.ID, user.ID, &models.TradeRequest{
		CryptoSymbol: "BTC",
		Quantity:     1,
		Price:        floatPtr(100),
	}); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if err := env.portfolios.DeletePortfolio(portfolio); err != nil {
		t.Fatalf("DeletePortfolio() error = %v", err)
	}

	if _, err := env.portfolios.GetPortfolio(portfolio.ID); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("GetPortfolio() tras borrar error = %v, want ErrPortfolioNotFound", err)
	}
	count, err := env.portfolios.CountTransactions(portfolio.ID)
	if err != nil {
		t.Fatalf("CountTransactions() error = %v", err)
	}
	if count != 0 {
		t.Errorf("transacciones huérfanas = %d, want 0", count)
	}
}

func TestGetPortfolioInvalidID(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.portfolios.GetPortfolio("cualquier-cosa"); !errors.Is(err, ErrInvalidPortfolioID) {
		t.Errorf("GetPortfolio() error = %v, want ErrInvalidPortfolioID", err)
	}
	if _, err := env.portfolios.GetPortfolio(models.GenerateUUID()); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("GetPortfolio() error = %v, want ErrPortfolioNotFound", err)
	}
}
