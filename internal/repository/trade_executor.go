package repository

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/cryptopulse/api/internal/models"
)

// TradeExecutor valida y aplica operaciones de compra y venta sobre un
// portfolio. Cada operación avanza por validación, resolución de precio,
// verificación de fondos o tenencias, aplicación y registro; cualquier
// fallo corta antes de mutar nada.
type TradeExecutor struct {
	db         *sql.DB
	portfolios *PortfolioRepository
	positions  *PositionRepository
	prices     *PriceRepository
	locks      *PortfolioLocks
}

func NewTradeExecutor(db *sql.DB, portfolios *PortfolioRepository, positions *PositionRepository, prices *PriceRepository, locks *PortfolioLocks) *TradeExecutor {
	return &TradeExecutor{
		db:         db,
		portfolios: portfolios,
		positions:  positions,
		prices:     prices,
		locks:      locks,
	}
}

// resolvePrice resuelve el precio de ejecución: el precio manual si se
// envió, si no el último precio almacenado del feed
func (e *TradeExecutor) resolvePrice(symbol string, override *float64) (float64, error) {
	if override != nil {
		if *override <= 0 {
			return 0, ErrPriceUnavailable
		}
		return *override, nil
	}

	px, ok, err := e.prices.GetLatestPrice(symbol)
	if err != nil {
		return 0, err
	}
	if !ok || px <= 0 {
		return 0, ErrPriceUnavailable
	}
	return px, nil
}

// marketPrice devuelve el precio de mercado para revalorizar la posición.
// Puede diferir del precio de ejecución cuando éste fue manual: la base de
// costo usa el precio de ejecución y la valoración usa el último precio
// del feed, con el precio de ejecución como último recurso.
func (e *TradeExecutor) marketPrice(symbol string, executionPrice float64) (float64, error) {
	px, ok, err := e.prices.GetLatestPrice(symbol)
	if err != nil {
		return 0, err
	}
	if !ok {
		return executionPrice, nil
	}
	return px, nil
}

// Buy ejecuta una compra. El portfolio queda bloqueado durante toda la
// secuencia para que ninguna otra operación lea o mute su balance y sus
// posiciones a medio aplicar.
func (e *TradeExecutor) Buy(portfolioID, userID string, req *models.TradeRequest) (*models.TradeResult, error) {
	symbol := models.CanonicalSymbol(req.CryptoSymbol)
	if symbol == "" || req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	e.locks.Lock(portfolioID)
	defer e.locks.Unlock(portfolioID)

	portfolio, err := e.portfolios.GetOwnedPortfolio(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	px, err := e.resolvePrice(symbol, req.Price)
	if err != nil {
		return nil, err
	}

	if req.FeePercent < 0 {
		return nil, ErrInvalidFee
	}

	totalAmount := req.Quantity * px
	fee := totalAmount * (req.FeePercent / 100.0)
	totalCost := totalAmount + fee

	if portfolio.CurrentBalance < totalCost {
		return nil, ErrInsufficientBalance
	}

	// Hasta acá no se mutó nada; a partir de acá la operación se aplica entera
	now := time.Now().UTC()

	currentPrice, err := e.marketPrice(symbol, px)
	if err != nil {
		return nil, err
	}

	pos, err := e.positions.GetPosition(portfolioID, symbol)
	switch {
	case err == nil:
		newQty := pos.Quantity + req.Quantity
		pos.AverageBuyPrice = WeightedAveragePrice(pos.Quantity, pos.AverageBuyPrice, req.Quantity, px)
		pos.Quantity = newQty
		pos.TotalInvested += totalAmount
		pos.CurrentPrice = currentPrice
		pos.CurrentValue = newQty * currentPrice
		pos.ProfitLoss, pos.ProfitLossPercent = ProfitLoss(pos.CurrentValue, pos.TotalInvested)
		pos.UpdatedAt = now

		if err := e.positions.UpdatePosition(pos); err != nil {
			return nil, err
		}
	case err == ErrPositionNotFound:
		newPos := &models.Position{
			ID:              models.GenerateUUID(),
			PortfolioID:     portfolioID,
			CryptoSymbol:    symbol,
			Quantity:        req.Quantity,
			AverageBuyPrice: px,
			CurrentPrice:    currentPrice,
			TotalInvested:   totalAmount,
			CurrentValue:    req.Quantity * currentPrice,
			UpdatedAt:       now,
		}
		newPos.ProfitLoss, newPos.ProfitLossPercent = ProfitLoss(newPos.CurrentValue, newPos.TotalInvested)

		if err := e.positions.SavePosition(newPos); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	newBalance := portfolio.CurrentBalance - totalCost
	if err := e.portfolios.UpdateBalance(portfolioID, newBalance); err != nil {
		return nil, err
	}

	if err := e.recordTransaction(portfolioID, models.TransactionTypeBuy, symbol, req.Quantity, px, totalAmount, fee, now, req.Notes); err != nil {
		return nil, err
	}

	log.Printf("Compra ejecutada: portfolio=%s %s qty=%f precio=%f fee=%f", portfolioID, symbol, req.Quantity, px, fee)

	return &models.TradeResult{
		Price:          px,
		Fee:            fee,
		TotalAmount:    totalAmount,
		CurrentBalance: newBalance,
	}, nil
}

// Sell ejecuta una venta bajo el mismo bloqueo por portfolio que Buy
func (e *TradeExecutor) Sell(portfolioID, userID string, req *models.TradeRequest) (*models.TradeResult, error) {
	symbol := models.CanonicalSymbol(req.CryptoSymbol)
	if symbol == "" || req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	e.locks.Lock(portfolioID)
	defer e.locks.Unlock(portfolioID)

	portfolio, err := e.portfolios.GetOwnedPortfolio(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	px, err := e.resolvePrice(symbol, req.Price)
	if err != nil {
		return nil, err
	}

	if req.FeePercent < 0 {
		return nil, ErrInvalidFee
	}

	pos, err := e.positions.GetPosition(portfolioID, symbol)
	if err != nil {
		return nil, err
	}

	if pos.Quantity < req.Quantity {
		return nil, ErrInsufficientQuantity
	}

	totalAmount := req.Quantity * px
	fee := totalAmount * (req.FeePercent / 100.0)
	proceeds := totalAmount - fee

	now := time.Now().UTC()
	avgBuy := pos.AverageBuyPrice
	remaining := pos.Quantity - req.Quantity

	// La base de costo se reduce en proporción a la cantidad vendida,
	// no al monto de la venta, con piso en cero
	newInvested := pos.TotalInvested - avgBuy*req.Quantity
	if newInvested < 0 {
		newInvested = 0
	}

	if remaining <= 0 {
		if err := e.positions.DeletePosition(pos.ID); err != nil {
			return nil, err
		}
	} else {
		currentPrice, err := e.marketPrice(symbol, px)
		if err != nil {
			return nil, err
		}

		pos.Quantity = remaining
		pos.TotalInvested = newInvested
		pos.CurrentPrice = currentPrice
		pos.CurrentValue = remaining * currentPrice
		pos.ProfitLoss, pos.ProfitLossPercent = ProfitLoss(pos.CurrentValue, pos.TotalInvested)
		pos.UpdatedAt = now

		if err := e.positions.UpdatePosition(pos); err != nil {
			return nil, err
		}
	}

	newBalance := portfolio.CurrentBalance + proceeds
	if err := e.portfolios.UpdateBalance(portfolioID, newBalance); err != nil {
		return nil, err
	}

	if err := e.recordTransaction(portfolioID, models.TransactionTypeSell, symbol, req.Quantity, px, totalAmount, fee, now, req.Notes); err != nil {
		return nil, err
	}

	log.Printf("Venta ejecutada: portfolio=%s %s qty=%f precio=%f fee=%f", portfolioID, symbol, req.Quantity, px, fee)

	return &models.TradeResult{
		Price:             px,
		Fee:               fee,
		TotalAmount:       totalAmount,
		CurrentBalance:    newBalance,
		RealizedProfit:    (px-avgBuy)*req.Quantity - fee,
		RemainingQuantity: remaining,
	}, nil
}

// recordTransaction agrega el registro inmutable de la operación
func (e *TradeExecutor) recordTransaction(portfolioID, txType, symbol string, quantity, price, totalAmount, fee float64, timestamp time.Time, notes string) error {
	query := `
		INSERT INTO transactions (id, portfolio_id, transaction_type, crypto_symbol, quantity, price, total_amount, fee, timestamp, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := e.db.Exec(query,
		models.GenerateUUID(),
		portfolioID,
		txType,
		symbol,
		quantity,
		price,
		totalAmount,
		fee,
		timestamp,
		strings.TrimSpace(notes),
	)
	return err
}

// GetTransactions devuelve las transacciones de un portfolio, la más reciente primero
func (e *TradeExecutor) GetTransactions(portfolioID string) ([]models.Transaction, error) {
	query := `
		SELECT id, portfolio_id, transaction_type, crypto_symbol, quantity, price, total_amount, fee, timestamp, notes
		FROM transactions
		WHERE portfolio_id = ?
		ORDER BY timestamp DESC`

	rows, err := e.db.Query(query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var notes sql.NullString
		err := rows.Scan(
			&tx.ID,
			&tx.PortfolioID,
			&tx.TransactionType,
			&tx.CryptoSymbol,
			&tx.Quantity,
			&tx.Price,
			&tx.TotalAmount,
			&tx.Fee,
			&tx.Timestamp,
			&notes,
		)
		if err != nil {
			return nil, err
		}
		tx.Notes = notes.String
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
