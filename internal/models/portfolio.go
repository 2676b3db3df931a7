package models

import (
	"strings"
	"time"
)

// Portfolio representa una cartera simulada de un usuario.
// El balance inicial es fijo desde la creación; el balance actual
// se modifica con cada operación y nunca queda negativo.
type Portfolio struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	InitialBalance float64   `json:"initial_balance"`
	CurrentBalance float64   `json:"current_balance"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PortfolioCreateRequest es el cuerpo para crear un portfolio
type PortfolioCreateRequest struct {
	Name           string  `json:"name" binding:"required"`
	InitialBalance float64 `json:"initial_balance" binding:"required,gt=0"`
	IsDefault      bool    `json:"is_default"`
}

// PortfolioUpdateRequest es el cuerpo para actualizar un portfolio.
// Punteros para distinguir "no enviado" de valor cero.
type PortfolioUpdateRequest struct {
	Name      *string `json:"name"`
	IsDefault *bool   `json:"is_default"`
}

// Position representa la tenencia actual de un portfolio en un símbolo.
// Los campos current_* y profit_* se recalculan contra el último precio
// antes de cada lectura.
type Position struct {
	ID                string    `json:"id"`
	PortfolioID       string    `json:"portfolio_id"`
	CryptoSymbol      string    `json:"crypto_symbol"`
	Quantity          float64   `json:"quantity"`
	AverageBuyPrice   float64   `json:"average_buy_price"`
	CurrentPrice      float64   `json:"current_price"`
	TotalInvested     float64   `json:"total_invested"`
	CurrentValue      float64   `json:"current_value"`
	ProfitLoss        float64   `json:"profit_loss"`
	ProfitLossPercent float64   `json:"profit_loss_percent"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TradeRequest es el cuerpo de compra o venta.
// Price permite fijar un precio de ejecución manual; si es nil se usa
// el último precio almacenado.
type TradeRequest struct {
	CryptoSymbol string   `json:"crypto_symbol" binding:"required"`
	Quantity     float64  `json:"quantity" binding:"required"`
	Price        *float64 `json:"price"`
	FeePercent   float64  `json:"fee_percent"`
	Notes        string   `json:"notes"`
}

// TradeResult es el resultado de una operación ejecutada
type TradeResult struct {
	Price             float64 `json:"price"`
	Fee               float64 `json:"fee"`
	TotalAmount       float64 `json:"total_amount"`
	CurrentBalance    float64 `json:"current_balance"`
	RealizedProfit    float64 `json:"realized_profit,omitempty"`
	RemainingQuantity float64 `json:"remaining_quantity,omitempty"`
}

// PortfolioStats resume el estado completo de un portfolio
type PortfolioStats struct {
	TotalValue        float64 `json:"total_value"`
	CashBalance       float64 `json:"cash_balance"`
	PositionsValue    float64 `json:"positions_value"`
	TotalInvested     float64 `json:"total_invested"`
	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
	ROIPercent        float64 `json:"roi_percent"`
	PositionsCount    int     `json:"positions_count"`
	TransactionsCount int     `json:"transactions_count"`
}

// AllocationItem es el peso de una posición dentro del portfolio
type AllocationItem struct {
	CryptoSymbol string  `json:"crypto_symbol"`
	CurrentValue float64 `json:"current_value"`
	Percent      float64 `json:"percent"`
}

type PortfolioAllocation struct {
	TotalValue float64          `json:"total_value"`
	Allocation []AllocationItem `json:"allocation"`
}

// PerformancePoint es un punto de la reconstrucción histórica del valor
type PerformancePoint struct {
	Timestamp      time.Time `json:"timestamp"`
	TotalValue     float64   `json:"total_value"`
	CashBalance    float64   `json:"cash_balance"`
	PositionsValue float64   `json:"positions_value"`
}

type PortfolioPerformance struct {
	Points []PerformancePoint `json:"points"`
	Count  int                `json:"count"`
}

// CanonicalSymbol normaliza un símbolo: espacios fuera y mayúsculas.
// Se aplica en todos los puntos de entrada para que BTC y btc no
// generen posiciones duplicadas.
func CanonicalSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
