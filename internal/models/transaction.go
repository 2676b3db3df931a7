package models

import "time"

// Tipos de transacción
const (
	TransactionTypeBuy  = "BUY"
	TransactionTypeSell = "SELL"
)

// Transaction es el registro inmutable de una operación ejecutada.
// Nunca se modifica ni se borra, salvo por el borrado en cascada
// del portfolio.
type Transaction struct {
	ID              string    `json:"id"`
	PortfolioID     string    `json:"portfolio_id"`
	TransactionType string    `json:"transaction_type"`
	CryptoSymbol    string    `json:"crypto_symbol"`
	Quantity        float64   `json:"quantity"`
	Price           float64   `json:"price"`
	TotalAmount     float64   `json:"total_amount"`
	Fee             float64   `json:"fee"`
	Timestamp       time.Time `json:"timestamp"`
	Notes           string    `json:"notes,omitempty"`
}
