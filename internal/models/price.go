package models

import "time"

// PriceRecord es un registro de precio guardado por el colector.
// El último registro por símbolo es el que usa el motor de trading.
type PriceRecord struct {
	ID        string    `json:"id"`
	CoinID    string    `json:"coin_id,omitempty"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	PriceUSD  float64   `json:"price_usd"`
	Volume24h float64   `json:"volume_24h"`
	MarketCap float64   `json:"market_cap"`
	Timestamp time.Time `json:"timestamp"`
}
