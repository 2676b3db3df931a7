package repository

import (
	"database/sql"

	"github.com/cryptopulse/api/internal/models"
)

type PriceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// SavePrice guarda un registro de precio nuevo
func (r *PriceRepository) SavePrice(p *models.PriceRecord) error {
	query := `
		INSERT INTO prices (id, coin_id, symbol, name, price_usd, volume_24h, market_cap, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		p.ID,
		p.CoinID,
		models.CanonicalSymbol(p.Symbol),
		p.Name,
		p.PriceUSD,
		p.Volume24h,
		p.MarketCap,
		p.Timestamp,
	)
	return err
}

// GetLatestPrice devuelve el último precio almacenado para un símbolo.
// El segundo valor indica si existe registro: la ausencia de precio no
// es un error y es distinta de un precio cero.
func (r *PriceRepository) GetLatestPrice(symbol string) (float64, bool, error) {
	query := `
		SELECT price_usd FROM prices
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT 1`

	var price float64
	err := r.db.QueryRow(query, models.CanonicalSymbol(symbol)).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// GetLatestPrices devuelve el registro más reciente de cada símbolo,
// ordenado por capitalización de mercado
func (r *PriceRepository) GetLatestPrices() ([]models.PriceRecord, error) {
	query := `
		SELECT p.id, p.coin_id, p.symbol, p.name, p.price_usd, p.volume_24h, p.market_cap, p.timestamp
		FROM prices p
		INNER JOIN (
			SELECT symbol, MAX(timestamp) AS max_ts
			FROM prices
			GROUP BY symbol
		) latest ON p.symbol = latest.symbol AND p.timestamp = latest.max_ts
		ORDER BY p.market_cap DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var rec models.PriceRecord
		var coinID, name sql.NullString
		err := rows.Scan(
			&rec.ID,
			&coinID,
			&rec.Symbol,
			&name,
			&rec.PriceUSD,
			&rec.Volume24h,
			&rec.MarketCap,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		rec.CoinID = coinID.String
		rec.Name = name.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
