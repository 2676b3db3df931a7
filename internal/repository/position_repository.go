package repository

import (
	"database/sql"
	"time"

	"github.com/cryptopulse/api/internal/models"
)

type PositionRepository struct {
	db     *sql.DB
	prices *PriceRepository
}

func NewPositionRepository(db *sql.DB, prices *PriceRepository) *PositionRepository {
	return &PositionRepository{db: db, prices: prices}
}

// WeightedAveragePrice calcula el precio promedio ponderado tras una compra.
// Sin cantidad previa no hay base que mezclar y el promedio es el precio
// de compra; una cantidad comprada nula deja el promedio como estaba.
// Aritmética float64 exacta, sin redondeos intermedios.
func WeightedAveragePrice(oldQty, oldAvg, newQty, newPrice float64) float64 {
	if oldQty <= 0 {
		return newPrice
	}
	if newQty <= 0 {
		return oldAvg
	}
	return ((oldQty * oldAvg) + (newQty * newPrice)) / (oldQty + newQty)
}

// ProfitLoss deriva ganancia/pérdida y su porcentaje.
// El porcentaje es 0 cuando lo invertido es <= 0.
func ProfitLoss(currentValue, totalInvested float64) (float64, float64) {
	pl := currentValue - totalInvested
	if totalInvested <= 0 {
		return pl, 0
	}
	return pl, (pl / totalInvested) * 100
}

// GetPosition busca la posición de un símbolo dentro de un portfolio
func (r *PositionRepository) GetPosition(portfolioID, symbol string) (*models.Position, error) {
	query := `
		SELECT id, portfolio_id, crypto_symbol, quantity, average_buy_price, current_price,
		       total_invested, current_value, profit_loss, profit_loss_percent, updated_at
		FROM positions
		WHERE portfolio_id = ? AND crypto_symbol = ?`

	pos := &models.Position{}
	err := r.db.QueryRow(query, portfolioID, models.CanonicalSymbol(symbol)).Scan(
		&pos.ID,
		&pos.PortfolioID,
		&pos.CryptoSymbol,
		&pos.Quantity,
		&pos.AverageBuyPrice,
		&pos.CurrentPrice,
		&pos.TotalInvested,
		&pos.CurrentValue,
		&pos.ProfitLoss,
		&pos.ProfitLossPercent,
		&pos.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// GetPositions devuelve las posiciones de un portfolio, mayor valor primero
func (r *PositionRepository) GetPositions(portfolioID string) ([]models.Position, error) {
	query := `
		SELECT id, portfolio_id, crypto_symbol, quantity, average_buy_price, current_price,
		       total_invested, current_value, profit_loss, profit_loss_percent, updated_at
		FROM positions
		WHERE portfolio_id = ?
		ORDER BY current_value DESC`

	rows, err := r.db.Query(query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []models.Position{}
	for rows.Next() {
		var pos models.Position
		err := rows.Scan(
			&pos.ID,
			&pos.PortfolioID,
			&pos.CryptoSymbol,
			&pos.Quantity,
			&pos.AverageBuyPrice,
			&pos.CurrentPrice,
			&pos.TotalInvested,
			&pos.CurrentValue,
			&pos.ProfitLoss,
			&pos.ProfitLossPercent,
			&pos.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// SavePosition inserta una posición nueva
func (r *PositionRepository) SavePosition(pos *models.Position) error {
	query := `
		INSERT INTO positions (id, portfolio_id, crypto_symbol, quantity, average_buy_price,
			current_price, total_invested, current_value, profit_loss, profit_loss_percent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		pos.ID,
		pos.PortfolioID,
		models.CanonicalSymbol(pos.CryptoSymbol),
		pos.Quantity,
		pos.AverageBuyPrice,
		pos.CurrentPrice,
		pos.TotalInvested,
		pos.CurrentValue,
		pos.ProfitLoss,
		pos.ProfitLossPercent,
		pos.UpdatedAt,
	)
	return err
}

// UpdatePosition persiste los campos mutables de una posición existente
func (r *PositionRepository) UpdatePosition(pos *models.Position) error {
	query := `
		UPDATE positions
		SET quantity = ?, average_buy_price = ?, current_price = ?, total_invested = ?,
		    current_value = ?, profit_loss = ?, profit_loss_percent = ?, updated_at = ?
		WHERE id = ?`

	_, err := r.db.Exec(query,
		pos.Quantity,
		pos.AverageBuyPrice,
		pos.CurrentPrice,
		pos.TotalInvested,
		pos.CurrentValue,
		pos.ProfitLoss,
		pos.ProfitLossPercent,
		pos.UpdatedAt,
		pos.ID,
	)
	return err
}

// DeletePosition elimina una posición. Las posiciones con cantidad <= 0
// se borran: nunca se persiste una fila en cero.
func (r *PositionRepository) DeletePosition(positionID string) error {
	_, err := r.db.Exec(`DELETE FROM positions WHERE id = ?`, positionID)
	return err
}

// RefreshPositions revaloriza todas las posiciones de un portfolio contra
// el último precio del feed. Si el feed no tiene precio para un símbolo se
// conserva el último precio conocido de la posición. Toda lectura de
// posiciones o agregados pasa por aquí antes de responder.
func (r *PositionRepository) RefreshPositions(portfolioID string) error {
	positions, err := r.GetPositions(portfolioID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range positions {
		pos := &positions[i]

		latest, ok, err := r.prices.GetLatestPrice(pos.CryptoSymbol)
		if err != nil {
			return err
		}
		if !ok {
			latest = pos.CurrentPrice
		}

		pos.CurrentPrice = latest
		pos.CurrentValue = pos.Quantity * latest
		pos.ProfitLoss, pos.ProfitLossPercent = ProfitLoss(pos.CurrentValue, pos.TotalInvested)
		pos.UpdatedAt = now

		if err := r.UpdatePosition(pos); err != nil {
			return err
		}
	}
	return nil
}

// PositionsValue suma el valor actual de todas las posiciones
func (r *PositionRepository) PositionsValue(portfolioID string) (float64, error) {
	var value sql.NullFloat64
	query := `SELECT SUM(current_value) FROM positions WHERE portfolio_id = ?`
	if err := r.db.QueryRow(query, portfolioID).Scan(&value); err != nil {
		return 0, err
	}
	return value.Float64, nil
}

// CountPositions cuenta las posiciones abiertas de un portfolio
func (r *PositionRepository) CountPositions(portfolioID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM positions WHERE portfolio_id = ?`, portfolioID).Scan(&count)
	return count, err
}
