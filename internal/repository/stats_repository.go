package repository

import (
	"database/sql"
	"time"

	"github.com/cryptopulse/api/internal/models"
)

// StatsRepository calcula las vistas agregadas de un portfolio. Toda
// lectura revaloriza primero las posiciones contra el último precio
// ("leer refresca"), y lo hace bajo el mismo bloqueo por portfolio que
// usa el ejecutor para no pisar operaciones en curso.
type StatsRepository struct {
	db         *sql.DB
	portfolios *PortfolioRepository
	positions  *PositionRepository
	locks      *PortfolioLocks
}

func NewStatsRepository(db *sql.DB, portfolios *PortfolioRepository, positions *PositionRepository, locks *PortfolioLocks) *StatsRepository {
	return &StatsRepository{
		db:         db,
		portfolios: portfolios,
		positions:  positions,
		locks:      locks,
	}
}

// GetRefreshedPositions revaloriza y devuelve las posiciones de un
// portfolio del usuario, mayor valor primero
func (r *StatsRepository) GetRefreshedPositions(portfolioID, userID string) ([]models.Position, error) {
	r.locks.Lock(portfolioID)
	defer r.locks.Unlock(portfolioID)

	if _, err := r.portfolios.GetOwnedPortfolio(portfolioID, userID); err != nil {
		return nil, err
	}

	if err := r.positions.RefreshPositions(portfolioID); err != nil {
		return nil, err
	}

	return r.positions.GetPositions(portfolioID)
}

// GetRefreshedPosition revaloriza y devuelve la posición de un símbolo
func (r *StatsRepository) GetRefreshedPosition(portfolioID, userID, symbol string) (*models.Position, error) {
	r.locks.Lock(portfolioID)
	defer r.locks.Unlock(portfolioID)

	if _, err := r.portfolios.GetOwnedPortfolio(portfolioID, userID); err != nil {
		return nil, err
	}

	if err := r.positions.RefreshPositions(portfolioID); err != nil {
		return nil, err
	}

	return r.positions.GetPosition(portfolioID, symbol)
}

// GetStats calcula los totales del portfolio completo: efectivo más
// posiciones, invertido, ganancia contra el balance inicial y conteos.
// Es una función pura del estado actual más el último precio: dos
// llamadas sin operaciones en el medio devuelven lo mismo.
func (r *StatsRepository) GetStats(portfolioID, userID string) (*models.PortfolioStats, error) {
	r.locks.Lock(portfolioID)
	defer r.locks.Unlock(portfolioID)

	portfolio, err := r.portfolios.GetOwnedPortfolio(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	if err := r.positions.RefreshPositions(portfolioID); err != nil {
		return nil, err
	}

	positionsValue, err := r.positions.PositionsValue(portfolioID)
	if err != nil {
		return nil, err
	}

	var totalInvested sql.NullFloat64
	query := `SELECT SUM(total_invested) FROM positions WHERE portfolio_id = ?`
	if err := r.db.QueryRow(query, portfolioID).Scan(&totalInvested); err != nil {
		return nil, err
	}

	totalValue := portfolio.CurrentBalance + positionsValue
	profitLoss := totalValue - portfolio.InitialBalance
	profitLossPercent := 0.0
	if portfolio.InitialBalance > 0 {
		profitLossPercent = (profitLoss / portfolio.InitialBalance) * 100
	}

	positionsCount, err := r.positions.CountPositions(portfolioID)
	if err != nil {
		return nil, err
	}
	transactionsCount, err := r.portfolios.CountTransactions(portfolioID)
	if err != nil {
		return nil, err
	}

	return &models.PortfolioStats{
		TotalValue:        totalValue,
		CashBalance:       portfolio.CurrentBalance,
		PositionsValue:    positionsValue,
		TotalInvested:     totalInvested.Float64,
		ProfitLoss:        profitLoss,
		ProfitLossPercent: profitLossPercent,
		ROIPercent:        profitLossPercent,
		PositionsCount:    positionsCount,
		TransactionsCount: transactionsCount,
	}, nil
}

// GetAllocation calcula el peso de cada posición sobre el valor total,
// ordenado de mayor a menor valor
func (r *StatsRepository) GetAllocation(portfolioID, userID string) (*models.PortfolioAllocation, error) {
	r.locks.Lock(portfolioID)
	defer r.locks.Unlock(portfolioID)

	portfolio, err := r.portfolios.GetOwnedPortfolio(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	if err := r.positions.RefreshPositions(portfolioID); err != nil {
		return nil, err
	}

	positions, err := r.positions.GetPositions(portfolioID)
	if err != nil {
		return nil, err
	}

	positionsValue := 0.0
	for _, pos := range positions {
		positionsValue += pos.CurrentValue
	}
	totalValue := portfolio.CurrentBalance + positionsValue

	allocation := []models.AllocationItem{}
	for _, pos := range positions {
		percent := 0.0
		if totalValue > 0 {
			percent = (pos.CurrentValue / totalValue) * 100
		}
		allocation = append(allocation, models.AllocationItem{
			CryptoSymbol: pos.CryptoSymbol,
			CurrentValue: pos.CurrentValue,
			Percent:      percent,
		})
	}

	return &models.PortfolioAllocation{
		TotalValue: totalValue,
		Allocation: allocation,
	}, nil
}

// GetPerformance reconstruye la serie de valor del portfolio rehaciendo
// el log de transacciones en orden cronológico. Es un pliegue puro sobre
// el log: la misma secuencia de transacciones produce siempre la misma
// serie de puntos.
func (r *StatsRepository) GetPerformance(portfolioID, userID string) (*models.PortfolioPerformance, error) {
	r.locks.Lock(portfolioID)
	defer r.locks.Unlock(portfolioID)

	portfolio, err := r.portfolios.GetOwnedPortfolio(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT transaction_type, crypto_symbol, quantity, price, total_amount, fee, timestamp
		FROM transactions
		WHERE portfolio_id = ?
		ORDER BY timestamp ASC`

	rows, err := r.db.Query(query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cash := portfolio.InitialBalance
	holdings := map[string]float64{}
	lastPrice := map[string]float64{}

	// Punto inicial sintético: al crearse, todo el valor es efectivo
	points := []models.PerformancePoint{{
		Timestamp:      portfolio.CreatedAt,
		TotalValue:     cash,
		CashBalance:    cash,
		PositionsValue: 0,
	}}

	for rows.Next() {
		var txType, symbol string
		var quantity, price, totalAmount, fee float64
		var timestamp time.Time

		if err := rows.Scan(&txType, &symbol, &quantity, &price, &totalAmount, &fee, &timestamp); err != nil {
			return nil, err
		}

		symbol = models.CanonicalSymbol(symbol)
		if symbol != "" {
			lastPrice[symbol] = price
		}

		switch txType {
		case models.TransactionTypeBuy:
			cash -= totalAmount + fee
			holdings[symbol] += quantity
		case models.TransactionTypeSell:
			cash += totalAmount - fee
			holdings[symbol] -= quantity
			if holdings[symbol] <= 0 {
				delete(holdings, symbol)
			}
		}

		positionsValue := 0.0
		for s, q := range holdings {
			positionsValue += q * lastPrice[s]
		}

		points = append(points, models.PerformancePoint{
			Timestamp:      timestamp,
			TotalValue:     cash + positionsValue,
			CashBalance:    cash,
			PositionsValue: positionsValue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PortfolioPerformance{Points: points, Count: len(points)}, nil
}
