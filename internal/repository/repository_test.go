package repository

import (
	"math"
	"testing"
	"time"

	"github.com/cryptopulse/api/internal/database"
	"github.com/cryptopulse/api/internal/models"
)

// testEnv arma una base en memoria con los repositorios conectados como
// en producción: un único registro de locks compartido entre el ejecutor
// y las lecturas agregadas.
type testEnv struct {
	portfolios *PortfolioRepository
	positions  *PositionRepository
	prices     *PriceRepository
	executor   *TradeExecutor
	stats      *StatsRepository
	users      *UserRepository
	alerts     *AlertRepository
	locks      *PortfolioLocks
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewMemory()
	if err != nil {
		t.Fatalf("error al crear la base en memoria: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	locks := NewPortfolioLocks()
	prices := NewPriceRepository(db)
	portfolios := NewPortfolioRepository(db)
	positions := NewPositionRepository(db, prices)

	return &testEnv{
		portfolios: portfolios,
		positions:  positions,
		prices:     prices,
		executor:   NewTradeExecutor(db, portfolios, positions, prices, locks),
		stats:      NewStatsRepository(db, portfolios, positions, locks),
		users:      NewUserRepository(db),
		alerts:     NewAlertRepository(db),
		locks:      locks,
	}
}

func (env *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       models.GenerateUUID(),
		Email:    email,
		Password: "hash",
		Name:     "Tester",
	}
	if err := env.users.CreateUser(user); err != nil {
		t.Fatalf("error al crear usuario: %v", err)
	}
	return user
}

func (env *testEnv) createPortfolio(t *testing.T, userID string, balance float64) *models.Portfolio {
	t.Helper()

	p, err := env.portfolios.CreatePortfolio(userID, &models.PortfolioCreateRequest{
		Name:           "Principal",
		InitialBalance: balance,
	})
	if err != nil {
		t.Fatalf("error al crear portfolio: %v", err)
	}
	return p
}

func (env *testEnv) savePrice(t *testing.T, symbol string, price float64) {
	t.Helper()

	err := env.prices.SavePrice(&models.PriceRecord{
		ID:        models.GenerateUUID(),
		CoinID:    "test-" + symbol,
		Symbol:    symbol,
		Name:      symbol,
		PriceUSD:  price,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("error al guardar precio de %s: %v", symbol, err)
	}
}

func floatPtr(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
