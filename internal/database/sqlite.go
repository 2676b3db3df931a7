package database

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// New abre la base de datos y crea el esquema si no existe.
// El handle se inyecta en los repositorios; no hay estado global.
func New(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// NewMemory abre una base de datos en memoria, usada en los tests.
func NewMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}

	// Cada conexión a :memory: ve una base distinta; el pool se limita
	// a una sola conexión para que todas las consultas compartan estado
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createSchema(db *sql.DB) error {
	// Crear tabla de usuarios si no existe
	createUsersTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		discord_webhook TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(createUsersTableSQL); err != nil {
		return err
	}

	// Crear tabla de portfolios
	createPortfoliosTableSQL := `
	CREATE TABLE IF NOT EXISTS portfolios (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		initial_balance REAL NOT NULL,
		current_balance REAL NOT NULL,
		is_default INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);`

	if _, err := db.Exec(createPortfoliosTableSQL); err != nil {
		return err
	}

	// Crear tabla de posiciones. Una posición por (portfolio, símbolo).
	createPositionsTableSQL := `
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		crypto_symbol TEXT NOT NULL,
		quantity REAL NOT NULL,
		average_buy_price REAL NOT NULL,
		current_price REAL DEFAULT 0,
		total_invested REAL DEFAULT 0,
		current_value REAL DEFAULT 0,
		profit_loss REAL DEFAULT 0,
		profit_loss_percent REAL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(portfolio_id, crypto_symbol),
		FOREIGN KEY(portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE
	);`

	if _, err := db.Exec(createPositionsTableSQL); err != nil {
		return err
	}

	// Crear tabla de transacciones. Registro inmutable de cada operación.
	createTransactionsTableSQL := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		crypto_symbol TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		total_amount REAL NOT NULL,
		fee REAL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		notes TEXT,
		FOREIGN KEY(portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE
	);`

	if _, err := db.Exec(createTransactionsTableSQL); err != nil {
		return err
	}

	// Crear tabla de precios alimentada por el colector
	createPricesTableSQL := `
	CREATE TABLE IF NOT EXISTS prices (
		id TEXT PRIMARY KEY,
		coin_id TEXT,
		symbol TEXT NOT NULL,
		name TEXT,
		price_usd REAL NOT NULL,
		volume_24h REAL DEFAULT 0,
		market_cap REAL DEFAULT 0,
		timestamp DATETIME NOT NULL
	);`

	if _, err := db.Exec(createPricesTableSQL); err != nil {
		return err
	}

	// Crear índice para búsqueda rápida del último precio por símbolo
	createPricesIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_prices_symbol_timestamp
	ON prices(symbol, timestamp);`

	if _, err := db.Exec(createPricesIndexSQL); err != nil {
		return err
	}

	// Crear tabla de alertas de precio
	createAlertsTableSQL := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		crypto_symbol TEXT NOT NULL,
		target_price REAL NOT NULL,
		alert_type TEXT NOT NULL,
		is_active INTEGER DEFAULT 1,
		triggered_at DATETIME,
		triggered_price REAL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	if _, err := db.Exec(createAlertsTableSQL); err != nil {
		return err
	}

	// Crear índice para las transacciones de un portfolio en orden cronológico
	createTransactionsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_timestamp
	ON transactions(portfolio_id, timestamp);`

	_, err := db.Exec(createTransactionsIndexSQL)
	return err
}
