package database

import (
	"database/sql"
	"log"
)

// RunMigrations ejecuta las migraciones necesarias para actualizar el esquema de la base de datos
func RunMigrations(db *sql.DB) error {
	log.Println("Ejecutando migraciones de la base de datos...")

	// Migración para añadir el campo discord_webhook a la tabla users
	addDiscordWebhookColumnSQL := `
	ALTER TABLE users ADD COLUMN discord_webhook TEXT DEFAULT '';
	`

	if _, err := db.Exec(addDiscordWebhookColumnSQL); err != nil {
		// No retornamos error porque SQLite puede dar error si la columna ya existe
		// y queremos que la migración continúe
		log.Printf("Columna discord_webhook ya existe: %v", err)
	} else {
		log.Println("Columna discord_webhook añadida correctamente")
	}

	// Migración para añadir el campo triggered_price a la tabla alerts
	addTriggeredPriceColumnSQL := `
	ALTER TABLE alerts ADD COLUMN triggered_price REAL DEFAULT 0;
	`

	if _, err := db.Exec(addTriggeredPriceColumnSQL); err != nil {
		log.Printf("Columna triggered_price ya existe: %v", err)
	} else {
		log.Println("Columna triggered_price añadida correctamente")
	}

	return nil
}
