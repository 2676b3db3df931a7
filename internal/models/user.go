package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // El "-" evita que se serialice en JSON
	Name           string    `json:"name"`
	DiscordWebhook string    `json:"discord_webhook,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GenerateUUID - Función auxiliar para generar los IDs de las entidades
func GenerateUUID() string {
	return uuid.NewString()
}
