package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cryptopulse/api/internal/models"
)

// Colores de los embeds de Discord (decimal)
const (
	discordColorGreen = 0x00FF00
	discordColorRed   = 0xFF0000
	discordColorBlue  = 0x3498DB
)

var discordClient = &http.Client{Timeout: 10 * time.Second}

// ValidateDiscordWebhookURL verifica el formato de una URL de webhook de Discord
func ValidateDiscordWebhookURL(url string) bool {
	if url == "" {
		return false
	}

	validPrefixes := []string{
		"https://discord.com/api/webhooks/",
		"https://discordapp.com/api/webhooks/",
		"https://canary.discord.com/api/webhooks/",
		"https://ptb.discord.com/api/webhooks/",
	}

	for _, prefix := range validPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

func postDiscordEmbed(webhookURL string, embed map[string]any) error {
	payload := map[string]any{
		"embeds": []map[string]any{embed},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := discordClient.Post(webhookURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord devolvió estado %d", resp.StatusCode)
	}
	return nil
}

// SendDiscordAlert envía la notificación de una alerta disparada al
// webhook del usuario
func SendDiscordAlert(webhookURL string, alert *models.Alert, currentPrice float64) error {
	if !ValidateDiscordWebhookURL(webhookURL) {
		return fmt.Errorf("url de webhook inválida")
	}

	emoji := "📈"
	color := discordColorGreen
	typeLabel := "Por encima de"
	if alert.AlertType == models.AlertTypeBelow {
		emoji = "📉"
		color = discordColorRed
		typeLabel = "Por debajo de"
	}

	embed := map[string]any{
		"title":       fmt.Sprintf("🔔 Alerta de precio - %s", alert.CryptoSymbol),
		"description": fmt.Sprintf("%s Se disparó la alerta **%s** $%.2f", emoji, typeLabel, alert.TargetPrice),
		"color":       color,
		"fields": []map[string]any{
			{"name": "💰 Crypto", "value": fmt.Sprintf("**%s**", alert.CryptoSymbol), "inline": true},
			{"name": "🎯 Precio objetivo", "value": fmt.Sprintf("**$%.2f**", alert.TargetPrice), "inline": true},
			{"name": "💵 Precio actual", "value": fmt.Sprintf("**$%.2f**", currentPrice), "inline": true},
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	return postDiscordEmbed(webhookURL, embed)
}

// TestDiscordWebhook manda un mensaje de prueba para validar la configuración
func TestDiscordWebhook(webhookURL string) error {
	if !ValidateDiscordWebhookURL(webhookURL) {
		return fmt.Errorf("url de webhook inválida")
	}

	embed := map[string]any{
		"title":       "✅ Webhook configurado",
		"description": "Las alertas de precio van a llegar a este canal.",
		"color":       discordColorBlue,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	return postDiscordEmbed(webhookURL, embed)
}
