package middleware

import (
	"net/http"

	"github.com/cryptopulse/api/internal/repository"
	"github.com/cryptopulse/api/internal/services"
	"github.com/gin-gonic/gin"
)

// ProfileHandler maneja el perfil del usuario autenticado y la
// configuración de su webhook de Discord
type ProfileHandler struct {
	users *repository.UserRepository
}

func NewProfileHandler(users *repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, err := h.users.GetUserById(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                 user.ID,
		"email":              user.Email,
		"name":               user.Name,
		"created_at":         user.CreatedAt,
		"discord_configured": user.DiscordWebhook != "",
	})
}

// SetDiscordWebhook guarda el webhook de Discord del usuario. La URL se
// valida por formato antes de persistirla.
func (h *ProfileHandler) SetDiscordWebhook(c *gin.Context) {
	var req struct {
		WebhookURL string `json:"webhook_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !services.ValidateDiscordWebhookURL(req.WebhookURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL de webhook de Discord inválida"})
		return
	}

	if err := h.users.UpdateDiscordWebhook(c.GetString("userId"), req.WebhookURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al guardar el webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook de Discord configurado"})
}

func (h *ProfileHandler) DeleteDiscordWebhook(c *gin.Context) {
	if err := h.users.UpdateDiscordWebhook(c.GetString("userId"), ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al eliminar el webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook de Discord eliminado"})
}

// TestDiscordWebhook manda un mensaje de prueba al webhook guardado
func (h *ProfileHandler) TestDiscordWebhook(c *gin.Context) {
	user, err := h.users.GetUserById(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	if user.DiscordWebhook == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No hay webhook de Discord configurado"})
		return
	}

	if err := services.TestDiscordWebhook(user.DiscordWebhook); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "No se pudo enviar el mensaje de prueba"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mensaje de prueba enviado"})
}
