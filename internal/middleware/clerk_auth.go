package middleware

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/cryptopulse/api/internal/models"
	"github.com/cryptopulse/api/internal/repository"
	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
)

// ClerkHandler integra Clerk como proveedor de identidad alternativo:
// valida sus JWT y sincroniza altas, bajas y cambios de usuarios vía
// webhooks firmados con Svix.
type ClerkHandler struct {
	users      *repository.UserRepository
	userClient *user.Client
}

func NewClerkHandler(users *repository.UserRepository) *ClerkHandler {
	h := &ClerkHandler{users: users}

	secretKey := os.Getenv("CLERK_SECRET_KEY")
	if secretKey == "" {
		log.Printf("CLERK_SECRET_KEY no configurada; las funciones de Clerk quedan deshabilitadas")
		return h
	}

	clerk.SetKey(secretKey)

	config := &clerk.ClientConfig{}
	config.Key = &secretKey
	h.userClient = user.NewClient(config)

	return h
}

// ClerkAuthMiddleware valida un JWT emitido por Clerk y deja el ID del
// usuario en el contexto, igual que AuthMiddleware para los tokens propios
func (h *ClerkHandler) ClerkAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.userClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Autenticación con Clerk no disponible"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token no proporcionado"})
			c.Abort()
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		claims, err := clerkjwt.Verify(c.Request.Context(), &clerkjwt.VerifyParams{
			Token: tokenString,
		})
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
			c.Abort()
			return
		}

		if claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
			c.Abort()
			return
		}

		c.Set("userId", claims.Subject)
		c.Next()
	}
}

// Webhook procesa los eventos de usuarios de Clerk. La firma se verifica
// con Svix antes de tocar la base.
func (h *ClerkHandler) Webhook(c *gin.Context) {
	webhookSecret := os.Getenv("CLERK_WEBHOOK_SECRET")
	if webhookSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook no configurado"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer el cuerpo de la petición"})
		return
	}

	wh, err := svix.NewWebhook(webhookSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al inicializar la verificación del webhook"})
		return
	}

	if err := wh.Verify(body, c.Request.Header); err != nil {
		log.Printf("Firma de webhook inválida: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Firma de webhook inválida"})
		return
	}

	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload JSON inválido"})
		return
	}

	log.Printf("Webhook de Clerk recibido: %s", event.Type)

	switch event.Type {
	case "user.created":
		h.handleUserCreated(c, event.Data)
	case "user.updated":
		h.handleUserUpdated(c, event.Data)
	case "user.deleted":
		h.handleUserDeleted(c, event.Data)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Evento recibido sin acción"})
	}
}

// clerkUserPayload es el subconjunto del payload de Clerk que interesa
type clerkUserPayload struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (p *clerkUserPayload) primaryEmail() string {
	for _, addr := range p.EmailAddresses {
		if addr.EmailAddress != "" {
			return addr.EmailAddress
		}
	}
	return ""
}

func (p *clerkUserPayload) fullName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		if email := p.primaryEmail(); email != "" {
			name = strings.Split(email, "@")[0]
		}
	}
	return name
}

func (h *ClerkHandler) handleUserCreated(c *gin.Context, data json.RawMessage) {
	var payload clerkUserPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de usuario inválidos"})
		return
	}

	email := payload.primaryEmail()
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El usuario no tiene email"})
		return
	}

	// Los usuarios de Clerk no tienen contraseña local
	newUser := &models.User{
		ID:        payload.ID,
		Email:     email,
		Name:      payload.fullName(),
		Password:  "",
		CreatedAt: time.Now().UTC(),
	}

	if err := h.users.CreateUser(newUser); err != nil {
		log.Printf("Error al crear usuario de Clerk %s: %v", payload.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al crear usuario"})
		return
	}

	log.Printf("Usuario de Clerk creado: %s (%s)", payload.ID, email)
	c.JSON(http.StatusOK, gin.H{"message": "Usuario creado"})
}

func (h *ClerkHandler) handleUserUpdated(c *gin.Context, data json.RawMessage) {
	var payload clerkUserPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de usuario inválidos"})
		return
	}

	email := payload.primaryEmail()
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El usuario no tiene email"})
		return
	}

	updated := &models.User{
		ID:    payload.ID,
		Email: email,
		Name:  payload.fullName(),
	}

	if err := h.users.UpdateUser(updated); err != nil {
		log.Printf("Error al actualizar usuario de Clerk %s: %v", payload.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al actualizar usuario"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Usuario actualizado"})
}

func (h *ClerkHandler) handleUserDeleted(c *gin.Context, data json.RawMessage) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de usuario inválidos"})
		return
	}

	if err := h.users.DeleteUser(payload.ID); err != nil {
		log.Printf("Error al eliminar usuario de Clerk %s: %v", payload.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al eliminar usuario"})
		return
	}

	log.Printf("Usuario de Clerk eliminado: %s", payload.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Usuario eliminado"})
}
