package middleware

import (
	"net/http"

	"github.com/cryptopulse/api/internal/repository"
	"github.com/gin-gonic/gin"
)

// AdminHandler expone la administración de usuarios detrás de AdminAuth
type AdminHandler struct {
	users *repository.UserRepository
}

func NewAdminHandler(users *repository.UserRepository) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.users.GetAllUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener usuarios"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	userId := c.Param("id")

	user, err := h.users.GetUserById(userId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

func (h *AdminHandler) GetUserByEmail(c *gin.Context) {
	email := c.Param("email")

	user, err := h.users.GetUserByEmail(email)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userId := c.Param("id")

	if _, err := h.users.GetUserById(userId); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	if err := h.users.DeleteUser(userId); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al eliminar usuario"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Usuario eliminado"})
}
