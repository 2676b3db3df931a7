package main

import (
	"log"
	"os"
	"time"

	"github.com/cryptopulse/api/internal/database"
	"github.com/cryptopulse/api/internal/middleware"
	"github.com/cryptopulse/api/internal/repository"
	routes "github.com/cryptopulse/api/internal/server"
	"github.com/cryptopulse/api/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Cargar variables de entorno
	if err := godotenv.Load(); err != nil {
		log.Printf("No se pudo cargar el archivo .env: %v", err)
	}

	// Crear el router de Gin
	router := gin.Default()

	// Configurar CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Admin-Key"}
	config.AllowCredentials = true
	config.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(config))

	// Inicializar base de datos
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "cryptopulse.db"
	}
	db, err := database.New(dbPath)
	if err != nil {
		log.Fatalf("Error al inicializar la base de datos: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Error al ejecutar migraciones: %v", err)
	}

	// Repositorios. Todos los caminos que escriben o revalúan un
	// portfolio comparten el mismo registro de locks.
	locks := repository.NewPortfolioLocks()
	userRepo := repository.NewUserRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	positionRepo := repository.NewPositionRepository(db, priceRepo)
	alertRepo := repository.NewAlertRepository(db)
	executor := repository.NewTradeExecutor(db, portfolioRepo, positionRepo, priceRepo, locks)
	statsRepo := repository.NewStatsRepository(db, portfolioRepo, positionRepo, locks)

	// Hub de websockets para el stream de precios
	hub := services.NewPriceHub()
	go hub.Run()

	// Colector de precios (cada 60 segundos)
	collector := services.NewPriceCollector(60*time.Second, priceRepo, hub)
	collector.Start()
	defer collector.Stop()

	// Verificador de alertas (cada 30 segundos)
	checker := services.NewAlertChecker(30*time.Second, alertRepo, priceRepo, userRepo)
	checker.Start()
	defer checker.Stop()

	// Handlers
	handlers := &routes.Handlers{
		Auth:      middleware.NewAuthHandler(userRepo),
		Users:     middleware.NewUserHandler(userRepo),
		Profile:   middleware.NewProfileHandler(userRepo),
		Admin:     middleware.NewAdminHandler(userRepo),
		Clerk:     middleware.NewClerkHandler(userRepo),
		Prices:    middleware.NewPriceHandler(priceRepo, hub, collector),
		Portfolio: middleware.NewPortfolioHandler(portfolioRepo, executor, statsRepo, locks),
		Alerts:    middleware.NewAlertHandler(alertRepo, checker),
	}

	// Configurar las rutas
	routes.RegisterRoutes(router, handlers)

	// Iniciar el servidor
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Error al iniciar el servidor: %v", err)
	}
}
