package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/controllers"
	"github.com/rychle-ryce/rychle-ryce-api/middleware"
	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/rychle-ryce/rychle-ryce-api/services"
	"github.com/rychle-ryce/rychle-ryce-api/utils"
)

func main() {
	log.Println("Starting Rychlé Rýče API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.Rating{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Seed the admin account from the environment
	if err := seedAdmin(cfg); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// Initialize services
	if _, err := services.InitS3Service(); err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitPhotoService(services.GetS3Service())
	services.InitEstimationService(cfg)
	services.InitEmailService(cfg)
	services.InitOrderLifecycle(db, services.GetPhotoService(), services.GetEstimationService())

	router := setupRouter(cfg)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter creates and configures the router with all API routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Public identity endpoints
		v1.POST("/register", controllers.Register)
		v1.GET("/verify-email/:token", controllers.VerifyEmail)
		v1.POST("/login", controllers.Login)

		// Authenticated endpoints
		auth := v1.Group("")
		auth.Use(middleware.RequireAuth(cfg))
		{
			auth.POST("/logout", controllers.Logout)
			auth.GET("/me", controllers.GetMyProfile)

			auth.POST("/orders", controllers.CreateOrder)
			auth.GET("/orders", controllers.ListOrders)
			auth.GET("/orders/:id", controllers.GetOrder)
			auth.GET("/orders/:id/photo", controllers.GetOrderPhoto)
			auth.POST("/orders/:id/take", controllers.TakeOrder)
			auth.POST("/orders/:id/cancel", controllers.CancelOrder)
			auth.PUT("/orders/:id/price", controllers.UpdateOrderPrice)
			auth.POST("/orders/:id/complete", controllers.CompleteOrder)
			auth.POST("/orders/:id/pay", controllers.PayOrder)
			auth.DELETE("/orders/:id", controllers.DeleteOrder)

			auth.POST("/orders/:id/rate", controllers.RateOrder)
			auth.GET("/users/:id/ratings", controllers.GetUserRatings)

			// Admin endpoints
			admin := auth.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/users", controllers.ListUsers)
				admin.GET("/users/:id", controllers.GetUser)
				admin.DELETE("/users/:id", controllers.DeleteUser)
				admin.GET("/workers", controllers.ListWorkers)
				admin.PUT("/workers/:id/approve", controllers.ApproveWorker)
				admin.GET("/statistics", controllers.GetStatistics)
			}
		}
	}

	return router
}

// seedAdmin ensures the admin account from ADMIN_EMAIL/ADMIN_PASSWORD
// exists. Without these variables no admin is created.
func seedAdmin(cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	db := config.GetDB()
	var existing models.User
	if err := db.Where("email = ?", cfg.AdminEmail).First(&existing).Error; err == nil {
		return nil
	}

	passwordHash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		FirstName:     "Admin",
		LastName:      "Rychlé Rýče",
		Phone:         "",
		Email:         cfg.AdminEmail,
		PasswordHash:  passwordHash,
		Role:          models.RoleAdmin,
		EmailVerified: true,
		IsApproved:    true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Seeded admin account %s", cfg.AdminEmail)
	return nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Rychlé Rýče API is running",
	})
}
