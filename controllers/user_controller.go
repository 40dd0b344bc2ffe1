package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/middleware"
	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/rychle-ryce/rychle-ryce-api/services"
	"github.com/rychle-ryce/rychle-ryce-api/utils"
)

// RegisterRequest represents the request body for registering a new user
type RegisterRequest struct {
	FirstName       string   `json:"first_name" binding:"required"`
	LastName        string   `json:"last_name" binding:"required"`
	Phone           string   `json:"phone" binding:"required"`
	Email           string   `json:"email" binding:"required,email"`
	Password        string   `json:"password" binding:"required,min=8"`
	ConfirmPassword string   `json:"confirm_password" binding:"required,eqfield=Password"`
	Role            string   `json:"role" binding:"required,oneof=customer worker"`
	Tools           []string `json:"tools"`
	BirthDate       *string  `json:"birth_date"` // YYYY-MM-DD
	AvailableDays   []string `json:"available_days"`
	NeedsHelp       bool     `json:"needs_help"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/v1/register - creates a new customer or worker
// account and sends the verification email
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	// Workers must fill in their profile up front so the admin can review it
	var birthDate *time.Time
	if req.Role == string(models.RoleWorker) {
		if len(req.Tools) == 0 || req.BirthDate == nil || len(req.AvailableDays) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Workers must provide tools, birth_date and available_days",
				},
			})
			return
		}

		parsed, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "birth_date must be in YYYY-MM-DD format",
				},
			})
			return
		}
		birthDate = &parsed
	}

	db := config.GetDB()

	// Reject duplicate emails before hashing anything
	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMAIL_EXISTS",
				"message": "An account with this email already exists",
			},
		})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to process password",
			},
		})
		return
	}

	user := models.User{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		Email:             req.Email,
		PasswordHash:      passwordHash,
		Role:              models.Role(req.Role),
		VerificationToken: uuid.NewString(),
		Tools:             req.Tools,
		BirthDate:         birthDate,
		AvailableDays:     req.AvailableDays,
		NeedsHelp:         req.NeedsHelp,
	}

	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create user",
			},
		})
		return
	}

	// Email delivery must not delay or fail the registration
	emailService := services.GetEmailService()
	go func(toEmail, name, token string) {
		if err := emailService.SendVerificationEmail(toEmail, name, token); err != nil {
			log.Printf("warning: failed to send verification email to %s: %v", toEmail, err)
		}
	}(user.Email, user.FirstName, user.VerificationToken)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
		"message": "Registration successful, please verify your email",
	})
}

// VerifyEmail handles GET /api/v1/verify-email/:token - confirms the email
// address behind a verification token
func VerifyEmail(c *gin.Context) {
	token := c.Param("token")

	db := config.GetDB()
	var user models.User
	if err := db.Where("verification_token = ? AND email_verified = ?", token, false).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TOKEN",
				"message": "Invalid or already used verification token",
			},
		})
		return
	}

	updates := map[string]interface{}{
		"email_verified":     true,
		"verification_token": "",
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to verify email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified, you can now log in",
	})
}

// Login handles POST /api/v1/login - verifies credentials and issues a
// session token
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid email or password",
			},
		})
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid email or password",
			},
		})
		return
	}

	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMAIL_NOT_VERIFIED",
				"message": "Please verify your email before logging in",
			},
		})
		return
	}

	if user.Role == models.RoleWorker && !user.IsApproved {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORKER_NOT_APPROVED",
				"message": "Your worker account is awaiting admin approval",
			},
		})
		return
	}

	token, err := middleware.GenerateToken(config.GetConfig(), &user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to issue session token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token": token,
			"user":  user,
		},
	})
}

// Logout handles POST /api/v1/logout - session tokens are stateless, the
// client discards the token
func Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}

// GetMyProfile handles GET /api/v1/me - returns the authenticated user's
// own profile
func GetMyProfile(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
