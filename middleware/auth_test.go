package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

func testUser() *models.User {
	return &models.User{
		ID:    42,
		Email: "worker@example.com",
		Role:  models.RoleWorker,
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken(cfg, testUser())
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseToken(cfg, token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleWorker, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testConfig(), testUser())
	assert.NoError(t, err)

	_, err = ParseToken(&config.Config{JWTSecret: "other-secret"}, token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	cfg := testConfig()

	claims := &Claims{
		UserID: 42,
		Role:   models.RoleWorker,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	assert.NoError(t, err)

	_, err = ParseToken(cfg, token)
	assert.Error(t, err)
}

func TestParseToken_WrongSigningMethod(t *testing.T) {
	cfg := testConfig()

	// An unsigned token must be rejected even though it carries valid claims
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 42}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	assert.NoError(t, err)

	_, err = ParseToken(cfg, token)
	assert.Error(t, err)
}

func setupAuthTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAuth(cfg), func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		role, err := GetUserRole(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user_id": userID, "role": role})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	cfg := testConfig()
	validToken, err := GenerateToken(cfg, testUser())
	assert.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "Valid bearer token",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong scheme",
			authHeader:     "Basic " + validToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage token",
			authHeader:     "Bearer not-a-token",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthTestRouter(cfg)

			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var response map[string]interface{}
				err := json.Unmarshal(w.Body.Bytes(), &response)
				assert.NoError(t, err)
				assert.Equal(t, float64(42), response["user_id"])
				assert.Equal(t, "worker", response["role"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	cfg := testConfig()
	gin.SetMode(gin.TestMode)

	workerToken, err := GenerateToken(cfg, testUser())
	assert.NoError(t, err)
	adminToken, err := GenerateToken(cfg, &models.User{ID: 1, Role: models.RoleAdmin})
	assert.NoError(t, err)

	router := gin.New()
	router.GET("/admin-only", RequireAuth(cfg), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	// Admin passes
	req, _ := http.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Worker is rejected
	req, _ = http.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+workerToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "FORBIDDEN", errorData["code"])
}

func TestGetUserID_MissingContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetUserID(c)
	assert.Error(t, err)

	_, err = GetUserRole(c)
	assert.Error(t, err)
}
