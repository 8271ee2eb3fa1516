package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

// AuthService issues sessions. The wallet core itself only consumes the
// resolved {userID, role} pair from the auth middleware.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *LedgerService
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
	Name     string `json:"name" validate:"required,min=2" example:"John Doe"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string         `json:"token"`
	User  map[string]any `json:"user"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		ledger:    ledger,
		validator: validator.New(),
	}
}

// Register handles user registration
// @Summary Register a new player
// @Description Create a player account with a zero-balance wallet
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, req.Email).Scan(&exists); err != nil {
		SendErrorResponse(w, "Registration failed", http.StatusInternalServerError, nil)
		return
	}
	if exists {
		SendErrorResponse(w, "Email already registered", http.StatusConflict, nil)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		SendErrorResponse(w, "Registration failed", http.StatusInternalServerError, nil)
		return
	}

	userID := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO users (id, email, name, password, role, balance, total_wagered, wager_requirement, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'user', 0, 0, 0, false, $5, $5)`,
		userID, req.Email, req.Name, hashedPassword, time.Now())
	if err != nil {
		log.Printf("[AUTH] Registration insert failed: %v", err)
		SendErrorResponse(w, "Registration failed", http.StatusInternalServerError, nil)
		return
	}

	token, err := generateJWT(userID, "user")
	if err != nil {
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registered user %s", userID)
	SendJSON(w, http.StatusOK, AuthResponse{
		Token: token,
		User: map[string]any{
			"id":    userID,
			"email": req.Email,
			"name":  req.Name,
			"role":  "user",
		},
	})
}

// Login handles user login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var userID, name, role, hashedPassword string
	err := s.db.QueryRow(`SELECT id, name, role, password FROM users WHERE email = $1`, req.Email).
		Scan(&userID, &name, &role, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] User not found for email: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(userID, role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %s: %v", userID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	s.db.Exec(`UPDATE users SET last_login = $1 WHERE id = $2`, time.Now(), userID)

	log.Printf("[AUTH] Login successful for user %s", userID)
	SendJSON(w, http.StatusOK, AuthResponse{
		Token: token,
		User: map[string]any{
			"id":    userID,
			"email": req.Email,
			"name":  name,
			"role":  role,
		},
	})
}

// Logout handles user logout
// @Summary Logout and blacklist the token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// GetBalance handles GET /user/balance
// @Summary Current wallet state for the caller
// @Description Balance plus wagering progress; clients refresh this after every mutating call instead of caching balances
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /user/balance [get]
func (s *AuthService) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	account, err := s.ledger.GetAccount(r.Context(), userID)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	remaining := account.WagerRequirement - account.TotalWagered
	if remaining < 0 {
		remaining = 0
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"balance":           RupeesFromPaise(account.Balance),
		"total_wagered":     RupeesFromPaise(account.TotalWagered),
		"wager_requirement": RupeesFromPaise(account.WagerRequirement),
		"wager_remaining":   RupeesFromPaise(remaining),
		"locked":            account.Locked,
	})
}

func generateJWT(userID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
