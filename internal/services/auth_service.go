package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/phoneshop/backend/internal/middleware"
	"github.com/phoneshop/backend/internal/models"
)

// AuthService owns the users table: registration, login, password
// changes and admin user management. Exactly two capability levels
// exist, admin and regular.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50" example:"austin"`
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
	IsAdmin  bool   `json:"is_admin" example:"false"`
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"austin"`
	Password string `json:"password" validate:"required" example:"password123"`
}

// ChangePasswordRequest represents the change-password payload
// @Description Change password request structure
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// UpdateRoleRequest represents the role change payload
// @Description Role update request structure
type UpdateRoleRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	User  models.User `json:"user"`                                                    // Identity descriptor
}

// RegisterUser creates a user with a salted argon2 hash. Username and
// email are each globally unique; either colliding is a conflict.
func (s *AuthService) RegisterUser(ctx context.Context, username, email, password string, isAdmin bool) (*models.User, error) {
	var existingID int
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1 OR email = $2`,
		username, strings.ToLower(email)).Scan(&existingID)
	if err == nil {
		return nil, conflictError("username or email already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, storeError(err)
	}

	user := &models.User{
		Username: username,
		Email:    strings.ToLower(email),
		IsAdmin:  isAdmin,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password, is_admin, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`,
		user.Username, user.Email, hashedPassword, user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// LoginUser verifies credentials and stamps last_login. The failure
// reason is deliberately the same for unknown user and wrong password,
// and a failed login never touches last_login.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (*models.User, error) {
	var (
		user           models.User
		hashedPassword string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password, is_admin, created_at
		FROM users WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username, &user.Email, &hashedPassword, &user.IsAdmin, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authError("invalid username or password")
	}
	if err != nil {
		return nil, storeError(err)
	}

	if !verifyPassword(password, hashedPassword) {
		return nil, authError("invalid username or password")
	}

	now := time.Now()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`, now, user.ID); err != nil {
		return nil, storeError(err)
	}
	user.LastLogin = &now
	return &user, nil
}

// ChangePassword replaces the stored hash after the current password
// verifies.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	var hashedPassword string
	err := s.db.QueryRowContext(ctx,
		`SELECT password FROM users WHERE id = $1`, userID).Scan(&hashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError("user %d not found", userID)
	}
	if err != nil {
		return storeError(err)
	}

	if !verifyPassword(currentPassword, hashedPassword) {
		return authError("current password is incorrect")
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		return storeError(err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`, newHash, userID); err != nil {
		return storeError(err)
	}
	return nil
}

// UserCount reports how many accounts exist. Zero means the admin
// bootstrap has not run yet.
func (s *AuthService) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// ListUsers returns all accounts, oldest first.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, is_admin, last_login, created_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.IsAdmin, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, storeError(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

// UpdateUserRole flips the admin flag on another account. Admins cannot
// demote themselves, so at least one admin always remains.
func (s *AuthService) UpdateUserRole(ctx context.Context, actorID, userID int, isAdmin bool) error {
	if actorID == userID && !isAdmin {
		return validationError("cannot revoke your own admin access")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $1 WHERE id = $2`, isAdmin, userID)
	if err != nil {
		return storeError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeError(err)
	}
	if affected == 0 {
		return notFoundError("user %d not found", userID)
	}
	return nil
}

// DeleteUser removes another account. Self-delete is forbidden.
func (s *AuthService) DeleteUser(ctx context.Context, actorID, userID int) error {
	if actorID == userID {
		return validationError("cannot delete your own account")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return storeError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeError(err)
	}
	if affected == 0 {
		return notFoundError("user %d not found", userID)
	}
	return nil
}

// HandleRegister handles user registration
// @Summary Register a new user
// @Description Create an account. The first account ever created becomes the admin; after that only admins may register users.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (s *AuthService) HandleRegister(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	count, err := s.UserCount(r.Context())
	if err != nil {
		log.Printf("[AUTH] User count failed: %v", err)
		SendDomainError(w, err)
		return
	}

	isAdmin := req.IsAdmin
	if count == 0 {
		// Bootstrap: the very first account is always the admin.
		isAdmin = true
	} else if !middleware.IdentityFromContext(r.Context()).IsAdmin {
		SendErrorResponse(w, "Admin access required", http.StatusForbidden, nil)
		return
	}

	user, err := s.RegisterUser(r.Context(), req.Username, req.Email, req.Password, isAdmin)
	if err != nil {
		log.Printf("[AUTH] Registration failed for %s: %v", req.Username, err)
		SendDomainError(w, err)
		return
	}

	token, err := generateJWT(user)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] User created successfully - ID: %d, Username: %s, Admin: %v", user.ID, user.Username, user.IsAdmin)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: *user})
}

// HandleLogin handles user authentication
// @Summary Login user
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (s *AuthService) HandleLogin(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, err := s.LoginUser(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("[AUTH] Login failed for %s: %v", req.Username, err)
		SendDomainError(w, err)
		return
	}

	token, err := generateJWT(user)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: *user})
}

// HandleLogout handles user logout
// @Summary Logout user
// @Description Logout user and blacklist token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) HandleLogout(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// HandleChangePassword handles password changes
// @Summary Change password
// @Description Replace the caller's password after verifying the current one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Change password request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/change-password [post]
func (s *AuthService) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	if err := s.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		log.Printf("[AUTH] Password change failed for user %d: %v", identity.UserID, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[AUTH] Password changed for user %d", identity.UserID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Password changed successfully"})
}

// HandleListUsers handles user listing
// @Summary List users
// @Description Get all user accounts (admin only)
// @Tags users
// @Produce json
// @Success 200 {object} object{users=[]models.User,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /users [get]
func (s *AuthService) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ListUsers(r.Context())
	if err != nil {
		log.Printf("[AUTH] User listing failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// HandleUpdateRole handles admin flag changes
// @Summary Update user role
// @Description Grant or revoke admin access (admin only, self-demote forbidden)
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateRoleRequest true "Role update request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/role [put]
func (s *AuthService) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	var req UpdateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	if err := s.UpdateUserRole(r.Context(), identity.UserID, userID, req.IsAdmin); err != nil {
		log.Printf("[AUTH] Role update failed for user %d: %v", userID, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[AUTH] Role updated for user %d (admin=%v) by %d", userID, req.IsAdmin, identity.UserID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "User role updated successfully"})
}

// HandleDeleteUser handles account deletion
// @Summary Delete a user
// @Description Delete another user's account (admin only, self-delete forbidden)
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (s *AuthService) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	if err := s.DeleteUser(r.Context(), identity.UserID, userID); err != nil {
		log.Printf("[AUTH] Delete failed for user %d: %v", userID, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[AUTH] User %d deleted by %d", userID, identity.UserID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "User deleted successfully"})
}

func generateJWT(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"exp":      time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
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
