package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
	isAdminKey  contextKey = "isAdmin"
)

// Identity is the authenticated caller, carried explicitly in the
// request context rather than in any process-wide session state.
type Identity struct {
	UserID   int
	Username string
	IsAdmin  bool
}

var blacklist *redis.Client

// InitAuthMiddleware wires the optional Redis client used to honor
// logged-out tokens.
func InitAuthMiddleware(redisClient *redis.Client) {
	blacklist = redisClient
}

// AuthMiddleware validates the Bearer token and stores the caller's
// identity in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]

		if blacklist != nil {
			key := fmt.Sprintf("blacklist:%s", token)
			if exists, err := blacklist.Exists(r.Context(), key).Result(); err == nil && exists > 0 {
				http.Error(w, "Token has been revoked", http.StatusUnauthorized)
				return
			}
		}

		identity, err := validateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, identity.UserID)
		ctx = context.WithValue(ctx, usernameKey, identity.Username)
		ctx = context.WithValue(ctx, isAdminKey, identity.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth populates the caller identity when a valid Bearer token
// is present but lets anonymous requests through. Used on registration,
// which is public only until the first account exists.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			if identity, err := validateToken(parts[1]); err == nil {
				ctx := context.WithValue(r.Context(), userIDKey, identity.UserID)
				ctx = context.WithValue(ctx, usernameKey, identity.Username)
				ctx = context.WithValue(ctx, isAdminKey, identity.IsAdmin)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-admin callers. Must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).IsAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the caller identity set by AuthMiddleware.
// The zero Identity means the request was not authenticated.
func IdentityFromContext(ctx context.Context) Identity {
	var id Identity
	if v, ok := ctx.Value(userIDKey).(int); ok {
		id.UserID = v
	}
	if v, ok := ctx.Value(usernameKey).(string); ok {
		id.Username = v
	}
	if v, ok := ctx.Value(isAdminKey).(bool); ok {
		id.IsAdmin = v
	}
	return id
}

func validateToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("unexpected claims type")
	}

	var id Identity
	if v, ok := claims["user_id"].(float64); ok {
		id.UserID = int(v)
	}
	if v, ok := claims["username"].(string); ok {
		id.Username = v
	}
	if v, ok := claims["is_admin"].(bool); ok {
		id.IsAdmin = v
	}
	return id, nil
}
