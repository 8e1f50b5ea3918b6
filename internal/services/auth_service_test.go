package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func setupAuthConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
}

func TestAuthService_RegisterUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)
	ctx := context.Background()

	t.Run("successful registration stores a hash, not the password", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM users").
			WithArgs("austin", "austin@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("austin", "austin@example.com", sqlmock.AnyArg(), false).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

		user, err := service.RegisterUser(ctx, "austin", "Austin@Example.com", "password123", false)
		assert.NoError(t, err)
		assert.Equal(t, 1, user.ID)
		assert.Equal(t, "austin@example.com", user.Email)
		assert.False(t, user.IsAdmin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username or email is a conflict", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM users").
			WithArgs("austin", "other@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		_, err := service.RegisterUser(ctx, "austin", "other@example.com", "password123", false)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_LoginUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)
	ctx := context.Background()

	t.Run("successful login stamps last_login", func(t *testing.T) {
		hashedPassword, err := hashPassword("password123")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT id, username, email, password, is_admin, created_at").
			WithArgs("austin").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password", "is_admin", "created_at"}).
				AddRow(1, "austin", "austin@example.com", hashedPassword, true, time.Now()))
		mock.ExpectExec("UPDATE users SET last_login").
			WithArgs(sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := service.LoginUser(ctx, "austin", "password123")
		assert.NoError(t, err)
		assert.True(t, user.IsAdmin)
		assert.NotNil(t, user.LastLogin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password fails without touching last_login", func(t *testing.T) {
		hashedPassword, err := hashPassword("password123")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT id, username, email, password, is_admin, created_at").
			WithArgs("austin").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password", "is_admin", "created_at"}).
				AddRow(1, "austin", "austin@example.com", hashedPassword, true, time.Now()))

		_, err = service.LoginUser(ctx, "austin", "wrong-password")
		assert.ErrorIs(t, err, ErrAuth)
		// No UPDATE expectation declared: a failed login must not
		// stamp last_login.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user gets the same generic failure", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, username, email, password, is_admin, created_at").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password", "is_admin", "created_at"}))

		_, err := service.LoginUser(ctx, "ghost", "password123")
		assert.ErrorIs(t, err, ErrAuth)
		assert.Contains(t, err.Error(), "invalid username or password")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)
	ctx := context.Background()

	t.Run("replaces hash when current password verifies", func(t *testing.T) {
		hashedPassword, err := hashPassword("old-password")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT password FROM users").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"password"}).AddRow(hashedPassword))
		mock.ExpectExec("UPDATE users SET password").
			WithArgs(sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = service.ChangePassword(ctx, 1, "old-password", "new-password")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong current password", func(t *testing.T) {
		hashedPassword, err := hashPassword("old-password")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT password FROM users").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"password"}).AddRow(hashedPassword))

		err = service.ChangePassword(ctx, 1, "not-the-password", "new-password")
		assert.ErrorIs(t, err, ErrAuth)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_UserManagement(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)
	ctx := context.Background()

	t.Run("self-demote is forbidden", func(t *testing.T) {
		err := service.UpdateUserRole(ctx, 1, 1, false)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("self-delete is forbidden", func(t *testing.T) {
		err := service.DeleteUser(ctx, 1, 1)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("deleting a missing user", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").
			WithArgs(42).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.DeleteUser(ctx, 1, 42)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("role update on another account", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET is_admin").
			WithArgs(true, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.UpdateUserRole(ctx, 1, 2, true)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_HandleRegister_Bootstrap(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	t.Run("first account becomes admin", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT id FROM users").
			WithArgs("austin", "austin@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("austin", "austin@example.com", sqlmock.AnyArg(), true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

		body, _ := json.Marshal(RegisterRequest{
			Username: "austin",
			Email:    "austin@example.com",
			Password: "password123",
		})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		service.HandleRegister(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response AuthResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.True(t, response.User.IsAdmin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("anonymous registration is rejected once users exist", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		body, _ := json.Marshal(RegisterRequest{
			Username: "second",
			Email:    "second@example.com",
			Password: "password123",
		})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		service.HandleRegister(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()
		service.HandleRegister(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_HandleLogout(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	redisClient, redisMock := redismock.NewClientMock()
	service := NewAuthService(db, redisClient)

	redisMock.ExpectSet("blacklist:some-token", "1", 24*time.Hour).SetVal("OK")

	r := httptest.NewRequest("POST", "/auth/logout", nil)
	r.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	service.HandleLogout(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
