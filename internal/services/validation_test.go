package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid sale request", func(t *testing.T) {
		err := vh.ValidateStruct(&RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      1,
			UnitPrice:     799.99,
			PaymentMethod: "cash",
		})
		assert.NoError(t, err)
	})

	t.Run("payment method outside the closed set", func(t *testing.T) {
		err := vh.ValidateStruct(&RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      1,
			UnitPrice:     799.99,
			PaymentMethod: "cheque",
		})
		assert.Error(t, err)
	})

	t.Run("zero price phone", func(t *testing.T) {
		err := vh.ValidateStruct(&AddPhoneRequest{
			Model: "Pixel 9",
			Brand: "Google",
			Price: 0,
		})
		assert.Error(t, err)
	})
}

func TestSendErrorResponse(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("includes validation details", func(t *testing.T) {
		err := vh.ValidateStruct(&AddPhoneRequest{Brand: "Google", Price: 10})
		assert.Error(t, err)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "Model")
	})

	t.Run("plain error has no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Not found", http.StatusNotFound, nil)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Details)
	})
}

func TestSendDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{validationError("bad input"), http.StatusBadRequest},
		{notFoundError("missing"), http.StatusNotFound},
		{conflictError("duplicate"), http.StatusConflict},
		{insufficientStockError("Galaxy S24", 11, 10), http.StatusConflict},
		{authError("bad credentials"), http.StatusUnauthorized},
		{storeError(errors.New("connection refused")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		SendDomainError(w, tc.err)
		assert.Equal(t, tc.status, w.Code)
	}

	t.Run("store failures are reported generically", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendDomainError(w, storeError(errors.New("password=hunter2 connection string")))

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "An internal error occurred", resp.Error)
	})
}
