package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/phoneshop/backend/internal/models"
)

func phoneRows(id int, model, brand string, price float64, quantity int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "model", "brand", "price", "quantity", "last_updated"}).
		AddRow(id, model, brand, price, quantity, time.Now())
}

func TestInventoryService_RecordSale(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db)
	ctx := context.Background()

	t.Run("successful sale decrements stock and computes total", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Galaxy S24").
			WillReturnRows(phoneRows(1, "Galaxy S24", "Samsung", 100, 10))
		mock.ExpectQuery("INSERT INTO sales").
			WithArgs(sqlmock.AnyArg(), "Galaxy S24", 4, 100.0, 400.0, "cash", "", "", "", "clerk").
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_date"}).AddRow(7, time.Now()))
		mock.ExpectExec("UPDATE phones SET quantity").
			WithArgs(6, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs("Galaxy S24", models.TxSale, -4, 10, 6, "clerk", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		sale, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      4,
			UnitPrice:     100,
			PaymentMethod: models.PaymentCash,
		})
		assert.NoError(t, err)
		assert.Equal(t, 400.0, sale.TotalAmount)
		assert.Equal(t, 4, sale.QuantitySold)
		assert.NotEmpty(t, sale.ReceiptID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient stock fails and writes nothing", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Galaxy S24").
			WillReturnRows(phoneRows(1, "Galaxy S24", "Samsung", 100, 10))
		mock.ExpectRollback()

		sale, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      11,
			UnitPrice:     100,
			PaymentMethod: models.PaymentCash,
		})
		assert.Nil(t, sale)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown model", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Nokia 3310").
			WillReturnRows(sqlmock.NewRows([]string{"id", "model", "brand", "price", "quantity", "last_updated"}))
		mock.ExpectRollback()

		_, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Nokia 3310",
			Quantity:      1,
			UnitPrice:     50,
			PaymentMethod: models.PaymentCash,
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when sale insert fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Galaxy S24").
			WillReturnRows(phoneRows(1, "Galaxy S24", "Samsung", 100, 10))
		mock.ExpectQuery("INSERT INTO sales").
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      2,
			UnitPrice:     100,
			PaymentMethod: models.PaymentCash,
		})
		assert.ErrorIs(t, err, ErrStore)
		// No UPDATE or audit insert was expected: the failure leaves
		// neither the sale nor the decrement applied.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when stock decrement fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Galaxy S24").
			WillReturnRows(phoneRows(1, "Galaxy S24", "Samsung", 100, 10))
		mock.ExpectQuery("INSERT INTO sales").
			WithArgs(sqlmock.AnyArg(), "Galaxy S24", 2, 100.0, 200.0, "cash", "", "", "", "clerk").
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_date"}).AddRow(8, time.Now()))
		mock.ExpectExec("UPDATE phones SET quantity").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      2,
			UnitPrice:     100,
			PaymentMethod: models.PaymentCash,
		})
		assert.ErrorIs(t, err, ErrStore)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when audit insert fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Galaxy S24").
			WillReturnRows(phoneRows(1, "Galaxy S24", "Samsung", 100, 10))
		mock.ExpectQuery("INSERT INTO sales").
			WithArgs(sqlmock.AnyArg(), "Galaxy S24", 2, 100.0, 200.0, "cash", "", "", "", "clerk").
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_date"}).AddRow(9, time.Now()))
		mock.ExpectExec("UPDATE phones SET quantity").
			WithArgs(8, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnError(errors.New("table locked"))
		mock.ExpectRollback()

		_, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      2,
			UnitPrice:     100,
			PaymentMethod: models.PaymentCash,
		})
		assert.ErrorIs(t, err, ErrStore)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid payment method", func(t *testing.T) {
		_, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      1,
			UnitPrice:     100,
			PaymentMethod: "barter",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := service.RecordSale(ctx, "clerk", RecordSaleRequest{
			Model:         "Galaxy S24",
			Quantity:      0,
			UnitPrice:     100,
			PaymentMethod: models.PaymentCash,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestInventoryService_AddPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db)
	ctx := context.Background()

	t.Run("successful add writes catalog entry and audit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM phones WHERE model").
			WithArgs("Pixel 9").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("INSERT INTO phones").
			WithArgs("Pixel 9", "Google", 649.99, 12).
			WillReturnRows(sqlmock.NewRows([]string{"id", "last_updated"}).AddRow(3, time.Now()))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs("Pixel 9", models.TxAdd, 12, 0, 12, "admin", "").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		phone, err := service.AddPhone(ctx, "admin", AddPhoneRequest{
			Model:    "Pixel 9",
			Brand:    "Google",
			Price:    649.99,
			Quantity: 12,
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, phone.ID)
		assert.Equal(t, 12, phone.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate model is a conflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM phones WHERE model").
			WithArgs("Pixel 9").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectRollback()

		_, err := service.AddPhone(ctx, "admin", AddPhoneRequest{
			Model:    "Pixel 9",
			Brand:    "Google",
			Price:    649.99,
			Quantity: 5,
		})
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects bad input", func(t *testing.T) {
		cases := []AddPhoneRequest{
			{Model: "", Brand: "Google", Price: 10, Quantity: 1},
			{Model: "Pixel 9", Brand: "", Price: 10, Quantity: 1},
			{Model: "Pixel 9", Brand: "Google", Price: 0, Quantity: 1},
			{Model: "Pixel 9", Brand: "Google", Price: -5, Quantity: 1},
			{Model: "Pixel 9", Brand: "Google", Price: 10, Quantity: -1},
		}
		for _, req := range cases {
			_, err := service.AddPhone(ctx, "admin", req)
			assert.ErrorIs(t, err, ErrValidation)
		}
	})
}

func TestInventoryService_UpdateQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db)
	ctx := context.Background()

	t.Run("successful update records delta", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Pixel 9").
			WillReturnRows(phoneRows(3, "Pixel 9", "Google", 649.99, 12))
		mock.ExpectQuery("UPDATE phones SET quantity").
			WithArgs(20, 3).
			WillReturnRows(sqlmock.NewRows([]string{"last_updated"}).AddRow(time.Now()))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs("Pixel 9", models.TxUpdate, 8, 12, 20, "admin", "").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		phone, err := service.UpdateQuantity(ctx, "admin", "Pixel 9", 20)
		assert.NoError(t, err)
		assert.Equal(t, 20, phone.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative quantity is rejected before touching the store", func(t *testing.T) {
		_, err := service.UpdateQuantity(ctx, "admin", "Pixel 9", -1)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown model", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Nokia 3310").
			WillReturnRows(sqlmock.NewRows([]string{"id", "model", "brand", "price", "quantity", "last_updated"}))
		mock.ExpectRollback()

		_, err := service.UpdateQuantity(ctx, "admin", "Nokia 3310", 5)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInventoryService_RemovePhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db)
	ctx := context.Background()

	t.Run("successful removal audits remaining stock", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Pixel 9").
			WillReturnRows(phoneRows(3, "Pixel 9", "Google", 649.99, 7))
		mock.ExpectExec("DELETE FROM phones").
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs("Pixel 9", models.TxRemove, -7, 7, 0, "admin", "").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := service.RemovePhone(ctx, "admin", "Pixel 9")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown model", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, model, brand, price, quantity, last_updated").
			WithArgs("Nokia 3310").
			WillReturnRows(sqlmock.NewRows([]string{"id", "model", "brand", "price", "quantity", "last_updated"}))
		mock.ExpectRollback()

		err := service.RemovePhone(ctx, "admin", "Nokia 3310")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
