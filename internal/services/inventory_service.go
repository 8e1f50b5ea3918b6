package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/phoneshop/backend/internal/middleware"
	"github.com/phoneshop/backend/internal/models"
)

// InventoryService owns the phones catalog and the sales/transactions
// ledger. All catalog mutations go through it so that stock never goes
// negative and every change leaves an audit entry in the same database
// transaction.
type InventoryService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewInventoryService(db *sql.DB) *InventoryService {
	return &InventoryService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// AddPhoneRequest represents the add-catalog-entry payload
// @Description Add phone request structure
type AddPhoneRequest struct {
	Model    string  `json:"model" validate:"required" example:"Galaxy S24"`
	Brand    string  `json:"brand" validate:"required" example:"Samsung"`
	Price    float64 `json:"price" validate:"required,gt=0" example:"799.99"`
	Quantity int     `json:"quantity" validate:"gte=0" example:"10"`
}

// UpdateQuantityRequest represents the set-quantity payload
// @Description Update stock request structure
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0" example:"25"`
}

// RecordSaleRequest represents the record-sale payload
// @Description Record sale request structure
type RecordSaleRequest struct {
	Model         string  `json:"model" validate:"required" example:"Galaxy S24"`
	Quantity      int     `json:"quantity" validate:"required,gt=0" example:"2"`
	UnitPrice     float64 `json:"unit_price" validate:"required,gt=0" example:"799.99"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=cash credit_card debit_card mobile_payment" example:"cash"`
	CustomerName  string  `json:"customer_name,omitempty" validate:"omitempty,max=100"`
	CustomerPhone string  `json:"customer_phone,omitempty" validate:"omitempty,max=30"`
	Notes         string  `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// AddPhone creates a catalog entry and its ADD audit transaction.
// Model names are unique; adding an existing model is a conflict.
func (s *InventoryService) AddPhone(ctx context.Context, actor string, req AddPhoneRequest) (*models.Phone, error) {
	if req.Model == "" || req.Brand == "" {
		return nil, validationError("model and brand cannot be empty")
	}
	if req.Price <= 0 {
		return nil, validationError("price must be greater than 0")
	}
	if req.Quantity < 0 {
		return nil, validationError("quantity cannot be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	var existingID int
	err = tx.QueryRowContext(ctx, `SELECT id FROM phones WHERE model = $1`, req.Model).Scan(&existingID)
	if err == nil {
		return nil, conflictError("model %q already exists", req.Model)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(err)
	}

	phone := &models.Phone{
		Model:    req.Model,
		Brand:    req.Brand,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO phones (model, brand, price, quantity, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, last_updated`,
		phone.Model, phone.Brand, phone.Price, phone.Quantity,
	).Scan(&phone.ID, &phone.LastUpdated)
	if err != nil {
		return nil, storeError(err)
	}

	if err := s.appendAudit(ctx, tx, phone.Model, models.TxAdd, phone.Quantity, 0, phone.Quantity, actor, ""); err != nil {
		return nil, storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return phone, nil
}

// UpdateQuantity sets a model's quantity on hand and records an UPDATE
// audit transaction with the resulting delta.
func (s *InventoryService) UpdateQuantity(ctx context.Context, actor, model string, newQuantity int) (*models.Phone, error) {
	if newQuantity < 0 {
		return nil, validationError("quantity cannot be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	phone, err := s.lockPhone(ctx, tx, model)
	if err != nil {
		return nil, err
	}

	oldQuantity := phone.Quantity
	err = tx.QueryRowContext(ctx, `
		UPDATE phones SET quantity = $1, last_updated = NOW()
		WHERE id = $2
		RETURNING last_updated`,
		newQuantity, phone.ID,
	).Scan(&phone.LastUpdated)
	if err != nil {
		return nil, storeError(err)
	}
	phone.Quantity = newQuantity

	if err := s.appendAudit(ctx, tx, phone.Model, models.TxUpdate, newQuantity-oldQuantity, oldQuantity, newQuantity, actor, ""); err != nil {
		return nil, storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return phone, nil
}

// RemovePhone deletes a catalog entry and records a REMOVE audit
// transaction for whatever stock it still carried.
func (s *InventoryService) RemovePhone(ctx context.Context, actor, model string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err)
	}
	defer tx.Rollback()

	phone, err := s.lockPhone(ctx, tx, model)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM phones WHERE id = $1`, phone.ID); err != nil {
		return storeError(err)
	}

	if err := s.appendAudit(ctx, tx, phone.Model, models.TxRemove, -phone.Quantity, phone.Quantity, 0, actor, ""); err != nil {
		return storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return storeError(err)
	}
	return nil
}

// RecordSale is the correctness-critical operation: it locks the phone
// row, checks sufficiency, then inserts the sale, decrements the stock
// and appends the SALE audit entry in one transaction. Either all three
// writes commit or none do.
func (s *InventoryService) RecordSale(ctx context.Context, actor string, req RecordSaleRequest) (*models.Sale, error) {
	if req.Quantity <= 0 {
		return nil, validationError("quantity sold must be greater than 0")
	}
	if req.UnitPrice <= 0 {
		return nil, validationError("unit price must be greater than 0")
	}
	if !validPaymentMethod(req.PaymentMethod) {
		return nil, validationError("unknown payment method %q", req.PaymentMethod)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	phone, err := s.lockPhone(ctx, tx, req.Model)
	if err != nil {
		return nil, err
	}

	if req.Quantity > phone.Quantity {
		return nil, insufficientStockError(phone.Model, req.Quantity, phone.Quantity)
	}

	sale := &models.Sale{
		ReceiptID:     uuid.NewString(),
		Model:         phone.Model,
		QuantitySold:  req.Quantity,
		UnitPrice:     req.UnitPrice,
		TotalAmount:   float64(req.Quantity) * req.UnitPrice,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		SoldBy:        actor,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (receipt_id, model, quantity_sold, unit_price, total_amount, payment_method, customer_name, customer_phone, notes, sold_by, sale_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, sale_date`,
		sale.ReceiptID, sale.Model, sale.QuantitySold, sale.UnitPrice, sale.TotalAmount,
		sale.PaymentMethod, sale.CustomerName, sale.CustomerPhone, sale.Notes, sale.SoldBy,
	).Scan(&sale.ID, &sale.SaleDate)
	if err != nil {
		return nil, storeError(err)
	}

	newQuantity := phone.Quantity - req.Quantity
	if _, err := tx.ExecContext(ctx, `
		UPDATE phones SET quantity = $1, last_updated = NOW()
		WHERE id = $2`,
		newQuantity, phone.ID,
	); err != nil {
		return nil, storeError(err)
	}

	if err := s.appendAudit(ctx, tx, phone.Model, models.TxSale, -req.Quantity, phone.Quantity, newQuantity, actor, fmt.Sprintf("receipt %s", sale.ReceiptID)); err != nil {
		return nil, storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return sale, nil
}

// GetPhone returns a single catalog entry by model name.
func (s *InventoryService) GetPhone(ctx context.Context, model string) (*models.Phone, error) {
	var phone models.Phone
	err := s.db.QueryRowContext(ctx, `
		SELECT id, model, brand, price, quantity, last_updated
		FROM phones WHERE model = $1`, model,
	).Scan(&phone.ID, &phone.Model, &phone.Brand, &phone.Price, &phone.Quantity, &phone.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("model %q not found", model)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &phone, nil
}

// ListPhones returns the whole catalog ordered by model name.
func (s *InventoryService) ListPhones(ctx context.Context) ([]models.Phone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, brand, price, quantity, last_updated
		FROM phones ORDER BY model`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	phones := []models.Phone{}
	for rows.Next() {
		var p models.Phone
		if err := rows.Scan(&p.ID, &p.Model, &p.Brand, &p.Price, &p.Quantity, &p.LastUpdated); err != nil {
			return nil, storeError(err)
		}
		phones = append(phones, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return phones, nil
}

// GetSale returns one sale record by id.
func (s *InventoryService) GetSale(ctx context.Context, id int) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, receipt_id, model, quantity_sold, unit_price, total_amount, payment_method, customer_name, customer_phone, notes, sold_by, sale_date
		FROM sales WHERE id = $1`, id,
	).Scan(&sale.ID, &sale.ReceiptID, &sale.Model, &sale.QuantitySold, &sale.UnitPrice, &sale.TotalAmount,
		&sale.PaymentMethod, &sale.CustomerName, &sale.CustomerPhone, &sale.Notes, &sale.SoldBy, &sale.SaleDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("sale %d not found", id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &sale, nil
}

// lockPhone reads a phone row FOR UPDATE so concurrent sales against
// the same model serialize on the row lock instead of both passing the
// sufficiency check.
func (s *InventoryService) lockPhone(ctx context.Context, tx *sql.Tx, model string) (*models.Phone, error) {
	var phone models.Phone
	err := tx.QueryRowContext(ctx, `
		SELECT id, model, brand, price, quantity, last_updated
		FROM phones
		WHERE model = $1
		FOR UPDATE`, model,
	).Scan(&phone.ID, &phone.Model, &phone.Brand, &phone.Price, &phone.Quantity, &phone.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("model %q not found", model)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &phone, nil
}

func (s *InventoryService) appendAudit(ctx context.Context, tx *sql.Tx, model, kind string, delta, before, after int, actor, notes string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (model, kind, delta, quantity_before, quantity_after, performed_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		model, kind, delta, before, after, actor, notes)
	return err
}

func validPaymentMethod(method string) bool {
	switch method {
	case models.PaymentCash, models.PaymentCreditCard, models.PaymentDebitCard, models.PaymentMobilePayment:
		return true
	}
	return false
}

// decodeJSON applies the shared request-body discipline: size cap,
// unknown fields rejected, exactly one JSON object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must only contain a single JSON object")
	}
	return nil
}

// HandleAddPhone handles catalog entry creation
// @Summary Add a phone to the catalog
// @Description Create a new catalog entry (admin only)
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body AddPhoneRequest true "Phone data"
// @Success 201 {object} models.Phone
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /phones [post]
func (s *InventoryService) HandleAddPhone(w http.ResponseWriter, r *http.Request) {
	var req AddPhoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	actor := middleware.IdentityFromContext(r.Context()).Username
	phone, err := s.AddPhone(r.Context(), actor, req)
	if err != nil {
		log.Printf("[INVENTORY] Add failed for model %q: %v", req.Model, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[INVENTORY] Added model %q (%d units) by %s", phone.Model, phone.Quantity, actor)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(phone)
}

// HandleUpdateQuantity handles stock level updates
// @Summary Update stock quantity
// @Description Set the quantity on hand for a model (admin only)
// @Tags inventory
// @Accept json
// @Produce json
// @Param model path string true "Model name"
// @Param request body UpdateQuantityRequest true "New quantity"
// @Success 200 {object} models.Phone
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /phones/{model}/quantity [put]
func (s *InventoryService) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")

	var req UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	actor := middleware.IdentityFromContext(r.Context()).Username
	phone, err := s.UpdateQuantity(r.Context(), actor, model, req.Quantity)
	if err != nil {
		log.Printf("[INVENTORY] Update failed for model %q: %v", model, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[INVENTORY] Updated model %q to %d units by %s", model, phone.Quantity, actor)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(phone)
}

// HandleRemovePhone handles catalog entry removal
// @Summary Remove a phone from the catalog
// @Description Delete a catalog entry (admin only)
// @Tags inventory
// @Produce json
// @Param model path string true "Model name"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /phones/{model} [delete]
func (s *InventoryService) HandleRemovePhone(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")

	actor := middleware.IdentityFromContext(r.Context()).Username
	if err := s.RemovePhone(r.Context(), actor, model); err != nil {
		log.Printf("[INVENTORY] Remove failed for model %q: %v", model, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[INVENTORY] Removed model %q by %s", model, actor)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Item removed successfully"})
}

// HandleListPhones handles catalog listing
// @Summary List the catalog
// @Description Get all catalog entries
// @Tags inventory
// @Produce json
// @Success 200 {object} object{phones=[]models.Phone,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /phones [get]
func (s *InventoryService) HandleListPhones(w http.ResponseWriter, r *http.Request) {
	phones, err := s.ListPhones(r.Context())
	if err != nil {
		log.Printf("[INVENTORY] List failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"phones": phones,
		"count":  len(phones),
	})
}

// HandleRecordSale handles sale recording
// @Summary Record a sale
// @Description Record a sale, decrementing stock atomically
// @Tags sales
// @Accept json
// @Produce json
// @Param request body RecordSaleRequest true "Sale data"
// @Success 201 {object} models.Sale
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sales [post]
func (s *InventoryService) HandleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	actor := middleware.IdentityFromContext(r.Context()).Username
	sale, err := s.RecordSale(r.Context(), actor, req)
	if err != nil {
		log.Printf("[INVENTORY] Sale failed for model %q: %v", req.Model, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[INVENTORY] Sale recorded: %d x %q for %.2f (receipt %s) by %s",
		sale.QuantitySold, sale.Model, sale.TotalAmount, sale.ReceiptID, actor)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sale)
}

// HandleGetSale handles sale lookup
// @Summary Get a sale
// @Description Retrieve a sale record by id
// @Tags sales
// @Produce json
// @Param id path int true "Sale ID"
// @Success 200 {object} models.Sale
// @Failure 404 {object} ErrorResponse
// @Router /sales/{id} [get]
func (s *InventoryService) HandleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid sale id", http.StatusBadRequest, nil)
		return
	}

	sale, err := s.GetSale(r.Context(), id)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sale)
}

// HandleReceiptQR handles receipt QR generation
// @Summary Get a sale receipt QR code
// @Description Render the sale's receipt reference as a PNG QR code
// @Tags sales
// @Produce png
// @Param id path int true "Sale ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /sales/{id}/receipt.png [get]
func (s *InventoryService) HandleReceiptQR(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid sale id", http.StatusBadRequest, nil)
		return
	}

	sale, err := s.GetSale(r.Context(), id)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	payload := fmt.Sprintf("receipt:%s;model:%s;qty:%d;total:%.2f",
		sale.ReceiptID, sale.Model, sale.QuantitySold, sale.TotalAmount)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		log.Printf("[INVENTORY] QR generation failed for sale %d: %v", id, err)
		SendErrorResponse(w, "Failed to generate receipt QR", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
