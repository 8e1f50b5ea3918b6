package models

import "time"

// Payment methods accepted at the counter. Closed set; the validator
// oneof tags on sale requests and the sales table CHECK both use it.
const (
	PaymentCash          = "cash"
	PaymentCreditCard    = "credit_card"
	PaymentDebitCard     = "debit_card"
	PaymentMobilePayment = "mobile_payment"
)

// Sale is the immutable record of one completed transaction. Never
// updated or deleted after insert.
type Sale struct {
	ID            int       `json:"id" db:"id"`
	ReceiptID     string    `json:"receipt_id" db:"receipt_id"`
	Model         string    `json:"model" db:"model"`
	QuantitySold  int       `json:"quantity_sold" db:"quantity_sold"`
	UnitPrice     float64   `json:"unit_price" db:"unit_price"`
	TotalAmount   float64   `json:"total_amount" db:"total_amount"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	CustomerName  string    `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty" db:"customer_phone"`
	Notes         string    `json:"notes,omitempty" db:"notes"`
	SoldBy        string    `json:"sold_by" db:"sold_by"`
	SaleDate      time.Time `json:"sale_date" db:"sale_date"`
}
