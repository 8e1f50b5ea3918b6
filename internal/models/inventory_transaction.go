package models

import "time"

// Transaction kinds for the audit log.
const (
	TxAdd    = "ADD"
	TxUpdate = "UPDATE"
	TxRemove = "REMOVE"
	TxSale   = "SALE"
)

// InventoryTransaction is one append-only audit entry. Every catalog
// mutation, sales included, writes exactly one of these in the same
// database transaction as the mutation itself.
type InventoryTransaction struct {
	ID             int       `json:"id" db:"id"`
	Model          string    `json:"model" db:"model"`
	Kind           string    `json:"kind" db:"kind"` // ADD, UPDATE, REMOVE or SALE
	Delta          int       `json:"delta" db:"delta"`
	QuantityBefore int       `json:"quantity_before" db:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after" db:"quantity_after"`
	PerformedBy    string    `json:"performed_by" db:"performed_by"`
	Notes          string    `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
