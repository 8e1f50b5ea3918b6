package models

import "time"

// Phone is one catalog entry: a distinct phone model with its current
// price and quantity on hand. Model names are unique.
type Phone struct {
	ID          int       `json:"id" db:"id"`
	Model       string    `json:"model" db:"model"`
	Brand       string    `json:"brand" db:"brand"`
	Price       float64   `json:"price" db:"price"`
	Quantity    int       `json:"quantity" db:"quantity"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}
