package model

import (
	"math"
	"time"
)

// Invoice statuses
const (
	StatusPaid    = "Paid"
	StatusUnpaid  = "Unpaid"
	StatusPending = "Pending"
)

var Statuses = []string{StatusPaid, StatusUnpaid, StatusPending}

// Invoice is a billing document owned by a single user. Subtotal, tax amount
// and total are computed once at creation and stored frozen; they are never
// re-derived from live product data. Deletion is hard: a deleted invoice's
// reference number becomes available again immediately.
type Invoice struct {
	ID              uint          `json:"id" gorm:"primarykey"`
	UserID          uint          `json:"user_id" gorm:"index;not null"`
	Customer        string        `json:"customer" gorm:"type:varchar(255);not null"`
	Email           string        `json:"email,omitempty" gorm:"type:varchar(100)"`
	Address         string        `json:"address,omitempty" gorm:"type:varchar(500)"`
	InvoiceDate     time.Time     `json:"invoice_date" gorm:"not null"`
	DueDate         *time.Time    `json:"due_date,omitempty"`
	Notes           string        `json:"notes,omitempty" gorm:"type:text"`
	ReferenceNumber string        `json:"reference_number" gorm:"type:varchar(100);uniqueIndex;not null"`
	Items           []InvoiceItem `json:"items" gorm:"foreignKey:InvoiceID"`
	Subtotal        float64       `json:"subtotal" gorm:"not null"`
	TaxAmount       float64       `json:"tax_amount" gorm:"not null"`
	Total           float64       `json:"total" gorm:"not null"`
	Status          string        `json:"status" gorm:"type:varchar(20);not null;default:'Unpaid'"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// InvoiceItem is one line of an invoice. ProductID is a weak reference: the
// product may be deleted later, the line keeps only the id plus the quantity
// and price snapshot taken at invoicing time.
type InvoiceItem struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	InvoiceID uint    `json:"-" gorm:"index;not null"`
	ProductID uint    `json:"product_id"`
	Quantity  int     `json:"quantity" gorm:"not null"`
	Price     float64 `json:"price" gorm:"not null"`
}

// IsValidStatus reports whether s is one of the accepted invoice statuses
func IsValidStatus(s string) bool {
	return contains(Statuses, s)
}

// ComputeTotals derives the frozen monetary snapshot from the line items and
// the tax rate (percent). Values are rounded to two decimals.
func ComputeTotals(items []InvoiceItem, taxRate float64) (subtotal, taxAmount, total float64) {
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = round2(subtotal)
	taxAmount = round2(subtotal * taxRate / 100)
	total = round2(subtotal + taxAmount)
	return subtotal, taxAmount, total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
