package model

import (
	"fmt"
	"strings"
	"time"
)

// Product categories and units of measure accepted by the catalog
var (
	Categories = []string{"Food", "Beverage", "Cleaning", "Personal Care", "Electronics", "Other"}
	Units      = []string{"pcs", "kg", "g", "l", "ml", "pack"}
)

// Product represents an inventory item owned by a single user. The code is
// unique system-wide, not per owner. Deletion is hard: a deleted product's
// code becomes available again immediately.
type Product struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	Name        string     `json:"name" gorm:"type:varchar(255);not null"`
	Code        string     `json:"code" gorm:"type:varchar(100);uniqueIndex;not null"`
	Category    string     `json:"category" gorm:"type:varchar(50);not null"`
	Price       float64    `json:"price" gorm:"not null"`
	Quantity    int        `json:"quantity" gorm:"not null;default:0"`
	Unit        string     `json:"unit" gorm:"type:varchar(10);not null"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	Threshold   int        `json:"threshold" gorm:"not null;default:1"`
	Description string     `json:"description,omitempty" gorm:"type:varchar(500)"`
	Image       string     `json:"image,omitempty" gorm:"type:varchar(255)"`
	CreatedBy   uint       `json:"created_by" gorm:"index;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsLowStock reports whether quantity has fallen to or below the reorder threshold
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.Threshold
}

// Normalize applies case normalization to the business-unique product code
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
}

// Validate checks field constraints and returns every violation at once
func (p *Product) Validate() []string {
	var errs []string

	if p.Name == "" {
		errs = append(errs, "product name is required")
	}
	if p.Code == "" {
		errs = append(errs, "product code is required")
	}
	if !contains(Categories, p.Category) {
		errs = append(errs, fmt.Sprintf("category must be one of: %s", strings.Join(Categories, ", ")))
	}
	if p.Price < 0 {
		errs = append(errs, "price must not be negative")
	}
	if p.Quantity < 0 {
		errs = append(errs, "quantity must not be negative")
	}
	if !contains(Units, p.Unit) {
		errs = append(errs, fmt.Sprintf("unit must be one of: %s", strings.Join(Units, ", ")))
	}
	if p.ExpiryDate != nil && !p.ExpiryDate.After(time.Now()) {
		errs = append(errs, "expiry date must be in the future")
	}
	if p.Threshold < 1 {
		errs = append(errs, "threshold must be at least 1")
	}
	if len(p.Description) > 500 {
		errs = append(errs, "description must not exceed 500 characters")
	}

	return errs
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
