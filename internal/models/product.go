package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog item. Stock is a pointer: nil means the business does
// not track stock for this item and it is treated as always in stock.
type Product struct {
	gorm.Model
	ProductID   string  `gorm:"uniqueIndex;not null" json:"product_id"`
	BusinessID  uint    `gorm:"index" json:"business_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       *int    `json:"stock,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	IsActive    bool    `gorm:"default:true" json:"is_active"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ProductID == "" {
		p.ProductID = uuid.New().String()
	}
	return nil
}

// InStock reports whether the product can currently be sold.
func (p *Product) InStock() bool {
	if p.Stock == nil {
		return true
	}
	return *p.Stock > 0
}
