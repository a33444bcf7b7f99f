package models

import (
	"time"

	"gorm.io/datatypes"
)

// SaleItem is one line of a sale, stored inside the sale's jsonb column so
// a whole sale travels as a single record during synchronization.
type SaleItem struct {
	ProductID   uint    `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// Sale is a completed (or voided) checkout.
type Sale struct {
	Base
	SyncFields
	StoreRef
	UserID        uint           `json:"userId" gorm:"index"`
	Items         datatypes.JSON `json:"items" gorm:"type:jsonb"`
	Subtotal      float64        `json:"subtotal" gorm:"not null;default:0"`
	Discount      float64        `json:"discount" gorm:"not null;default:0"`
	Tax           float64        `json:"tax" gorm:"not null;default:0"`
	Total         float64        `json:"total" gorm:"not null;default:0"`
	Status        string         `json:"status" gorm:"type:varchar(20);not null;default:'completed'"`
	CustomerEmail string         `json:"customerEmail" gorm:"type:varchar(255)"`
	SoldAt        time.Time      `json:"soldAt"`
}

func (Sale) EntityName() string { return "sale" }

func (Sale) TableName() string { return "sales" }

// Payment settles part or all of a sale.
type Payment struct {
	Base
	SyncFields
	StoreRef
	SaleID    uint      `json:"saleId" gorm:"index"`
	Method    string    `json:"method" gorm:"type:varchar(30);not null"`
	Amount    float64   `json:"amount" gorm:"not null;default:0"`
	Reference string    `json:"reference" gorm:"type:varchar(100)"`
	PaidAt    time.Time `json:"paidAt"`
}

func (Payment) EntityName() string { return "payment" }

func (Payment) TableName() string { return "payments" }
