package models

import "time"

type PromotionType string

const (
	PromotionTypePercentage PromotionType = "percentage"
	PromotionTypeFixed      PromotionType = "fixed"
)

// Promotion is a store-scoped discount active inside a time window.
type Promotion struct {
	Base
	SyncFields
	StoreRef
	Name        string        `json:"name" gorm:"type:varchar(150);not null"`
	Description string        `json:"description" gorm:"type:varchar(300)"`
	Type        PromotionType `json:"type" gorm:"type:varchar(20);not null;default:'percentage'"`
	Value       float64       `json:"value" gorm:"not null;default:0"`
	StartsAt    *time.Time    `json:"startsAt,omitempty"`
	EndsAt      *time.Time    `json:"endsAt,omitempty"`
	Active      bool          `json:"active" gorm:"not null"`
}

func (Promotion) EntityName() string { return "promotion" }

func (Promotion) TableName() string { return "promotions" }
