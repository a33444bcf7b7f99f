package models

// Store is a retail location. Every store-scoped query filters on the
// acting user's store unless the caller holds a store-spanning admin claim.
type Store struct {
	Base
	SyncFields
	GlobalScope
	Name    string `json:"name" gorm:"type:varchar(150);not null"`
	Address string `json:"address" gorm:"type:varchar(300)"`
	Phone   string `json:"phone" gorm:"type:varchar(30)"`
	Email   string `json:"email" gorm:"type:varchar(255)"`
	Active  bool   `json:"active" gorm:"not null"`
}

func (Store) EntityName() string { return "store" }

func (Store) TableName() string { return "stores" }
