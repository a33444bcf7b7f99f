package models

// Category groups products inside a store.
type Category struct {
	Base
	SyncFields
	StoreRef
	Name        string `json:"name" gorm:"type:varchar(150);not null"`
	Description string `json:"description" gorm:"type:varchar(300)"`
}

func (Category) EntityName() string { return "category" }

func (Category) TableName() string { return "categories" }

// Product is a sellable item in a store's catalog.
type Product struct {
	Base
	SyncFields
	StoreRef
	CategoryID  uint    `json:"categoryId" gorm:"index"`
	Name        string  `json:"name" gorm:"type:varchar(200);not null"`
	SKU         string  `json:"sku" gorm:"type:varchar(60);index"`
	Barcode     string  `json:"barcode" gorm:"type:varchar(60);index"`
	Description string  `json:"description" gorm:"type:text"`
	Price       float64 `json:"price" gorm:"not null;default:0"`
	Cost        float64 `json:"cost" gorm:"not null;default:0"`
	Stock       int     `json:"stock" gorm:"not null;default:0"`
	ImageURL    string  `json:"imageUrl" gorm:"type:varchar(500)"`
	Active      bool    `json:"active" gorm:"not null"`
}

func (Product) EntityName() string { return "product" }

func (Product) TableName() string { return "products" }
