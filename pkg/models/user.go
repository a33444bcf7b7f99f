package models

// User is an operator account. Users are managed server-side and do not
// participate in entity synchronization themselves.
type User struct {
	Base
	Username     string `json:"username" gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string `json:"email" gorm:"type:varchar(255);index"`
	FullName     string `json:"fullName" gorm:"type:varchar(150)"`
	PasswordHash string `json:"-" gorm:"type:varchar(100);not null"`
	RoleID       uint   `json:"roleId" gorm:"index;not null"`
	Role         *Role  `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	StoreID      uint   `json:"storeId" gorm:"index"`
	Active       bool   `json:"active" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// DeviceToken is an FCM registration used to wake a device up when a sync
// is requested for its store.
type DeviceToken struct {
	Base
	UserID   uint   `json:"userId" gorm:"index;not null"`
	StoreID  uint   `json:"storeId" gorm:"index"`
	Token    string `json:"token" gorm:"type:varchar(300);not null;uniqueIndex"`
	Platform string `json:"platform" gorm:"type:varchar(20)"`
}

func (DeviceToken) TableName() string { return "device_tokens" }
