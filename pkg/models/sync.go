package models

import "time"

// BatchStatus is the lifecycle state of one device's sync session.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "Pending"
	BatchStatusInProgress BatchStatus = "InProgress"
	BatchStatusCompleted  BatchStatus = "Completed"
	BatchStatusFailed     BatchStatus = "Failed"
)

// Terminal reports whether the status ends a batch.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// SyncOperation names the mutation a sync log entry records.
type SyncOperation string

const (
	SyncOpCreate SyncOperation = "Create"
	SyncOpUpdate SyncOperation = "Update"
	SyncOpDelete SyncOperation = "Delete"
)

// SyncBatch groups the changes one device submits in one session. The
// device that created the batch is its sole writer while it runs; there is
// no timeout, so a batch abandoned mid-flight stays InProgress until a
// client or admin finishes it.
type SyncBatch struct {
	Base
	DeviceID         string      `json:"deviceId" gorm:"type:varchar(100);not null;index"`
	UserID           uint        `json:"userId" gorm:"index;not null"`
	StoreID          uint        `json:"storeId" gorm:"index;not null"`
	Status           BatchStatus `json:"status" gorm:"type:varchar(16);not null;default:'Pending';index"`
	StartedAt        time.Time   `json:"startedAt"`
	EndedAt          *time.Time  `json:"endedAt,omitempty"`
	TotalRecords     int         `json:"totalRecords" gorm:"not null;default:0"`
	ProcessedRecords int         `json:"processedRecords" gorm:"not null;default:0"`
	FailedRecords    int         `json:"failedRecords" gorm:"not null;default:0"`
}

func (SyncBatch) TableName() string { return "sync_batches" }

// SyncLog is the append-only audit record of one entity-mutation sync
// attempt. Entries are never deleted. EntityID is a string so it can hold
// either a numeric id or a stable identifier. RetryCount is bookkeeping
// only; nothing in the backend re-attempts automatically.
type SyncLog struct {
	Base
	EntityName   string        `json:"entityName" gorm:"type:varchar(60);not null;index"`
	EntityID     string        `json:"entityId" gorm:"type:varchar(60);not null;index"`
	Operation    SyncOperation `json:"operation" gorm:"type:varchar(10);not null"`
	OperationAt  time.Time     `json:"operationAt"`
	DeviceID     string        `json:"deviceId" gorm:"type:varchar(100);index"`
	UserID       uint          `json:"userId" gorm:"index"`
	StoreID      uint          `json:"storeId" gorm:"index"`
	Status       SyncStatus    `json:"status" gorm:"type:varchar(16);not null;default:'NotSynced';index"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	ErrorMessage *string       `json:"errorMessage,omitempty" gorm:"type:text"`
	RetryCount   int           `json:"retryCount" gorm:"not null;default:0"`
	BatchID      *uint         `json:"batchId,omitempty" gorm:"index"`
	Priority     int           `json:"priority" gorm:"not null;default:0"`
}

func (SyncLog) TableName() string { return "sync_logs" }
