package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncStatus tracks how an entity stands against the central database.
type SyncStatus string

const (
	SyncStatusNotSynced SyncStatus = "NotSynced"
	SyncStatusSyncing   SyncStatus = "Syncing"
	SyncStatusSynced    SyncStatus = "Synced"
	SyncStatusFailed    SyncStatus = "Failed"
)

// Base carries the server-assigned identity and timestamps.
// The numeric ID is authoritative only on the server; devices that created
// a record offline reconcile through the stable SyncID instead.
type Base struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) GetID() uint              { return b.ID }
func (b *Base) SetID(id uint)            { b.ID = id }
func (b *Base) GetCreatedAt() time.Time  { return b.CreatedAt }
func (b *Base) SetCreatedAt(t time.Time) { b.CreatedAt = t }

// SyncFields gets embedded in every entity that participates in
// synchronization. SyncID is client-generated, unique, and immutable once
// assigned; records created directly on the server receive one on insert.
type SyncFields struct {
	SyncID     uuid.UUID  `json:"syncId" gorm:"type:uuid;uniqueIndex"`
	SyncStatus SyncStatus `json:"syncStatus" gorm:"type:varchar(16);not null;default:'NotSynced';index"`
}

func (s *SyncFields) GetSyncID() uuid.UUID        { return s.SyncID }
func (s *SyncFields) SetSyncID(id uuid.UUID)      { s.SyncID = id }
func (s *SyncFields) GetSyncStatus() SyncStatus   { return s.SyncStatus }
func (s *SyncFields) SetSyncStatus(st SyncStatus) { s.SyncStatus = st }

// BeforeCreate assigns a stable identifier to records born on the server.
func (s *SyncFields) BeforeCreate(tx *gorm.DB) error {
	if s.SyncID == uuid.Nil {
		s.SyncID = uuid.New()
	}
	if s.SyncStatus == "" {
		s.SyncStatus = SyncStatusNotSynced
	}
	return nil
}

// Syncable is implemented by the pointer type of every entity the
// reconciliation engine handles.
type Syncable interface {
	GetID() uint
	SetID(uint)
	GetCreatedAt() time.Time
	SetCreatedAt(time.Time)
	GetSyncID() uuid.UUID
	SetSyncID(uuid.UUID)
	GetSyncStatus() SyncStatus
	SetSyncStatus(SyncStatus)
	// GetStoreID/SetStoreID are no-ops on store-less entities.
	GetStoreID() uint
	SetStoreID(uint)
	StoreScoped() bool
	EntityName() string
}

// StoreRef is embedded in store-scoped entities.
type StoreRef struct {
	StoreID uint `json:"storeId" gorm:"index;not null"`
}

func (r *StoreRef) GetStoreID() uint   { return r.StoreID }
func (r *StoreRef) SetStoreID(id uint) { r.StoreID = id }
func (r *StoreRef) StoreScoped() bool  { return true }

// GlobalScope is embedded in entities that are not tied to one store.
type GlobalScope struct{}

func (GlobalScope) GetStoreID() uint  { return 0 }
func (GlobalScope) SetStoreID(uint)   {}
func (GlobalScope) StoreScoped() bool { return false }
