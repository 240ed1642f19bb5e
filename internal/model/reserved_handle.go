package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservedHandle is a workspace handle that can never be claimed by a tenant,
// e.g. "api", "www", "admin". Maintained by platform operators.
type ReservedHandle struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Handle      string    `json:"handle" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ReservedHandle) TableName() string {
	return "public.reserved_handles"
}

func (r *ReservedHandle) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
