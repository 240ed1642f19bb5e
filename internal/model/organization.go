package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgStatus is the lifecycle status of a workspace organization
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "ACTIVE"
	OrgStatusSuspended OrgStatus = "SUSPENDED"
	OrgStatusDeleted   OrgStatus = "DELETED"
)

// RagType selects the retrieval pipeline variant configured for a workspace
type RagType string

const (
	RagTypeBasic    RagType = "BASIC"
	RagTypeAdvanced RagType = "ADV"
	RagTypeCustom   RagType = "CUS"
)

// Organization is the shared registry entry for one workspace tenant.
// Handle and SchemaName are immutable after creation and never reused;
// organizations are never physically deleted, their status moves to DELETED.
type Organization struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email      string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name       string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Handle     string    `json:"handle" gorm:"type:varchar(100);uniqueIndex;not null"`
	SchemaName string    `json:"-" gorm:"type:varchar(100);uniqueIndex;not null"`
	Status     OrgStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	RagType    RagType   `json:"rag_type" gorm:"type:varchar(20);not null;default:'BASIC'"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName pins the registry to the shared schema so lookups never resolve
// into a tenant schema regardless of the connection's search_path.
func (Organization) TableName() string {
	return "public.organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
