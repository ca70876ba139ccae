package incidents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImageRef is an opaque evidence pointer produced by the upload
// collaborator. Order inside a slice is display order.
type ImageRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Notification outcome for the submission mail, written after the
// aggregate is committed.
const (
	NotifyStatusPending = "pending"
	NotifyStatusSent    = "sent"
	NotifyStatusFailed  = "failed"
)

type Incident struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex;not null;column:code" json:"code"`

	DeliveryDate  time.Time `gorm:"not null;column:delivery_date" json:"delivery_date"`
	WorkerName    string    `gorm:"not null;column:worker_name" json:"worker_name"`
	ApproverName  string    `gorm:"column:approver_name" json:"approver_name"`
	Remarks       string    `gorm:"type:text;column:remarks" json:"remarks"`
	SupplierName  string    `gorm:"not null;column:supplier_name" json:"supplier_name"`
	SupplierTaxID string    `gorm:"column:supplier_tax_id" json:"supplier_tax_id"`

	RecipientEmail string `gorm:"not null;column:recipient_email" json:"recipient_email"`
	NotifyStatus   string `gorm:"not null;default:'pending';column:notify_status" json:"notify_status"`

	RemissionImages datatypes.JSONSlice[ImageRef] `gorm:"column:remission_images" json:"remission_images"`
	StateImages     datatypes.JSONSlice[ImageRef] `gorm:"column:state_images" json:"state_images"`

	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`

	Items []IncidentItem `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentID;references:ID" json:"items"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Incident) TableName() string { return "incident" }
