package incidents

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DispositionReturned  = "returned_to_supplier"
	DispositionDiscarded = "discarded"
)

type IncidentItem struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	IncidentID uint `gorm:"not null;index" json:"incident_id"`

	Reference string `gorm:"not null;column:reference" json:"reference"`

	// Quantity unit flags. Non-exclusive; a summary line joins the set ones.
	QtyArea  bool `gorm:"column:qty_area" json:"qty_area"`
	QtyBoxes bool `gorm:"column:qty_boxes" json:"qty_boxes"`
	QtyUnits bool `gorm:"column:qty_units" json:"qty_units"`

	// Defect type flags. Non-exclusive; none-set is tolerated.
	Breakage     bool `gorm:"column:breakage" json:"breakage"`
	Chipping     bool `gorm:"column:chipping" json:"chipping"`
	ImpactDamage bool `gorm:"column:impact_damage" json:"impact_damage"`
	Scratching   bool `gorm:"column:scratching" json:"scratching"`
	Incomplete   bool `gorm:"column:incomplete" json:"incomplete"`
	MixedLot     bool `gorm:"column:mixed_lot" json:"mixed_lot"`
	OtherDefect  bool `gorm:"column:other_defect" json:"other_defect"`

	Description string `gorm:"type:text;column:description" json:"description"`
	Disposition string `gorm:"not null;column:disposition" json:"disposition"`

	ReceivedImages datatypes.JSONSlice[ImageRef] `gorm:"column:received_images" json:"received_images"`
	// Only meaningful when Disposition is DispositionReturned.
	ReturnImages datatypes.JSONSlice[ImageRef] `gorm:"column:return_images" json:"return_images"`

	Position int `gorm:"not null;default:0;column:position" json:"position"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (IncidentItem) TableName() string { return "incident_item" }
