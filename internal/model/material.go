package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Material is an inventory directory entry. AvailableQuantity is the upper
// bound a draft may request; it is snapshotted into the approval payload as
// available_at_request.
type Material struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU               string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Unit              string         `gorm:"type:varchar(50);not null" json:"unit"` // e.g. pcs, kg, liter
	AvailableQuantity int            `gorm:"type:int;default:0;not null" json:"available_quantity"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}
