package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShipmentStatus enum constants
const (
	ShipmentStatusPlanning  = "PLANNING"
	ShipmentStatusInTransit = "IN_TRANSIT"
	ShipmentStatusDelivered = "DELIVERED"
	ShipmentStatusCancelled = "CANCELLED"
)

// Shipment represents a delivery job. Its lifecycle is owned by the
// operations screens; the approval workflow only references it.
type Shipment struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShipmentNumber string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"shipment_number"`
	Origin         string         `gorm:"type:varchar(255);not null" json:"origin"`
	Destination    string         `gorm:"type:varchar(255);not null" json:"destination"`
	CargoType      string         `gorm:"type:varchar(100)" json:"cargo_type"`
	WeightKg       float64        `gorm:"type:decimal(10,2);default:0" json:"weight_kg"`
	Status         string         `gorm:"type:varchar(20);not null;default:'PLANNING';index" json:"status"`
	ScheduledDate  *time.Time     `json:"scheduled_date"`
	Note           string         `gorm:"type:text" json:"note"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
