package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Position enum constants for the employee directory
const (
	PositionDriver     = "DRIVER"
	PositionSupervisor = "SUPERVISOR"
	PositionWorker     = "WORKER"
)

// Employee is a directory entry used when assembling a shipment team.
// Approval payloads snapshot the name/position/department at request time,
// so later edits here never rewrite history.
type Employee struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FullName   string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Position   string         `gorm:"type:varchar(50);not null;index" json:"position"` // DRIVER, SUPERVISOR, WORKER
	Department string         `gorm:"type:varchar(100);not null" json:"department"`
	Phone      string         `gorm:"type:varchar(50)" json:"phone"`
	Active     bool           `gorm:"default:true" json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
