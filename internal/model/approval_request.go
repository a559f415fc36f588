package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestType enum constants — the resource domain a request covers
const (
	RequestTypeTeam      = "TEAM"
	RequestTypeMaterials = "MATERIALS"
	RequestTypeExpenses  = "EXPENSES"
)

// Department enum constants — the approver group
const (
	DepartmentHR        = "HR"
	DepartmentInventory = "INVENTORY"
	DepartmentFinance   = "FINANCE"
)

// ApprovalStatus enum constants
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// StatusNotRequested is a display-only status for departments with no request
// yet. It is never persisted.
const StatusNotRequested = "NOT_REQUESTED"

// requestTypeDepartments is the fixed routing table. The department is fully
// determined by the request type — there is no free pairing.
var requestTypeDepartments = map[string]string{
	RequestTypeTeam:      DepartmentHR,
	RequestTypeMaterials: DepartmentInventory,
	RequestTypeExpenses:  DepartmentFinance,
}

// DepartmentFor returns the approving department for a request type.
func DepartmentFor(requestType string) (string, bool) {
	dept, ok := requestTypeDepartments[requestType]
	return dept, ok
}

// ErrInvalidPayload marks a request whose payload violates the entity
// invariants: empty payload, mismatched type/department pairing, or the
// wrong payload branch for the declared type.
var ErrInvalidPayload = errors.New("invalid approval request payload")

// TeamMember is a snapshot of an employee at request time. Name and position
// are copied so the record stays readable if the employee is later renamed
// or removed.
type TeamMember struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// TeamPayload covers a team allocation: optional driver and supervisor plus
// zero or more workers.
type TeamPayload struct {
	Driver     *TeamMember  `json:"driver,omitempty"`
	Supervisor *TeamMember  `json:"supervisor,omitempty"`
	Workers    []TeamMember `json:"workers"`
}

// MaterialLine is a snapshot of one requested material and the quantity that
// was available when it was requested.
type MaterialLine struct {
	MaterialID         string `json:"material_id"`
	Name               string `json:"name"`
	Quantity           int    `json:"quantity"`
	Unit               string `json:"unit"`
	AvailableAtRequest int    `json:"available_at_request"`
}

// MaterialsPayload covers a materials allocation.
type MaterialsPayload struct {
	Items []MaterialLine `json:"items"`
}

// ExpenseLine is one itemized expense.
type ExpenseLine struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
}

// ExpensesPayload covers an expense allocation. TotalAmount is derived at
// submission time and stored with the record.
type ExpensesPayload struct {
	Items       []ExpenseLine   `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// RequestPayload is the tagged union carried by an ApprovalRequest. Exactly
// one branch is set, matching Type.
type RequestPayload struct {
	Type      string            `json:"type"`
	Team      *TeamPayload      `json:"team,omitempty"`
	Materials *MaterialsPayload `json:"materials,omitempty"`
	Expenses  *ExpensesPayload  `json:"expenses,omitempty"`
}

// Validate checks the union shape against the declared request type: the
// matching branch must be set and non-empty, the other branches absent.
func (p RequestPayload) Validate(requestType string) error {
	if p.Type != requestType {
		return fmt.Errorf("%w: payload type %q does not match request type %q", ErrInvalidPayload, p.Type, requestType)
	}

	switch requestType {
	case RequestTypeTeam:
		if p.Materials != nil || p.Expenses != nil {
			return fmt.Errorf("%w: team request carries a foreign payload branch", ErrInvalidPayload)
		}
		if p.Team == nil || (p.Team.Driver == nil && p.Team.Supervisor == nil && len(p.Team.Workers) == 0) {
			return fmt.Errorf("%w: team payload is empty", ErrInvalidPayload)
		}
	case RequestTypeMaterials:
		if p.Team != nil || p.Expenses != nil {
			return fmt.Errorf("%w: materials request carries a foreign payload branch", ErrInvalidPayload)
		}
		if p.Materials == nil || len(p.Materials.Items) == 0 {
			return fmt.Errorf("%w: materials payload is empty", ErrInvalidPayload)
		}
	case RequestTypeExpenses:
		if p.Team != nil || p.Materials != nil {
			return fmt.Errorf("%w: expenses request carries a foreign payload branch", ErrInvalidPayload)
		}
		if p.Expenses == nil || len(p.Expenses.Items) == 0 {
			return fmt.Errorf("%w: expenses payload is empty", ErrInvalidPayload)
		}
	default:
		return fmt.Errorf("%w: unknown request type %q", ErrInvalidPayload, requestType)
	}

	return nil
}

// ApprovalRequest is one approval ask directed at one department for one
// shipment. Once the status leaves PENDING the record is immutable and is
// retained indefinitely as an audit trail.
type ApprovalRequest struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShipmentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"shipment_id"`
	ShipmentNumber string    `gorm:"type:varchar(100);not null" json:"shipment_number"`
	RequestType    string    `gorm:"type:varchar(20);not null;index" json:"request_type"` // TEAM, MATERIALS, EXPENSES
	Department     string    `gorm:"type:varchar(20);not null;index" json:"department"`   // HR, INVENTORY, FINANCE

	RequestedBy      string    `gorm:"type:varchar(255);not null" json:"requested_by"` // display name from the identity collaborator
	RequestedByEmail string    `gorm:"type:varchar(255)" json:"requested_by_email"`
	RequestedAt      time.Time `gorm:"not null;index" json:"requested_at"`

	Payload string `gorm:"type:jsonb;not null" json:"payload"` // serialized RequestPayload snapshot

	Status string `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	ApprovedBy      *string    `gorm:"type:varchar(255)" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      *string    `gorm:"type:varchar(255)" json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	Comments        string     `gorm:"type:text" json:"comments,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPayload validates and serializes the payload union onto the record,
// stamping RequestType and Department from the fixed routing table.
func (r *ApprovalRequest) SetPayload(p RequestPayload) error {
	if err := p.Validate(p.Type); err != nil {
		return err
	}

	dept, ok := DepartmentFor(p.Type)
	if !ok {
		return fmt.Errorf("%w: unknown request type %q", ErrInvalidPayload, p.Type)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	r.RequestType = p.Type
	r.Department = dept
	r.Payload = string(raw)
	return nil
}

// DecodePayload deserializes the stored payload union.
func (r *ApprovalRequest) DecodePayload() (RequestPayload, error) {
	var p RequestPayload
	if err := json.Unmarshal([]byte(r.Payload), &p); err != nil {
		return RequestPayload{}, fmt.Errorf("failed to decode payload of request %s: %w", r.ID, err)
	}
	return p, nil
}

// ValidateForCreate re-checks the entity invariants before persistence. The
// coordinator validates too; the store refuses malformed records regardless
// of who built them.
func (r *ApprovalRequest) ValidateForCreate() error {
	if r.ShipmentID == uuid.Nil {
		return fmt.Errorf("%w: missing shipment reference", ErrInvalidPayload)
	}
	dept, ok := DepartmentFor(r.RequestType)
	if !ok {
		return fmt.Errorf("%w: unknown request type %q", ErrInvalidPayload, r.RequestType)
	}
	if r.Department != dept {
		return fmt.Errorf("%w: request type %q must route to %s, got %s", ErrInvalidPayload, r.RequestType, dept, r.Department)
	}

	p, err := r.DecodePayload()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p.Validate(r.RequestType)
}
