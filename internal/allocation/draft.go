// Package allocation holds the client-session staging model for a shipment's
// resource allocation. A Draft accumulates team, material, and expense
// selections and validates them locally; nothing is persisted until the
// draft is submitted through the approval coordinator.
package allocation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Domain is one of the three resource categories of an allocation, each
// owned by a different approving department.
type Domain string

const (
	DomainTeam      Domain = "TEAM"
	DomainMaterials Domain = "MATERIALS"
	DomainExpenses  Domain = "EXPENSES"
)

// Domains lists all domains in submission order.
var Domains = []Domain{DomainTeam, DomainMaterials, DomainExpenses}

// ErrValidation marks a draft mutation that violated a local invariant.
// The draft is left unchanged and no network call is made.
var ErrValidation = errors.New("validation failed")

// EmployeeRef is a denormalized employee selection. The display fields are
// captured at selection time from the employee directory.
type EmployeeRef struct {
	ID         string
	Name       string
	Position   string
	Department string
}

// MaterialRef is a denormalized material selection including the quantity
// known to be available at selection time.
type MaterialRef struct {
	ID                string
	Name              string
	Unit              string
	AvailableQuantity int
}

// MaterialSelection is one material line held by a draft.
type MaterialSelection struct {
	Material MaterialRef
	Quantity int
}

// ExpenseItem is one itemized expense line held by a draft.
type ExpenseItem struct {
	Description string
	Amount      decimal.Decimal
	Category    string
}

// Draft is the unsubmitted working set of selections for one shipment's
// resource allocation. It is owned by a single authoring session and is not
// safe for concurrent use.
type Draft struct {
	driver     *EmployeeRef
	supervisor *EmployeeRef
	workers    []EmployeeRef // insertion order, unique by ID
	materials  []MaterialSelection
	expenses   []ExpenseItem // keyed by description, last write wins
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// SetDriver assigns or clears the driver selection.
func (d *Draft) SetDriver(ref *EmployeeRef) {
	d.driver = cloneRef(ref)
}

// SetSupervisor assigns or clears the supervisor selection.
func (d *Draft) SetSupervisor(ref *EmployeeRef) {
	d.supervisor = cloneRef(ref)
}

// AddWorker adds a worker to the team selection. Adding an already-selected
// worker is a no-op, not an error.
func (d *Draft) AddWorker(ref EmployeeRef) {
	for _, w := range d.workers {
		if w.ID == ref.ID {
			return
		}
	}
	d.workers = append(d.workers, ref)
}

// RemoveWorker removes a worker by id. No-op if absent.
func (d *Draft) RemoveWorker(id string) {
	for i, w := range d.workers {
		if w.ID == id {
			d.workers = append(d.workers[:i], d.workers[i+1:]...)
			return
		}
	}
}

// AddMaterial adds a material line. The quantity must be a positive integer
// no greater than the material's available quantity at selection time.
// Adding a material already present updates its quantity rather than
// duplicating the line.
func (d *Draft) AddMaterial(ref MaterialRef, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrValidation, quantity)
	}
	if quantity > ref.AvailableQuantity {
		return fmt.Errorf("%w: quantity %d exceeds available %d for material %q",
			ErrValidation, quantity, ref.AvailableQuantity, ref.Name)
	}

	for i, m := range d.materials {
		if m.Material.ID == ref.ID {
			d.materials[i].Quantity = quantity
			d.materials[i].Material = ref
			return nil
		}
	}
	d.materials = append(d.materials, MaterialSelection{Material: ref, Quantity: quantity})
	return nil
}

// RemoveMaterial removes a material line by id. No-op if absent.
func (d *Draft) RemoveMaterial(id string) {
	for i, m := range d.materials {
		if m.Material.ID == id {
			d.materials = append(d.materials[:i], d.materials[i+1:]...)
			return
		}
	}
}

// AddExpense adds an expense line. The description must be non-empty and the
// amount positive. Expenses are keyed by description: adding with a
// duplicate description overwrites the existing amount and category.
func (d *Draft) AddExpense(description string, amount decimal.Decimal, category string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: expense description must not be empty", ErrValidation)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: expense amount must be positive, got %s", ErrValidation, amount)
	}

	for i, e := range d.expenses {
		if e.Description == description {
			d.expenses[i].Amount = amount
			d.expenses[i].Category = category
			return nil
		}
	}
	d.expenses = append(d.expenses, ExpenseItem{Description: description, Amount: amount, Category: category})
	return nil
}

// RemoveExpense removes an expense line by description. No-op if absent.
func (d *Draft) RemoveExpense(description string) {
	for i, e := range d.expenses {
		if e.Description == description {
			d.expenses = append(d.expenses[:i], d.expenses[i+1:]...)
			return
		}
	}
}

// IsDomainNonEmpty reports whether the draft holds at least one selection
// for the given domain.
func (d *Draft) IsDomainNonEmpty(domain Domain) bool {
	switch domain {
	case DomainTeam:
		return d.driver != nil || d.supervisor != nil || len(d.workers) > 0
	case DomainMaterials:
		return len(d.materials) > 0
	case DomainExpenses:
		return len(d.expenses) > 0
	default:
		return false
	}
}

// TotalExpenses sums all expense amounts. Recomputed on every call.
func (d *Draft) TotalExpenses() decimal.Decimal {
	total := decimal.Zero
	for _, e := range d.expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Driver returns the current driver selection, or nil.
func (d *Draft) Driver() *EmployeeRef { return cloneRef(d.driver) }

// Supervisor returns the current supervisor selection, or nil.
func (d *Draft) Supervisor() *EmployeeRef { return cloneRef(d.supervisor) }

// Workers returns a copy of the worker selections in insertion order.
func (d *Draft) Workers() []EmployeeRef {
	out := make([]EmployeeRef, len(d.workers))
	copy(out, d.workers)
	return out
}

// Materials returns a copy of the material lines in insertion order.
func (d *Draft) Materials() []MaterialSelection {
	out := make([]MaterialSelection, len(d.materials))
	copy(out, d.materials)
	return out
}

// Expenses returns a copy of the expense lines in insertion order.
func (d *Draft) Expenses() []ExpenseItem {
	out := make([]ExpenseItem, len(d.expenses))
	copy(out, d.expenses)
	return out
}

func cloneRef(ref *EmployeeRef) *EmployeeRef {
	if ref == nil {
		return nil
	}
	c := *ref
	return &c
}
