package allocation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddWorkerIsIdempotent(t *testing.T) {
	d := NewDraft()
	worker := EmployeeRef{ID: "e1", Name: "Binh", Position: "WORKER", Department: "Ops"}

	d.AddWorker(worker)
	d.AddWorker(worker)
	d.AddWorker(worker)

	if got := len(d.Workers()); got != 1 {
		t.Fatalf("expected 1 worker after repeated adds, got %d", got)
	}
}

func TestAddMaterialRejectsBadQuantities(t *testing.T) {
	d := NewDraft()
	ref := MaterialRef{ID: "m1", Name: "Pallet", Unit: "pcs", AvailableQuantity: 10}

	cases := []struct {
		name string
		qty  int
	}{
		{"zero", 0},
		{"negative", -3},
		{"exceeds available", 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := d.AddMaterial(ref, tc.qty)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation for quantity %d, got %v", tc.qty, err)
			}
			if len(d.Materials()) != 0 {
				t.Fatalf("draft mutated by rejected add")
			}
		})
	}
}

func TestAddMaterialUpsertsByID(t *testing.T) {
	d := NewDraft()
	ref := MaterialRef{ID: "m1", Name: "Pallet", Unit: "pcs", AvailableQuantity: 10}

	if err := d.AddMaterial(ref, 3); err != nil {
		t.Fatal(err)
	}
	if err := d.AddMaterial(ref, 7); err != nil {
		t.Fatal(err)
	}

	materials := d.Materials()
	if len(materials) != 1 {
		t.Fatalf("expected 1 line, got %d", len(materials))
	}
	if materials[0].Quantity != 7 {
		t.Fatalf("expected quantity 7 after upsert, got %d", materials[0].Quantity)
	}
}

func TestAddMaterialAtExactAvailableQuantity(t *testing.T) {
	d := NewDraft()
	ref := MaterialRef{ID: "m1", Name: "Pallet", Unit: "pcs", AvailableQuantity: 5}

	if err := d.AddMaterial(ref, 5); err != nil {
		t.Fatalf("quantity equal to available should pass, got %v", err)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	d := NewDraft()

	if err := d.AddExpense("", dec("10"), "fuel"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty description, got %v", err)
	}
	if err := d.AddExpense("   ", dec("10"), "fuel"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank description, got %v", err)
	}
	if err := d.AddExpense("Fuel", dec("0"), "fuel"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero amount, got %v", err)
	}
	if err := d.AddExpense("Fuel", dec("-5"), "fuel"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative amount, got %v", err)
	}
	if len(d.Expenses()) != 0 {
		t.Fatalf("rejected expenses must not be recorded")
	}
}

func TestAddExpenseOverwritesByDescription(t *testing.T) {
	d := NewDraft()

	if err := d.AddExpense("Tolls", dec("100"), "road"); err != nil {
		t.Fatal(err)
	}
	if err := d.AddExpense("Tolls", dec("150"), "road"); err != nil {
		t.Fatal(err)
	}

	expenses := d.Expenses()
	if len(expenses) != 1 {
		t.Fatalf("expected a single line for the duplicated description, got %d", len(expenses))
	}
	if !expenses[0].Amount.Equal(dec("150")) {
		t.Fatalf("expected last write to win, got %s", expenses[0].Amount)
	}
	if !d.TotalExpenses().Equal(dec("150")) {
		t.Fatalf("expected total 150, got %s", d.TotalExpenses())
	}
}

func TestTotalExpensesRecomputes(t *testing.T) {
	d := NewDraft()
	_ = d.AddExpense("Fuel", dec("80.50"), "fuel")
	_ = d.AddExpense("Tolls", dec("19.50"), "road")

	if !d.TotalExpenses().Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", d.TotalExpenses())
	}

	d.RemoveExpense("Fuel")
	if !d.TotalExpenses().Equal(dec("19.50")) {
		t.Fatalf("expected 19.50 after removal, got %s", d.TotalExpenses())
	}
}

func TestIsDomainNonEmpty(t *testing.T) {
	d := NewDraft()
	for _, domain := range Domains {
		if d.IsDomainNonEmpty(domain) {
			t.Fatalf("fresh draft should report %s empty", domain)
		}
	}

	d.SetDriver(&EmployeeRef{ID: "e1", Name: "An", Position: "DRIVER"})
	if !d.IsDomainNonEmpty(DomainTeam) {
		t.Fatalf("team with a driver should be non-empty")
	}
	if d.IsDomainNonEmpty(DomainMaterials) || d.IsDomainNonEmpty(DomainExpenses) {
		t.Fatalf("other domains must stay empty")
	}

	d.SetDriver(nil)
	if d.IsDomainNonEmpty(DomainTeam) {
		t.Fatalf("clearing the driver should empty the team domain again")
	}
}

func TestRemoveOperationsAreNoOpsWhenAbsent(t *testing.T) {
	d := NewDraft()
	d.RemoveWorker("ghost")
	d.RemoveMaterial("ghost")
	d.RemoveExpense("ghost")

	for _, domain := range Domains {
		if d.IsDomainNonEmpty(domain) {
			t.Fatalf("removals on an empty draft must not create state")
		}
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	d := NewDraft()
	d.AddWorker(EmployeeRef{ID: "e1", Name: "An"})

	workers := d.Workers()
	workers[0].Name = "mutated"

	if d.Workers()[0].Name != "An" {
		t.Fatalf("mutating the returned slice must not touch the draft")
	}
}
