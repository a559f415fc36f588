package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestDepartmentForRouting(t *testing.T) {
	cases := map[string]string{
		RequestTypeTeam:      DepartmentHR,
		RequestTypeMaterials: DepartmentInventory,
		RequestTypeExpenses:  DepartmentFinance,
	}
	for requestType, want := range cases {
		got, ok := DepartmentFor(requestType)
		if !ok || got != want {
			t.Errorf("DepartmentFor(%s) = %s, %v; want %s", requestType, got, ok, want)
		}
	}

	if _, ok := DepartmentFor("PAYROLL"); ok {
		t.Errorf("unknown request type must not route")
	}
}

func TestPayloadValidateRejectsEmptyBranches(t *testing.T) {
	cases := []struct {
		name    string
		payload RequestPayload
	}{
		{"team nil", RequestPayload{Type: RequestTypeTeam}},
		{"team all empty", RequestPayload{Type: RequestTypeTeam, Team: &TeamPayload{}}},
		{"materials nil", RequestPayload{Type: RequestTypeMaterials}},
		{"materials no items", RequestPayload{Type: RequestTypeMaterials, Materials: &MaterialsPayload{}}},
		{"expenses nil", RequestPayload{Type: RequestTypeExpenses}},
		{"expenses no items", RequestPayload{Type: RequestTypeExpenses, Expenses: &ExpensesPayload{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.payload.Validate(tc.payload.Type); !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestPayloadValidateRejectsForeignBranch(t *testing.T) {
	p := RequestPayload{
		Type:      RequestTypeTeam,
		Team:      &TeamPayload{Driver: &TeamMember{EmployeeID: "e1", Name: "An"}},
		Materials: &MaterialsPayload{Items: []MaterialLine{{MaterialID: "m1", Quantity: 1}}},
	}
	if err := p.Validate(RequestTypeTeam); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for foreign branch, got %v", err)
	}
}

func TestSetPayloadStampsTypeAndDepartment(t *testing.T) {
	req := &ApprovalRequest{ShipmentID: uuid.New(), ShipmentNumber: "SHP-001"}
	payload := RequestPayload{
		Type: RequestTypeExpenses,
		Expenses: &ExpensesPayload{
			Items:       []ExpenseLine{{Description: "Fuel", Amount: decimal.NewFromInt(80)}},
			TotalAmount: decimal.NewFromInt(80),
		},
	}

	if err := req.SetPayload(payload); err != nil {
		t.Fatal(err)
	}
	if req.RequestType != RequestTypeExpenses {
		t.Errorf("RequestType = %s, want %s", req.RequestType, RequestTypeExpenses)
	}
	if req.Department != DepartmentFinance {
		t.Errorf("Department = %s, want %s", req.Department, DepartmentFinance)
	}

	decoded, err := req.DecodePayload()
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Expenses == nil || len(decoded.Expenses.Items) != 1 {
		t.Fatalf("decoded payload lost its items: %+v", decoded)
	}
	if !decoded.Expenses.TotalAmount.Equal(decimal.NewFromInt(80)) {
		t.Errorf("total = %s, want 80", decoded.Expenses.TotalAmount)
	}
}

func TestValidateForCreateChecksRouting(t *testing.T) {
	req := &ApprovalRequest{ShipmentID: uuid.New(), ShipmentNumber: "SHP-001"}
	payload := RequestPayload{
		Type: RequestTypeTeam,
		Team: &TeamPayload{Workers: []TeamMember{{EmployeeID: "e1", Name: "An"}}},
	}
	if err := req.SetPayload(payload); err != nil {
		t.Fatal(err)
	}

	if err := req.ValidateForCreate(); err != nil {
		t.Fatalf("well-formed request must validate, got %v", err)
	}

	// A tampered department must be caught even though the payload is fine.
	req.Department = DepartmentFinance
	if err := req.ValidateForCreate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for mismatched department, got %v", err)
	}

	req.Department = DepartmentHR
	req.ShipmentID = uuid.Nil
	if err := req.ValidateForCreate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing shipment, got %v", err)
	}
}
