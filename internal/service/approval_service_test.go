package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"backoffice/internal/allocation"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeApprovalRepo is an in-memory ApprovalRepository with the same
// conditional-transition semantics as the gorm implementation, plus
// per-request-type failure injection.
type fakeApprovalRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*model.ApprovalRequest
	failTypes map[string]error
	seq       int
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{
		records:   make(map[uuid.UUID]*model.ApprovalRequest),
		failTypes: make(map[string]error),
	}
}

func (f *fakeApprovalRepo) Create(ctx context.Context, req *model.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failTypes[req.RequestType]; ok {
		return err
	}

	f.seq++
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Second)
	}
	req.Status = model.ApprovalPending

	if err := req.ValidateForCreate(); err != nil {
		return err
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	stored := *req
	f.records[req.ID] = &stored
	return nil
}

func (f *fakeApprovalRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeApprovalRepo) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Map iteration order keeps the unordered-store contract honest.
	var out []model.ApprovalRequest
	for _, rec := range f.records {
		if rec.ShipmentID == shipmentID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) List(ctx context.Context, filter repository.ApprovalFilter) ([]model.ApprovalRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.ApprovalRequest
	for _, rec := range f.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Department != "" && rec.Department != filter.Department {
			continue
		}
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

func (f *fakeApprovalRepo) Transition(ctx context.Context, id uuid.UUID, decision string, actor string, comments string) (*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if rec.Status != model.ApprovalPending {
		return nil, fmt.Errorf("%w: request %s is %s", repository.ErrInvalidTransition, id, rec.Status)
	}

	now := time.Now().UTC()
	switch decision {
	case model.ApprovalApproved:
		rec.Status = model.ApprovalApproved
		rec.ApprovedBy = &actor
		rec.ApprovedAt = &now
		rec.Comments = comments
	case model.ApprovalRejected:
		rec.Status = model.ApprovalRejected
		rec.RejectedBy = &actor
		rec.RejectedAt = &now
		rec.RejectionReason = comments
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	cp := *rec
	return &cp, nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AuditLog(nil), f.entries...), int64(len(f.entries)), nil
}

func (f *fakeAuditRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakePerms struct {
	grants map[string][]string
}

func (f fakePerms) HasPermission(ctx context.Context, roleName, code string) (bool, error) {
	if roleName == "admin" {
		return true, nil
	}
	for _, c := range f.grants[roleName] {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEvents) BroadcastEvent(event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEvents) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// fakeUserRepo only implements the lookup the coordinator needs.
type fakeUserRepo struct {
	repository.UserRepository
	users map[string]*model.User
}

func (f fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type coordinatorFixture struct {
	svc      ApprovalService
	repo     *fakeApprovalRepo
	audit    *fakeAuditRepo
	events   *fakeEvents
	reviewer *model.User
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()

	repo := newFakeApprovalRepo()
	audit := &fakeAuditRepo{}
	events := &fakeEvents{}
	reviewer := &model.User{ID: uuid.New(), Username: "thu.le", Email: "thu.le@example.com", Role: "hr"}
	users := fakeUserRepo{users: map[string]*model.User{reviewer.ID.String(): reviewer}}
	perms := fakePerms{grants: map[string][]string{
		"hr":        {"approvals.decide.hr"},
		"inventory": {"approvals.decide.inventory"},
		"finance":   {"approvals.decide.finance"},
	}}

	svc := NewApprovalService(
		repo, nil, nil, nil,
		users, audit, fakeTxManager{}, perms, events, zerolog.Nop(),
	)
	return &coordinatorFixture{svc: svc, repo: repo, audit: audit, events: events, reviewer: reviewer}
}

func teamDraft() *allocation.Draft {
	d := allocation.NewDraft()
	d.SetDriver(&allocation.EmployeeRef{ID: "e1", Name: "An Nguyen", Position: "DRIVER", Department: "Fleet"})
	d.AddWorker(allocation.EmployeeRef{ID: "e2", Name: "Binh Tran", Position: "WORKER", Department: "Ops"})
	return d
}

func fullDraft(t *testing.T) *allocation.Draft {
	t.Helper()
	d := teamDraft()
	if err := d.AddMaterial(allocation.MaterialRef{ID: "m1", Name: "Pallet", Unit: "pcs", AvailableQuantity: 20}, 5); err != nil {
		t.Fatal(err)
	}
	if err := d.AddExpense("Fuel", mustDecimal(t, "80.50"), "fuel"); err != nil {
		t.Fatal(err)
	}
	return d
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

var testShipment = ShipmentRef{ID: uuid.New(), Number: "SHP-2026-001"}
var testRequester = Requester{UserID: uuid.NewString(), Name: "op.user", Email: "op@example.com"}

func TestRequestApprovalRoutesToFixedDepartment(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	if resp.RequestType != model.RequestTypeTeam {
		t.Errorf("request type = %s, want TEAM", resp.RequestType)
	}
	if resp.Department != model.DepartmentHR {
		t.Errorf("department = %s, want HR", resp.Department)
	}
	if resp.Status != model.ApprovalPending {
		t.Errorf("status = %s, want PENDING", resp.Status)
	}
	if resp.RequestedBy != testRequester.Name {
		t.Errorf("requested_by = %s, want %s", resp.RequestedBy, testRequester.Name)
	}
	if resp.ShipmentNumber != testShipment.Number {
		t.Errorf("shipment_number = %s, want %s", resp.ShipmentNumber, testShipment.Number)
	}

	if fx.audit.count() != 1 {
		t.Errorf("expected one audit row, got %d", fx.audit.count())
	}
	if got := fx.events.names(); len(got) != 1 || got[0] != "approval.requested" {
		t.Errorf("events = %v, want [approval.requested]", got)
	}
}

func TestRequestApprovalEmptyDomainNeverReachesStore(t *testing.T) {
	fx := newCoordinatorFixture(t)

	_, err := fx.svc.RequestApproval(context.Background(), allocation.DomainExpenses, testShipment, teamDraft(), testRequester)
	if !errors.Is(err, ErrEmptyDomain) {
		t.Fatalf("expected ErrEmptyDomain, got %v", err)
	}

	if len(fx.repo.records) != 0 {
		t.Errorf("store must stay untouched on an empty-domain submission")
	}
	if fx.audit.count() != 0 {
		t.Errorf("no audit row for a refused submission")
	}
	if len(fx.events.names()) != 0 {
		t.Errorf("no event for a refused submission")
	}
}

func TestRequestAllApprovalsIsolatesFailures(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.repo.failTypes[model.RequestTypeMaterials] = errors.New("connection refused")

	result := fx.svc.RequestAllApprovals(context.Background(), testShipment, fullDraft(t), testRequester)

	if len(result.Succeeded) != 2 {
		t.Fatalf("succeeded = %v, want team and expenses", result.Succeeded)
	}
	if result.Succeeded[0] != allocation.DomainTeam || result.Succeeded[1] != allocation.DomainExpenses {
		t.Errorf("succeeded order = %v, want [TEAM EXPENSES]", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].Domain != allocation.DomainMaterials {
		t.Fatalf("failed = %v, want the materials domain only", result.Failed)
	}
	if !errors.Is(result.Failed[0].Err, fx.repo.failTypes[model.RequestTypeMaterials]) {
		t.Errorf("failure cause must surface unchanged, got %v", result.Failed[0].Err)
	}
	if len(fx.repo.records) != 2 {
		t.Errorf("expected 2 persisted records, got %d", len(fx.repo.records))
	}
}

func TestRequestAllApprovalsSkipsEmptyDomains(t *testing.T) {
	fx := newCoordinatorFixture(t)

	result := fx.svc.RequestAllApprovals(context.Background(), testShipment, teamDraft(), testRequester)

	if len(result.Succeeded) != 1 || result.Succeeded[0] != allocation.DomainTeam {
		t.Fatalf("succeeded = %v, want team only", result.Succeeded)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("empty domains are skipped, not failed: %v", result.Failed)
	}
}

func TestAggregateStatusLatestPerDepartment(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	first, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	actor := Actor{UserID: fx.reviewer.ID.String(), Role: "hr"}
	if _, err := fx.svc.Approve(ctx, first.ID, actor, "looks good"); err != nil {
		t.Fatal(err)
	}

	// Resubmission supersedes the approved request in the aggregate view.
	if _, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester); err != nil {
		t.Fatal(err)
	}

	status, err := fx.svc.GetAggregateStatus(ctx, testShipment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.HR != model.ApprovalPending {
		t.Errorf("HR = %s, want PENDING (latest request wins)", status.HR)
	}
	if status.Inventory != model.StatusNotRequested || status.Finance != model.StatusNotRequested {
		t.Errorf("untouched departments must report NOT_REQUESTED, got %+v", status)
	}
}

func TestAggregateStatusForUnknownShipment(t *testing.T) {
	fx := newCoordinatorFixture(t)

	status, err := fx.svc.GetAggregateStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	want := AggregateStatus{HR: model.StatusNotRequested, Inventory: model.StatusNotRequested, Finance: model.StatusNotRequested}
	if status != want {
		t.Errorf("status = %+v, want all NOT_REQUESTED", status)
	}
}

func TestHistoryIsChronological(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	draft := fullDraft(t)
	for _, domain := range []allocation.Domain{allocation.DomainExpenses, allocation.DomainTeam, allocation.DomainMaterials} {
		if _, err := fx.svc.RequestApproval(ctx, domain, testShipment, draft, testRequester); err != nil {
			t.Fatal(err)
		}
	}

	history, err := fx.svc.GetHistory(ctx, testShipment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].RequestedAt < history[i-1].RequestedAt {
			t.Fatalf("history out of order at %d: %s before %s", i, history[i].RequestedAt, history[i-1].RequestedAt)
		}
	}
	// Submission order was expenses, team, materials.
	wantTypes := []string{model.RequestTypeExpenses, model.RequestTypeTeam, model.RequestTypeMaterials}
	for i, want := range wantTypes {
		if history[i].RequestType != want {
			t.Errorf("history[%d] = %s, want %s", i, history[i].RequestType, want)
		}
	}
}

func TestDecisionIsOneWay(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	actor := Actor{UserID: fx.reviewer.ID.String(), Role: "hr"}
	approved, err := fx.svc.Approve(ctx, resp.ID, actor, "ok")
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != model.ApprovalApproved {
		t.Fatalf("status = %s, want APPROVED", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != fx.reviewer.Username {
		t.Errorf("approved_by = %v, want %s", approved.ApprovedBy, fx.reviewer.Username)
	}

	// A later reject must fail and leave the record untouched.
	if _, err := fx.svc.Reject(ctx, resp.ID, actor, "changed my mind"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	id, _ := uuid.Parse(resp.ID)
	stored, err := fx.repo.FindByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.ApprovalApproved || stored.RejectedBy != nil {
		t.Errorf("terminal record mutated by losing decision: %+v", stored)
	}
}

func TestDecisionRequiresDepartmentPermission(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	// Finance cannot decide an HR request.
	wrongDept := Actor{UserID: fx.reviewer.ID.String(), Role: "finance"}
	if _, err := fx.svc.Approve(ctx, resp.ID, wrongDept, ""); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	// Admin bypasses the department check.
	admin := Actor{UserID: fx.reviewer.ID.String(), Role: "admin"}
	if _, err := fx.svc.Approve(ctx, resp.ID, admin, ""); err != nil {
		t.Fatalf("admin decision failed: %v", err)
	}
}

func TestDecisionEmitsEventAndAudit(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	actor := Actor{UserID: fx.reviewer.ID.String(), Role: "hr"}
	rejected, err := fx.svc.Reject(ctx, resp.ID, actor, "headcount frozen")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.RejectionReason != "headcount frozen" {
		t.Errorf("rejection_reason = %s", rejected.RejectionReason)
	}

	if fx.audit.count() != 2 {
		t.Errorf("expected create+decide audit rows, got %d", fx.audit.count())
	}
	events := fx.events.names()
	if len(events) != 2 || events[1] != "approval.decided" {
		t.Errorf("events = %v, want approval.decided last", events)
	}
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.RequestApproval(ctx, allocation.DomainTeam, testShipment, teamDraft(), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	actor := Actor{UserID: fx.reviewer.ID.String(), Role: "hr"}
	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var decideErr error
			if i%2 == 0 {
				_, decideErr = fx.svc.Approve(ctx, resp.ID, actor, "")
			} else {
				_, decideErr = fx.svc.Reject(ctx, resp.ID, actor, "no")
			}
			errs <- decideErr
		}(i)
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrInvalidTransition):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one decision must win, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Fatalf("losers must observe ErrInvalidTransition, got %d of %d", conflicts, attempts-1)
	}
}

func TestPayloadSnapshotsDenormalizedFields(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.RequestApproval(ctx, allocation.DomainMaterials, testShipment, fullDraft(t), testRequester)
	if err != nil {
		t.Fatal(err)
	}

	id, _ := uuid.Parse(resp.ID)
	stored, err := fx.repo.FindByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := stored.DecodePayload()
	if err != nil {
		t.Fatal(err)
	}
	if payload.Materials == nil || len(payload.Materials.Items) != 1 {
		t.Fatalf("materials payload missing: %+v", payload)
	}
	item := payload.Materials.Items[0]
	if item.Name != "Pallet" || item.Unit != "pcs" {
		t.Errorf("denormalized fields lost: %+v", item)
	}
	if item.AvailableAtRequest != 20 {
		t.Errorf("available_at_request = %d, want 20", item.AvailableAtRequest)
	}
	if item.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", item.Quantity)
	}
}
