package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
)

// In-memory repository fakes

type fakeRequestRepo struct {
	requests map[int64]*entity.DocumentRequest
	updates  []port.StatusUpdate
}

func newFakeRequestRepo(reqs ...*entity.DocumentRequest) *fakeRequestRepo {
	m := make(map[int64]*entity.DocumentRequest)
	for _, r := range reqs {
		m[r.ID] = r
	}
	return &fakeRequestRepo{requests: m}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *entity.DocumentRequest) error {
	f.requests[req.ID] = req
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRequestRepo) GetByTrackingNumber(ctx context.Context, tn string) (*entity.DocumentRequest, error) {
	for _, r := range f.requests {
		if r.TrackingNumber == tn {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.DocumentRequest, error) {
	return nil, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id int64, expectedStatus string, update port.StatusUpdate) error {
	req, ok := f.requests[id]
	if !ok {
		return errors.New("not found")
	}
	if req.Status != expectedStatus {
		return port.ErrConflict
	}

	req.Status = update.NewStatus
	if update.PaymentVerifiedAt != nil {
		req.PaymentVerifiedAt = update.PaymentVerifiedAt
		req.PaymentVerifiedBy = update.PaymentVerifiedBy
	}
	if update.ReviewedAt != nil {
		req.ReviewedAt = update.ReviewedAt
		req.ReviewedBy = update.ReviewedBy
	}
	if update.RejectionReason != "" {
		req.RejectionReason = update.RejectionReason
	}
	if update.GeneratedAt != nil {
		req.GeneratedDocumentURL = update.GeneratedURL
		req.GeneratedAt = update.GeneratedAt
		req.GeneratedBy = update.GeneratedBy
	}
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeRequestRepo) SetPaymentProof(ctx context.Context, id int64, proofURL, ref string) error {
	return nil
}

func (f *fakeRequestRepo) AddSupportingDocument(ctx context.Context, id int64, docURL string) error {
	return nil
}

func (f *fakeRequestRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	return nil, nil
}

func (f *fakeRequestRepo) Delete(ctx context.Context, id int64) error {
	delete(f.requests, id)
	return nil
}

type fakeHistoryRepo struct {
	entries []*entity.StatusHistoryEntry
}

func (f *fakeHistoryRepo) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistoryRepo) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.StatusHistoryEntry, error) {
	return f.entries, nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestEngine(repo *fakeRequestRepo, history *fakeHistoryRepo) Engine {
	return NewEngine(repo, history, fakeTxManager{}, nopLogger{})
}

func request(id int64, amount, method, status string) *entity.DocumentRequest {
	return &entity.DocumentRequest{
		ID:            id,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: method,
		Status:        status,
	}
}

// Free document: review in pending, then generation becomes legal.
func TestEngine_FreeDocumentFlow(t *testing.T) {
	repo := newFakeRequestRepo(request(1, "0", entity.PaymentMethodWalkIn, entity.StatusPending))
	history := &fakeHistoryRepo{}
	engine := newTestEngine(repo, history)
	ctx := context.Background()

	if _, err := engine.Transition(ctx, 1, domainwf.TriggerGenerateDocument, Action{Actor: "staff01"}); err == nil {
		t.Fatal("generation must be denied before review")
	}

	updated, err := engine.Transition(ctx, 1, domainwf.TriggerApproveDocuments, Action{Actor: "staff01"})
	if err != nil {
		t.Fatalf("approve documents: %v", err)
	}
	if updated.Status != entity.StatusApproved {
		t.Errorf("status = %s, want approved", updated.Status)
	}
	if updated.ReviewedAt == nil || updated.ReviewedBy != "staff01" {
		t.Error("review evidence not recorded")
	}

	updated, err = engine.Transition(ctx, 1, domainwf.TriggerGenerateDocument, Action{Actor: "staff01"})
	if err != nil {
		t.Fatalf("generate after approval: %v", err)
	}
	if updated.Status != entity.StatusProcessing {
		t.Errorf("status = %s, want processing", updated.Status)
	}
}

// GCash: review is denied until payment is verified.
func TestEngine_GCashPaymentGatesReview(t *testing.T) {
	repo := newFakeRequestRepo(request(2, "50", entity.PaymentMethodOnline, entity.StatusPending))
	history := &fakeHistoryRepo{}
	engine := newTestEngine(repo, history)
	ctx := context.Background()

	_, err := engine.Transition(ctx, 2, domainwf.TriggerApproveDocuments, Action{Actor: "staff01"})
	if !errors.Is(err, domainwf.ErrInvalidTransition) && !errors.Is(err, domainwf.ErrGuardFailed) {
		t.Fatalf("review before verification: error = %v, want guard/transition denial", err)
	}

	updated, err := engine.Transition(ctx, 2, domainwf.TriggerVerifyPayment, Action{Actor: "treasurer01"})
	if err != nil {
		t.Fatalf("verify payment: %v", err)
	}
	if updated.Status != entity.StatusPaymentVerified {
		t.Errorf("status = %s, want payment_verified", updated.Status)
	}
	if updated.PaymentVerifiedAt == nil || updated.PaymentVerifiedBy != "treasurer01" {
		t.Error("payment evidence not recorded")
	}

	// Approval is a self-transition for GCash: the flag is reviewedAt.
	updated, err = engine.Transition(ctx, 2, domainwf.TriggerApproveDocuments, Action{Actor: "staff01"})
	if err != nil {
		t.Fatalf("approve after verification: %v", err)
	}
	if updated.Status != entity.StatusPaymentVerified {
		t.Errorf("status = %s, want payment_verified", updated.Status)
	}
	if updated.ReviewedAt == nil {
		t.Error("reviewedAt not set")
	}

	if _, err := engine.Transition(ctx, 2, domainwf.TriggerGenerateDocument, Action{Actor: "staff01"}); err != nil {
		t.Fatalf("generate after review: %v", err)
	}
}

// Re-verifying an already verified payment is rejected.
func TestEngine_VerifyPaymentNotRepeatable(t *testing.T) {
	repo := newFakeRequestRepo(request(3, "50", entity.PaymentMethodOnline, entity.StatusPending))
	engine := newTestEngine(repo, &fakeHistoryRepo{})
	ctx := context.Background()

	if _, err := engine.Transition(ctx, 3, domainwf.TriggerVerifyPayment, Action{Actor: "treasurer01"}); err != nil {
		t.Fatalf("first verification: %v", err)
	}
	_, err := engine.Transition(ctx, 3, domainwf.TriggerVerifyPayment, Action{Actor: "treasurer01"})
	if err == nil {
		t.Fatal("second verification must be denied")
	}
}

// Cash-on-pickup full cycle (scenario: review first, pay at the window).
func TestEngine_CashOnPickupFullCycle(t *testing.T) {
	repo := newFakeRequestRepo(request(4, "75.50", entity.PaymentMethodWalkIn, entity.StatusPending))
	history := &fakeHistoryRepo{}
	engine := newTestEngine(repo, history)
	ctx := context.Background()

	steps := []struct {
		trigger    domainwf.Trigger
		action     Action
		wantStatus string
	}{
		{domainwf.TriggerApproveDocuments, Action{Actor: "staff01"}, entity.StatusApproved},
		{domainwf.TriggerVerifyPayment, Action{Actor: "treasurer01"}, entity.StatusApproved},
		{domainwf.TriggerGenerateDocument, Action{Actor: "staff01"}, entity.StatusProcessing},
		{domainwf.TriggerMarkReady, Action{Actor: "system", GeneratedURL: "/generated/BRGY-1.pdf"}, entity.StatusReadyForPickup},
		{domainwf.TriggerComplete, Action{Actor: "staff01"}, entity.StatusCompleted},
	}

	for _, step := range steps {
		updated, err := engine.Transition(ctx, 4, step.trigger, step.action)
		if err != nil {
			t.Fatalf("%s: %v", step.trigger, err)
		}
		if updated.Status != step.wantStatus {
			t.Fatalf("%s: status = %s, want %s", step.trigger, updated.Status, step.wantStatus)
		}
	}

	final, _ := repo.GetByID(ctx, 4)
	if final.PaymentVerifiedAt == nil || final.ReviewedAt == nil {
		t.Error("evidence timestamps missing after full cycle")
	}
	if final.GeneratedDocumentURL != "/generated/BRGY-1.pdf" {
		t.Errorf("generated URL = %q", final.GeneratedDocumentURL)
	}
	if len(history.entries) != len(steps) {
		t.Errorf("history entries = %d, want %d", len(history.entries), len(steps))
	}
	last := history.entries[len(history.entries)-1]
	if last.NewStatus != entity.StatusCompleted {
		t.Errorf("last history status = %s, want completed", last.NewStatus)
	}

	// Cash generation happened only after payment was collected.
	for i, u := range repo.updates {
		if u.NewStatus == entity.StatusProcessing && final.PaymentVerifiedAt == nil {
			t.Errorf("update %d: generation before payment", i)
		}
	}
}

// Generation for unpaid cash requests is denied even though documents are approved.
func TestEngine_CashGenerationRequiresPayment(t *testing.T) {
	req := request(5, "50", entity.PaymentMethodWalkIn, entity.StatusApproved)
	now := time.Now()
	req.ReviewedAt = &now
	repo := newFakeRequestRepo(req)
	engine := newTestEngine(repo, &fakeHistoryRepo{})

	_, err := engine.Transition(context.Background(), 5, domainwf.TriggerGenerateDocument, Action{Actor: "staff01"})
	if !errors.Is(err, domainwf.ErrGuardFailed) {
		t.Fatalf("error = %v, want ErrGuardFailed", err)
	}
}

// Rejection requires a reason and is terminal.
func TestEngine_RejectionTerminality(t *testing.T) {
	repo := newFakeRequestRepo(request(6, "50", entity.PaymentMethodWalkIn, entity.StatusPending))
	engine := newTestEngine(repo, &fakeHistoryRepo{})
	ctx := context.Background()

	_, err := engine.Transition(ctx, 6, domainwf.TriggerRejectDocuments, Action{Actor: "staff01"})
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("empty reason: error = %v, want ErrReasonRequired", err)
	}

	updated, err := engine.Transition(ctx, 6, domainwf.TriggerRejectDocuments, Action{Actor: "staff01", Reason: "incomplete requirements"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if updated.Status != entity.StatusRejected {
		t.Errorf("status = %s, want rejected", updated.Status)
	}
	if updated.RejectionReason != "incomplete requirements" {
		t.Errorf("rejection reason = %q", updated.RejectionReason)
	}

	triggers := []domainwf.Trigger{
		domainwf.TriggerVerifyPayment,
		domainwf.TriggerApproveDocuments,
		domainwf.TriggerGenerateDocument,
		domainwf.TriggerMarkReady,
		domainwf.TriggerComplete,
	}
	for _, trigger := range triggers {
		if _, err := engine.Transition(ctx, 6, trigger, Action{Actor: "staff01", Reason: "x"}); err == nil {
			t.Errorf("%s succeeded on a rejected request", trigger)
		}
	}
}

// Cash reject-payment from approved preserves reviewedAt as an audit fact.
func TestEngine_CashRejectPaymentKeepsReviewEvidence(t *testing.T) {
	req := request(7, "50", entity.PaymentMethodWalkIn, entity.StatusApproved)
	reviewed := time.Now().Add(-time.Hour)
	req.ReviewedAt = &reviewed
	req.ReviewedBy = "staff01"
	repo := newFakeRequestRepo(req)
	engine := newTestEngine(repo, &fakeHistoryRepo{})

	updated, err := engine.Transition(context.Background(), 7, domainwf.TriggerRejectPayment, Action{Actor: "treasurer01", Reason: "did not show up to pay"})
	if err != nil {
		t.Fatalf("reject payment: %v", err)
	}
	if updated.Status != entity.StatusRejected {
		t.Errorf("status = %s, want rejected", updated.Status)
	}
	if updated.ReviewedAt == nil || updated.ReviewedBy != "staff01" {
		t.Error("review evidence was cleared on payment rejection")
	}
}

// markReadyForPickup is only legal from processing; repeating it is denied.
func TestEngine_MarkReadyIdempotenceGuard(t *testing.T) {
	repo := newFakeRequestRepo(request(8, "0", entity.PaymentMethodWalkIn, entity.StatusProcessing))
	engine := newTestEngine(repo, &fakeHistoryRepo{})
	ctx := context.Background()

	if _, err := engine.Transition(ctx, 8, domainwf.TriggerMarkReady, Action{Actor: "system"}); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if _, err := engine.Transition(ctx, 8, domainwf.TriggerMarkReady, Action{Actor: "system"}); err == nil {
		t.Fatal("second mark ready must be denied")
	}
}

func TestEngine_ConflictSurfaces(t *testing.T) {
	repo := newFakeRequestRepo(request(9, "0", entity.PaymentMethodWalkIn, entity.StatusPending))
	ctx := context.Background()

	// Simulate a concurrent writer flipping the status between fetch and update.
	base := repo.requests[9]
	flipped := false
	wrapped := &conflictingRepo{fakeRequestRepo: repo, flipAfterRead: func() {
		if !flipped {
			base.Status = entity.StatusRejected
			flipped = true
		}
	}}
	engine := NewEngine(wrapped, &fakeHistoryRepo{}, fakeTxManager{}, nopLogger{})

	_, err := engine.Transition(ctx, 9, domainwf.TriggerApproveDocuments, Action{Actor: "staff01"})
	if !errors.Is(err, port.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

type conflictingRepo struct {
	*fakeRequestRepo
	flipAfterRead func()
}

func (c *conflictingRepo) GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error) {
	req, err := c.fakeRequestRepo.GetByID(ctx, id)
	c.flipAfterRead()
	return req, err
}

// vanishingRepo drops the record after the update so the refetch misses
type vanishingRepo struct {
	*fakeRequestRepo
}

func (v *vanishingRepo) UpdateStatus(ctx context.Context, id int64, expected string, update port.StatusUpdate) error {
	if err := v.fakeRequestRepo.UpdateStatus(ctx, id, expected, update); err != nil {
		return err
	}
	delete(v.requests, id)
	return nil
}

func TestEngine_RecordDeletedDuringTransition(t *testing.T) {
	repo := newFakeRequestRepo(request(11, "0", entity.PaymentMethodWalkIn, entity.StatusReadyForPickup))
	engine := NewEngine(&vanishingRepo{fakeRequestRepo: repo}, &fakeHistoryRepo{}, fakeTxManager{}, nopLogger{})

	req, err := engine.Transition(context.Background(), 11, domainwf.TriggerComplete, Action{Actor: "staff01"})
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("error = %v, want ErrRequestNotFound", err)
	}
	if req != nil {
		t.Fatalf("request = %+v, want nil on a failed refetch", req)
	}
}

func TestEngine_RequestNotFound(t *testing.T) {
	engine := newTestEngine(newFakeRequestRepo(), &fakeHistoryRepo{})
	_, err := engine.Transition(context.Background(), 99, domainwf.TriggerComplete, Action{Actor: "staff01"})
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("error = %v, want ErrRequestNotFound", err)
	}
}

func TestEngine_PermittedTriggers(t *testing.T) {
	repo := newFakeRequestRepo(request(10, "50", entity.PaymentMethodOnline, entity.StatusPending))
	engine := newTestEngine(repo, &fakeHistoryRepo{})

	triggers, err := engine.PermittedTriggers(context.Background(), 10)
	if err != nil {
		t.Fatalf("PermittedTriggers: %v", err)
	}

	want := map[domainwf.Trigger]bool{
		domainwf.TriggerVerifyPayment: true,
		domainwf.TriggerRejectPayment: true,
	}
	if len(triggers) != len(want) {
		t.Fatalf("triggers = %v, want verify/reject payment only", triggers)
	}
	for _, tr := range triggers {
		if !want[tr] {
			t.Errorf("unexpected permitted trigger %s", tr)
		}
	}
}
