package paylinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ysalameh/paywatch/internal/events"
)

// --- Hand-written mocks ---

type mockLinkRepo struct {
	insertFn      func(ctx context.Context, link *Link) error
	listActiveFn  func(ctx context.Context, ownerID string) ([]*Link, error)
	findByIDFn    func(ctx context.Context, id string) (*Link, error)
	applyStatusFn func(ctx context.Context, id string, in ApplyStatusInput) (*Link, error)
	setURLFn      func(ctx context.Context, id, ownerID, url string) (*Link, error)
	archiveFn     func(ctx context.Context, id, ownerID string) (*Link, error)
	deleteFn      func(ctx context.Context, id, ownerID string) (bool, error)
}

func (m *mockLinkRepo) Insert(ctx context.Context, link *Link) error {
	return m.insertFn(ctx, link)
}
func (m *mockLinkRepo) ListActive(ctx context.Context, ownerID string) ([]*Link, error) {
	return m.listActiveFn(ctx, ownerID)
}
func (m *mockLinkRepo) FindByID(ctx context.Context, id string) (*Link, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockLinkRepo) ApplyStatus(ctx context.Context, id string, in ApplyStatusInput) (*Link, error) {
	return m.applyStatusFn(ctx, id, in)
}
func (m *mockLinkRepo) SetURL(ctx context.Context, id, ownerID, url string) (*Link, error) {
	return m.setURLFn(ctx, id, ownerID, url)
}
func (m *mockLinkRepo) Archive(ctx context.Context, id, ownerID string) (*Link, error) {
	return m.archiveFn(ctx, id, ownerID)
}
func (m *mockLinkRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return m.deleteFn(ctx, id, ownerID)
}

type mockProber struct {
	outcome Outcome
}

func (m *mockProber) Probe(context.Context, string) Outcome { return m.outcome }

type recordingSink struct {
	published []events.LinkUpdate
}

func (r *recordingSink) Publish(_ context.Context, ev events.LinkUpdate) {
	r.published = append(r.published, ev)
}

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockLinkRepo, prober Prober, sink *recordingSink) *Service {
	if prober == nil {
		prober = &mockProber{}
	}
	if sink == nil {
		sink = &recordingSink{}
	}
	svc := NewService(repo, prober, sink)
	svc.now = func() time.Time { return testNow }
	return svc
}

// --- Tests for validateAndNormalizeURL ---

func TestValidateAndNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"valid https", "https://example.com/pay", "https://example.com/pay", false},
		{"valid http", "http://example.com", "http://example.com", false},
		{"strips fragment", "https://example.com/pay#receipt", "https://example.com/pay", false},
		{"empty string", "", "", true},
		{"bad scheme ftp", "ftp://example.com", "", true},
		{"no scheme", "example.com", "", true},
		{"missing host", "https://", "", true},
		{"whitespace trimmed", "  https://example.com  ", "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateAndNormalizeURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Tests for Service ---

func TestCreateLink_HappyPath(t *testing.T) {
	var inserted *Link
	repo := &mockLinkRepo{
		insertFn: func(_ context.Context, link *Link) error {
			inserted = link
			return nil
		},
	}
	svc := newTestService(repo, nil, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OwnerID:     "acme",
		URL:         "https://pay.example.com/p/1",
		AmountMinor: 10000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if link.ID == "" {
		t.Error("expected a generated id")
	}
	if link.Status != StatusActive {
		t.Errorf("got status %q, want %q", link.Status, StatusActive)
	}
	if !link.CreatedAt.Equal(testNow) {
		t.Errorf("got createdAt %v, want %v", link.CreatedAt, testNow)
	}
	if inserted == nil || inserted.ID != link.ID {
		t.Error("expected the link to be inserted")
	}
}

func TestCreateLink_InvalidURL(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, nil, nil)

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "acme", URL: "not-a-url", AmountMinor: 100})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got: %v", err)
	}
}

func TestCreateLink_InvalidAmount(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, nil, nil)

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "acme", URL: "https://example.com", AmountMinor: 0})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
}

func TestGetLink_EmptyID(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, nil, nil)

	_, err := svc.GetLink(context.Background(), "acme", "  ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetLink_WrongOwner(t *testing.T) {
	repo := &mockLinkRepo{
		findByIDFn: func(_ context.Context, id string) (*Link, error) {
			return &Link{ID: id, OwnerID: "acme"}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.GetLink(context.Background(), "globex", "l1")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got: %v", err)
	}
}

func TestRenewLink_InvalidURL(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, nil, nil)

	_, err := svc.RenewLink(context.Background(), "acme", "l1", "ftp://example.com")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got: %v", err)
	}
}

func TestDeleteLink_NotFound(t *testing.T) {
	repo := &mockLinkRepo{
		deleteFn: func(_ context.Context, _, _ string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	err := svc.DeleteLink(context.Background(), "acme", "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestCheckNow_Archived(t *testing.T) {
	repo := &mockLinkRepo{
		findByIDFn: func(_ context.Context, id string) (*Link, error) {
			return &Link{ID: id, OwnerID: "acme", Archived: true}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.CheckNow(context.Background(), "acme", "l1")
	if !errors.Is(err, ErrArchived) {
		t.Fatalf("expected ErrArchived, got: %v", err)
	}
}

func TestCheckLink_PublishesUpdate(t *testing.T) {
	updated := &Link{
		ID:             "l1",
		OwnerID:        "acme",
		Status:         StatusActive,
		TransactionRef: "12345",
		AmountDisplay:  "100.00",
		LastCheckedAt:  testNow,
	}
	repo := &mockLinkRepo{
		applyStatusFn: func(_ context.Context, _ string, _ ApplyStatusInput) (*Link, error) {
			return updated, nil
		},
	}
	prober := &mockProber{outcome: Outcome{Kind: OutcomeSucceeded, TransactionRef: "12345", AmountDisplay: "100.00"}}
	sink := &recordingSink{}
	svc := newTestService(repo, prober, sink)

	got, err := svc.CheckLink(context.Background(), &Link{ID: "l1", OwnerID: "acme", URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if got != updated {
		t.Error("expected the stored link back")
	}
	if len(sink.published) != 1 {
		t.Fatalf("expected 1 published update, got %d", len(sink.published))
	}
	ev := sink.published[0]
	if ev.Type != events.TypeLinkUpdate {
		t.Errorf("got event type %q, want %q", ev.Type, events.TypeLinkUpdate)
	}
	if ev.Data.ID != "l1" || ev.Data.OwnerID != "acme" || ev.Data.TransactionRef != "12345" {
		t.Errorf("unexpected event payload: %+v", ev.Data)
	}
}

func TestCheckLink_DeletedConcurrently(t *testing.T) {
	repo := &mockLinkRepo{
		applyStatusFn: func(_ context.Context, _ string, _ ApplyStatusInput) (*Link, error) {
			return nil, ErrNotFound
		},
	}
	sink := &recordingSink{}
	svc := newTestService(repo, &mockProber{outcome: Outcome{Kind: OutcomeMalformed}}, sink)

	_, err := svc.CheckLink(context.Background(), &Link{ID: "gone", OwnerID: "acme", URL: "https://example.com"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if len(sink.published) != 0 {
		t.Errorf("expected no update for a vanished link, got %d", len(sink.published))
	}
}

func TestApplyOutcome_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		outcome    Outcome
		wantStatus Status
		wantCode   string
		wantRef    *string
		wantAmount *string
	}{
		{
			"succeeded with both tokens",
			Outcome{Kind: OutcomeSucceeded, TransactionRef: "12345", AmountDisplay: "100.00"},
			StatusActive, "", strPtr("12345"), strPtr("100.00"),
		},
		{
			"succeeded with missing tokens leaves stored values alone",
			Outcome{Kind: OutcomeSucceeded},
			StatusActive, "", nil, nil,
		},
		{
			"failed",
			Outcome{Kind: OutcomeFailed, ReasonCode: ErrCodePaymentFailed},
			StatusError, ErrCodePaymentFailed, nil, nil,
		},
		{
			"malformed",
			Outcome{Kind: OutcomeMalformed},
			StatusError, ErrCodePageMalformed, nil, nil,
		},
		{
			"fetch failed",
			Outcome{Kind: OutcomeFetchFailed, StatusText: "503 Service Unavailable"},
			StatusError, ErrCodeUnreachable, nil, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured ApplyStatusInput
			repo := &mockLinkRepo{
				applyStatusFn: func(_ context.Context, _ string, in ApplyStatusInput) (*Link, error) {
					captured = in
					return &Link{ID: "l1"}, nil
				},
			}
			svc := newTestService(repo, nil, nil)

			if _, err := svc.ApplyOutcome(context.Background(), "l1", tt.outcome); err != nil {
				t.Fatal(err)
			}

			if captured.Status != tt.wantStatus {
				t.Errorf("got status %q, want %q", captured.Status, tt.wantStatus)
			}
			if captured.ErrorCode != tt.wantCode {
				t.Errorf("got error code %q, want %q", captured.ErrorCode, tt.wantCode)
			}
			if !samePtr(captured.TransactionRef, tt.wantRef) {
				t.Errorf("got transaction ref %v, want %v", deref(captured.TransactionRef), deref(tt.wantRef))
			}
			if !samePtr(captured.AmountDisplay, tt.wantAmount) {
				t.Errorf("got amount display %v, want %v", deref(captured.AmountDisplay), deref(tt.wantAmount))
			}
			if !captured.CheckedAt.Equal(testNow) {
				t.Errorf("got checkedAt %v, want %v", captured.CheckedAt, testNow)
			}
		})
	}
}

func TestApplyOutcome_UnknownKind(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, nil, nil)

	if _, err := svc.ApplyOutcome(context.Background(), "l1", Outcome{}); err == nil {
		t.Fatal("expected an error for an unknown outcome kind")
	}
}

func strPtr(s string) *string { return &s }

func samePtr(got, want *string) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	return *got == *want
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
