package paylinks

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ysalameh/paywatch/internal/events"
)

type Service struct {
	repo   LinkRepository
	prober Prober
	sink   UpdateSink
	now    func() time.Time
}

func NewService(repo LinkRepository, prober Prober, sink UpdateSink) *Service {
	return &Service{
		repo:   repo,
		prober: prober,
		sink:   sink,
		now:    time.Now,
	}
}

func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*Link, error) {
	normalizedURL, err := validateAndNormalizeURL(in.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if in.AmountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	link := &Link{
		ID:          uuid.New().String(),
		OwnerID:     in.OwnerID,
		URL:         normalizedURL,
		AmountMinor: in.AmountMinor,
		Status:      StatusActive,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// ListLinks returns the caller's non-archived links, the authoritative state
// clients re-fetch after a notification.
func (s *Service) ListLinks(ctx context.Context, ownerID string) ([]*Link, error) {
	return s.repo.ListActive(ctx, ownerID)
}

func (s *Service) GetLink(ctx context.Context, ownerID, id string) (*Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return link, nil
}

// RenewLink replaces the target URL and resets the link to its created-state
// fields: status active, no error code, no transaction reference, no
// collected amount.
func (s *Service) RenewLink(ctx context.Context, ownerID, id, rawURL string) (*Link, error) {
	normalizedURL, err := validateAndNormalizeURL(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	return s.repo.SetURL(ctx, id, ownerID, normalizedURL)
}

// ArchiveLink removes the link from the reconciliation set for good; the
// record stays readable.
func (s *Service) ArchiveLink(ctx context.Context, ownerID, id string) (*Link, error) {
	return s.repo.Archive(ctx, id, ownerID)
}

func (s *Service) DeleteLink(ctx context.Context, ownerID, id string) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// CheckNow probes one link immediately, outside the fixed cadence. Used by
// the trigger endpoint after a create or renew.
func (s *Service) CheckNow(ctx context.Context, ownerID, id string) (*Link, error) {
	link, err := s.GetLink(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if link.Archived {
		return nil, ErrArchived
	}
	return s.CheckLink(ctx, link)
}

// CheckLink probes the given link and applies the resulting status mutation
// atomically, then emits one update notification regardless of whether the
// classification changed. ErrNotFound from the store means the link was
// deleted concurrently; callers skip it.
func (s *Service) CheckLink(ctx context.Context, link *Link) (*Link, error) {
	outcome := s.prober.Probe(ctx, link.URL)

	updated, err := s.ApplyOutcome(ctx, link.ID, outcome)
	if err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, events.LinkUpdate{
		Type: events.TypeLinkUpdate,
		Data: events.LinkUpdateData{
			ID:             updated.ID,
			OwnerID:        updated.OwnerID,
			Status:         string(updated.Status),
			ErrorCode:      updated.ErrorCode,
			TransactionRef: updated.TransactionRef,
			AmountDisplay:  updated.AmountDisplay,
			LastCheckedAt:  updated.LastCheckedAt,
		},
	})

	return updated, nil
}

// ApplyOutcome maps a probe outcome to a stored status mutation. The
// last-checked timestamp always advances, even when nothing else changes.
func (s *Service) ApplyOutcome(ctx context.Context, id string, outcome Outcome) (*Link, error) {
	in := ApplyStatusInput{CheckedAt: s.now().UTC()}

	switch outcome.Kind {
	case OutcomeSucceeded:
		in.Status = StatusActive
		if outcome.TransactionRef != "" {
			ref := outcome.TransactionRef
			in.TransactionRef = &ref
		}
		if outcome.AmountDisplay != "" {
			amt := outcome.AmountDisplay
			in.AmountDisplay = &amt
		}
	case OutcomeFailed:
		in.Status = StatusError
		in.ErrorCode = outcome.ReasonCode
	case OutcomeMalformed:
		in.Status = StatusError
		in.ErrorCode = ErrCodePageMalformed
	case OutcomeFetchFailed:
		in.Status = StatusError
		in.ErrorCode = ErrCodeUnreachable
	default:
		return nil, errors.New("unknown probe outcome")
	}

	return s.repo.ApplyStatus(ctx, id, in)
}

func validateAndNormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidURL
	}

	u.Fragment = ""
	return u.String(), nil
}
