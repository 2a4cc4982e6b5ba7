package paylinks

import (
	"context"
	"errors"

	"github.com/ysalameh/paywatch/internal/events"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrNotOwner      = errors.New("link not owned by caller")
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrArchived      = errors.New("link archived")
)

type LinkRepository interface {
	Insert(ctx context.Context, link *Link) error
	ListActive(ctx context.Context, ownerID string) ([]*Link, error)
	FindByID(ctx context.Context, id string) (*Link, error)
	ApplyStatus(ctx context.Context, id string, in ApplyStatusInput) (*Link, error)
	SetURL(ctx context.Context, id, ownerID, url string) (*Link, error)
	Archive(ctx context.Context, id, ownerID string) (*Link, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}

// UpdateSink receives one notification per examined link. Delivery is
// best-effort; consumers re-fetch authoritative state.
type UpdateSink interface {
	Publish(ctx context.Context, ev events.LinkUpdate)
}

// Prober runs one fetch-and-classify pass against a link URL.
type Prober interface {
	Probe(ctx context.Context, url string) Outcome
}
