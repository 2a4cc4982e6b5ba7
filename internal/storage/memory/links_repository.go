package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ysalameh/paywatch/internal/processing/paylinks"
)

// LinksRepository is an in-memory paylinks.LinkRepository used by tests and
// the memory storage backend. Safe for concurrent use.
type LinksRepository struct {
	mu    sync.RWMutex
	links map[string]paylinks.Link
}

func NewLinksRepository() *LinksRepository {
	return &LinksRepository{
		links: make(map[string]paylinks.Link),
	}
}

func (r *LinksRepository) Insert(_ context.Context, link *paylinks.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links[link.ID] = *link
	return nil
}

func (r *LinksRepository) ListActive(_ context.Context, ownerID string) ([]*paylinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*paylinks.Link
	for _, link := range r.links {
		if link.OwnerID == ownerID && !link.Archived {
			l := link
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *LinksRepository) FindByID(_ context.Context, id string) (*paylinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[id]
	if !ok {
		return nil, paylinks.ErrNotFound
	}
	return &link, nil
}

func (r *LinksRepository) ApplyStatus(_ context.Context, id string, in paylinks.ApplyStatusInput) (*paylinks.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return nil, paylinks.ErrNotFound
	}

	link.Status = in.Status
	link.LastCheckedAt = in.CheckedAt
	if in.Status == paylinks.StatusError {
		link.ErrorCode = in.ErrorCode
	} else {
		link.ErrorCode = ""
	}
	if in.TransactionRef != nil {
		link.TransactionRef = *in.TransactionRef
	}
	if in.AmountDisplay != nil {
		link.AmountDisplay = *in.AmountDisplay
	}

	r.links[id] = link
	return &link, nil
}

func (r *LinksRepository) SetURL(_ context.Context, id, ownerID, url string) (*paylinks.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return nil, paylinks.ErrNotFound
	}
	if link.OwnerID != ownerID {
		return nil, paylinks.ErrNotOwner
	}

	link.URL = url
	link.Status = paylinks.StatusActive
	link.ErrorCode = ""
	link.TransactionRef = ""
	link.AmountDisplay = ""

	r.links[id] = link
	return &link, nil
}

func (r *LinksRepository) Archive(_ context.Context, id, ownerID string) (*paylinks.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return nil, paylinks.ErrNotFound
	}
	if link.OwnerID != ownerID {
		return nil, paylinks.ErrNotOwner
	}

	link.Archived = true
	r.links[id] = link
	return &link, nil
}

func (r *LinksRepository) Delete(_ context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return false, nil
	}
	if link.OwnerID != ownerID {
		return false, paylinks.ErrNotOwner
	}

	delete(r.links, id)
	return true, nil
}
