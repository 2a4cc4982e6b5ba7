package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ysalameh/paywatch/internal/events"
)

// fakeConn records written frames and signals each data write on a channel.
type fakeConn struct {
	mu       sync.Mutex
	writeErr error
	closed   bool
	frames   chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 32)}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if messageType == websocket.TextMessage {
		c.frames <- data
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) failWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = errors.New("broken pipe")
}

func (c *fakeConn) waitFrame(t *testing.T) []byte {
	t.Helper()
	select {
	case f := <-c.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func (c *fakeConn) expectNoFrame(t *testing.T) {
	t.Helper()
	select {
	case f := <-c.frames:
		t.Fatalf("unexpected frame: %s", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func update(owner string) events.LinkUpdate {
	return events.LinkUpdate{
		Type: events.TypeLinkUpdate,
		Data: events.LinkUpdateData{ID: "l1", OwnerID: owner, Status: "active"},
	}
}

func TestHub_PublishReachesOwnerSessionsOnly(t *testing.T) {
	hub := NewHub()
	acmeConn := newFakeConn()
	globexConn := newFakeConn()
	hub.Register("acme", acmeConn)
	hub.Register("globex", globexConn)
	defer hub.CloseAll()

	hub.Publish(context.Background(), update("acme"))

	frame := acmeConn.waitFrame(t)
	var got events.LinkUpdate
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("frame is not valid json: %v", err)
	}
	if got.Type != events.TypeLinkUpdate || got.Data.OwnerID != "acme" {
		t.Errorf("unexpected payload: %+v", got)
	}

	globexConn.expectNoFrame(t)
}

func TestHub_AllSessionsOfOwnerReceive(t *testing.T) {
	hub := NewHub()
	first := newFakeConn()
	second := newFakeConn()
	hub.Register("acme", first)
	hub.Register("acme", second)
	defer hub.CloseAll()

	hub.Publish(context.Background(), update("acme"))

	first.waitFrame(t)
	second.waitFrame(t)
}

func TestHub_DeadSessionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	dead := newFakeConn()
	alive := newFakeConn()
	deadSession := hub.Register("acme", dead)
	hub.Register("acme", alive)
	defer hub.CloseAll()

	dead.failWrites()

	hub.Publish(context.Background(), update("acme"))
	alive.waitFrame(t)

	// The failed write tears the dead session down; the survivor keeps
	// receiving.
	hub.Publish(context.Background(), update("acme"))
	alive.waitFrame(t)

	hub.Unregister(deadSession)
}

func TestHub_ActiveOwners(t *testing.T) {
	hub := NewHub()
	s1 := hub.Register("acme", newFakeConn())
	hub.Register("acme", newFakeConn())
	hub.Register("globex", newFakeConn())
	defer hub.CloseAll()

	owners := hub.ActiveOwners()
	sort.Strings(owners)
	if len(owners) != 2 || owners[0] != "acme" || owners[1] != "globex" {
		t.Fatalf("got owners %v, want [acme globex]", owners)
	}

	hub.Unregister(s1)
	owners = hub.ActiveOwners()
	sort.Strings(owners)
	if len(owners) != 2 {
		t.Fatalf("one of two acme sessions removed, got owners %v", owners)
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	s := hub.Register("acme", conn)

	hub.Unregister(s)
	hub.Unregister(s)

	if owners := hub.ActiveOwners(); len(owners) != 0 {
		t.Fatalf("expected no active owners, got %v", owners)
	}
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("expected the connection to be closed")
	}
}
