package events

import "time"

// TypeLinkUpdate is the only message type websocket clients are required to
// interpret; the payload is a hint to re-fetch, not a source of truth.
const TypeLinkUpdate = "payment_link_update"

// LinkUpdate is emitted once per examined link, whether or not its status
// actually changed.
type LinkUpdate struct {
	Type string         `json:"type"`
	Data LinkUpdateData `json:"data"`
}

type LinkUpdateData struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	Status         string    `json:"status"`
	ErrorCode      string    `json:"errorCode,omitempty"`
	TransactionRef string    `json:"transactionRef,omitempty"`
	AmountDisplay  string    `json:"amountDisplay,omitempty"`
	LastCheckedAt  time.Time `json:"lastCheckedAt"`
}
