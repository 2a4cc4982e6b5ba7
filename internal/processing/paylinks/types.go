package paylinks

import "time"

// Status classifies a link's last observed state.
type Status string

const (
	StatusActive Status = "active"
	StatusError  Status = "error"
)

// Error codes stored on a link when Status is StatusError. They let a viewer
// tell "the payment failed" apart from "we could not read the page" and
// "we could not reach the page".
const (
	ErrCodePaymentFailed = "payment_failed"
	ErrCodePageMalformed = "page_malformed"
	ErrCodeUnreachable   = "unreachable"
)

type Link struct {
	ID             string
	OwnerID        string
	URL            string
	AmountMinor    int64
	Status         Status
	ErrorCode      string
	TransactionRef string
	AmountDisplay  string
	Archived       bool
	LastCheckedAt  time.Time
	CreatedAt      time.Time
}

type CreateLinkInput struct {
	OwnerID     string
	URL         string
	AmountMinor int64
}

// ApplyStatusInput is the atomic status mutation produced from one probe
// outcome. Nil optional fields leave the stored value untouched.
type ApplyStatusInput struct {
	Status         Status
	ErrorCode      string
	TransactionRef *string
	AmountDisplay  *string
	CheckedAt      time.Time
}
