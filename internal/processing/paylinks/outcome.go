package paylinks

import (
	"regexp"
	"strings"
)

// OutcomeKind classifies one probe of a payment page.
type OutcomeKind int

const (
	// OutcomeSucceeded means the page reports a completed payment.
	OutcomeSucceeded OutcomeKind = iota + 1
	// OutcomeFailed means the page itself reports a failed payment.
	OutcomeFailed
	// OutcomeMalformed means the page matched neither the failure marker nor
	// any success token: the probe is untrustworthy, not a payment failure.
	OutcomeMalformed
	// OutcomeFetchFailed means the page could not be fetched at all.
	OutcomeFetchFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeFetchFailed:
		return "fetch_failed"
	}
	return "unknown"
}

// Outcome is the classified result of one probe. TransactionRef and
// AmountDisplay are only meaningful for OutcomeSucceeded and either may be
// empty when the page carried just one of the two tokens. ReasonCode is set
// for OutcomeFailed, StatusText for OutcomeFetchFailed.
type Outcome struct {
	Kind           OutcomeKind
	TransactionRef string
	AmountDisplay  string
	ReasonCode     string
	StatusText     string
}

// failureMarker is the phrase the payment provider renders on a failed
// payment page. Matched case-insensitively and before any token extraction.
const failureMarker = "sorry, something went wrong"

var (
	transactionRefRe = regexp.MustCompile(`Transaction No\.?:?\s*(\d+)`)
	amountDisplayRe  = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s*AED`)
)

// ParseOutcome classifies raw page text. The failure marker wins over any
// success tokens also present; a page with only one of the two success
// tokens still counts as succeeded, with the missing token left empty.
func ParseOutcome(pageText string) Outcome {
	if strings.Contains(strings.ToLower(pageText), failureMarker) {
		return Outcome{Kind: OutcomeFailed, ReasonCode: ErrCodePaymentFailed}
	}

	var out Outcome
	if m := transactionRefRe.FindStringSubmatch(pageText); m != nil {
		out.TransactionRef = m[1]
	}
	if m := amountDisplayRe.FindStringSubmatch(pageText); m != nil {
		out.AmountDisplay = m[1]
	}

	if out.TransactionRef == "" && out.AmountDisplay == "" {
		return Outcome{Kind: OutcomeMalformed}
	}

	out.Kind = OutcomeSucceeded
	return out
}
