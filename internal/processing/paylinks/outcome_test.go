package paylinks

import "testing"

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name     string
		pageText string
		want     Outcome
	}{
		{
			"both tokens present",
			"Payment received. Transaction No: 12345 Amount 100.00 AED",
			Outcome{Kind: OutcomeSucceeded, TransactionRef: "12345", AmountDisplay: "100.00"},
		},
		{
			"transaction token only",
			"Receipt Transaction No: 998877",
			Outcome{Kind: OutcomeSucceeded, TransactionRef: "998877"},
		},
		{
			"amount token only",
			"You paid 1,250.50 AED today",
			Outcome{Kind: OutcomeSucceeded, AmountDisplay: "1,250.50"},
		},
		{
			"transaction with dot and no colon",
			"Transaction No. 42",
			Outcome{Kind: OutcomeSucceeded, TransactionRef: "42"},
		},
		{
			"amount without decimals",
			"Total: 500 AED",
			Outcome{Kind: OutcomeSucceeded, AmountDisplay: "500"},
		},
		{
			"failure marker",
			"Sorry, something went wrong. Please try again.",
			Outcome{Kind: OutcomeFailed, ReasonCode: ErrCodePaymentFailed},
		},
		{
			"failure marker is case insensitive",
			"SORRY, SOMETHING WENT WRONG",
			Outcome{Kind: OutcomeFailed, ReasonCode: ErrCodePaymentFailed},
		},
		{
			"failure marker wins over success tokens",
			"Transaction No: 12345 Amount 100.00 AED ... sorry, something went wrong",
			Outcome{Kind: OutcomeFailed, ReasonCode: ErrCodePaymentFailed},
		},
		{
			"no tokens at all",
			"<html><body>Loading...</body></html>",
			Outcome{Kind: OutcomeMalformed},
		},
		{
			"empty page",
			"",
			Outcome{Kind: OutcomeMalformed},
		},
		{
			"amount must precede AED",
			"AED 100.00",
			Outcome{Kind: OutcomeMalformed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOutcome(tt.pageText)
			if got != tt.want {
				t.Errorf("ParseOutcome(%q) = %+v, want %+v", tt.pageText, got, tt.want)
			}
		})
	}
}

func TestOutcomeKindString(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeSucceeded, "succeeded"},
		{OutcomeFailed, "failed"},
		{OutcomeMalformed, "malformed"},
		{OutcomeFetchFailed, "fetch_failed"},
		{OutcomeKind(0), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("OutcomeKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
