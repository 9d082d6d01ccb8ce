package giftcard

import "slices"

// Status is a card's derived lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusRedeemed Status = "redeemed"
	StatusExpired  Status = "expired"
)

// String returns the status label.
func (status Status) String() string {
	return string(status)
}

// StatusOf derives the lifecycle state from balance and expiration.
// Expiration takes precedence over a zero balance.
func StatusOf(currentValueCents AmountCents, expiresAtUnixUTC int64, nowUnixUTC int64) Status {
	if nowUnixUTC > expiresAtUnixUTC {
		return StatusExpired
	}
	if currentValueCents <= 0 {
		return StatusRedeemed
	}
	return StatusActive
}

// IsExpired is the expiration check alone, without the balance check.
// Apply needs this form.
func IsExpired(expiresAtUnixUTC int64, nowUnixUTC int64) bool {
	return nowUnixUTC > expiresAtUnixUTC
}

// statusRank orders active before redeemed before expired.
func statusRank(status Status) int {
	switch status {
	case StatusActive:
		return 0
	case StatusRedeemed:
		return 1
	default:
		return 2
	}
}

// CompareByExpiration orders most-recent-expiration first. This is the
// default listing order.
func CompareByExpiration(first Card, second Card) int {
	switch {
	case first.ExpiresAtUnixUTC > second.ExpiresAtUnixUTC:
		return -1
	case first.ExpiresAtUnixUTC < second.ExpiresAtUnixUTC:
		return 1
	default:
		return 0
	}
}

// CompareByStatusThenExpiration groups active before redeemed before
// expired, breaking ties by descending expiration date.
func CompareByStatusThenExpiration(nowUnixUTC int64) func(first Card, second Card) int {
	return func(first Card, second Card) int {
		firstRank := statusRank(first.Status(nowUnixUTC))
		secondRank := statusRank(second.Status(nowUnixUTC))
		if firstRank != secondRank {
			return firstRank - secondRank
		}
		return CompareByExpiration(first, second)
	}
}

// SortCards sorts cards in place using the supplied comparator.
func SortCards(cards []Card, compare func(first Card, second Card) int) {
	slices.SortStableFunc(cards, compare)
}

// SortableAttribute pairs a display label with its storage column.
type SortableAttribute struct {
	Label  string
	Column string
}

// SortableAttributes returns the fields listings may sort on.
func SortableAttributes() []SortableAttribute {
	return []SortableAttribute{
		{Label: "Creation Date", Column: "created_at"},
		{Label: "Expiration Date", Column: "expiration_date"},
		{Label: "Redemption Code", Column: "code"},
		{Label: "Current Balance", Column: "current_value"},
		{Label: "Original Balance", Column: "original_value"},
		{Label: "Note", Column: "note"},
	}
}
