package giftcard

import "context"

// IdentityResolver looks up an owner identity by contact address.
// Used for first-use binding display flows and ownership transfer.
type IdentityResolver interface {
	LookupByEmail(ctx context.Context, address EmailAddress) (UserID, bool, error)
}

// TransferNotifier receives a callback after a successful ownership
// transfer. Delivery is the collaborator's concern.
type TransferNotifier interface {
	CardTransferred(ctx context.Context, card Card, previousEmail EmailAddress) error
}
