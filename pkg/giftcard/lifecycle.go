package giftcard

import (
	"context"
	"fmt"
)

// SoftDelete marks the card deleted. The card and its calculator are
// retained; default queries stop returning it.
func (service *Service) SoftDelete(ctx context.Context, cardID CardID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetCard(ctx, cardID, false); err != nil {
			return err
		}
		return transactionStore.SoftDeleteCard(ctx, cardID, service.nowFn())
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationSoftDelete,
		CardID:    cardID,
		Error:     operationError,
	})
	return operationError
}

// Restore clears the soft-delete marker. The prior calculator identity
// is untouched; nothing is re-created.
func (service *Service) Restore(ctx context.Context, cardID CardID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		card, err := transactionStore.GetCard(ctx, cardID, true)
		if err != nil {
			return err
		}
		if !card.Deleted() {
			return nil
		}
		return transactionStore.RestoreCard(ctx, cardID)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRestore,
		CardID:    cardID,
		Error:     operationError,
	})
	return operationError
}

// TransferInput carries the new contact details for an ownership transfer.
type TransferInput struct {
	Email EmailAddress
	Note  string
}

// Transfer reassigns a card to the owner registered under the given
// contact address. An unknown address still updates the contact
// metadata but leaves the card unowned. Balance and ledger state are
// never touched; the transfer notifier fires on success.
func (service *Service) Transfer(ctx context.Context, cardID CardID, input TransferInput) error {
	var transferred Card
	var previousEmail EmailAddress
	operationError := service.transferChecked(ctx, cardID, input, &transferred, &previousEmail)
	service.logOperation(ctx, OperationLog{
		Operation: operationTransfer,
		CardID:    cardID,
		Error:     operationError,
	})
	if operationError != nil {
		return operationError
	}
	if service.notifier != nil {
		if err := service.notifier.CardTransferred(ctx, transferred, previousEmail); err != nil {
			return WrapError(operationTransfer, "notifier", "deliver", err)
		}
	}
	return nil
}

func (service *Service) transferChecked(ctx context.Context, cardID CardID, input TransferInput, transferred *Card, previousEmail *EmailAddress) error {
	if input.Email == (EmailAddress{}) {
		return fmt.Errorf("%w: required", ErrInvalidEmail)
	}
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		card, err := transactionStore.GetCard(ctx, cardID, false)
		if err != nil {
			return err
		}
		*previousEmail = card.Email
		newOwner := UserID{}
		if service.identity != nil {
			owner, found, lookupErr := service.identity.LookupByEmail(ctx, input.Email)
			if lookupErr != nil {
				return WrapError(operationTransfer, "identity", "lookup", lookupErr)
			}
			if found {
				newOwner = owner
			}
		}
		if err := transactionStore.UpdateContact(ctx, cardID, newOwner, input.Email, input.Note); err != nil {
			return err
		}
		card.OwnerID = newOwner
		card.Email = input.Email
		card.Note = input.Note
		*transferred = card
		return nil
	})
}
