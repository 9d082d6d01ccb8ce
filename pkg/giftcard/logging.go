package giftcard

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing gift-card operation.
type OperationLog struct {
	Operation string
	CardID    CardID
	OrderID   OrderID
	Amount    AmountCents
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithPricingResolver wires the pricing collaborator used at issuance.
func WithPricingResolver(resolver PricingResolver) ServiceOption {
	return func(service *Service) {
		service.pricing = resolver
	}
}

// WithIdentityResolver wires the identity collaborator used for transfer.
func WithIdentityResolver(resolver IdentityResolver) ServiceOption {
	return func(service *Service) {
		service.identity = resolver
	}
}

// WithTransferNotifier wires the notification collaborator for transfers.
func WithTransferNotifier(notifier TransferNotifier) ServiceOption {
	return func(service *Service) {
		service.notifier = notifier
	}
}

// WithExpirationWindow overrides the default expiration offset applied
// when a card is created without an expiration date.
func WithExpirationWindow(seconds int64) ServiceOption {
	return func(service *Service) {
		if seconds > 0 {
			service.expirationWindowSeconds = seconds
		}
	}
}
