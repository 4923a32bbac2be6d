package lending

import (
	"context"

	"equiplend/models"
)

// Tx is the write surface available while an entity lock is held.
// Writes become visible only if the enclosing With*Lock callback returns nil.
type Tx interface {
	SaveItem(ctx context.Context, it *models.Item) error
	CreateRequest(ctx context.Context, req *models.LoanRequest) error
	SaveRequest(ctx context.Context, req *models.LoanRequest) error
	AppendEvent(ctx context.Context, ev *models.RequestEvent) error
	CountOutstanding(ctx context.Context, itemID string) (int64, error)
	DeleteItem(ctx context.Context, itemID string) error
}

// Store is the persistence boundary of the engine.
type Store interface {
	// WithItemLock runs fn atomically while holding the lock on itemID.
	// Returns ErrItemNotFound if the item does not exist.
	WithItemLock(ctx context.Context, itemID string, fn func(tx Tx, it *models.Item) error) error

	// WithRequestLock runs fn atomically while holding the lock on the request's item
	// and then on the request (lock order item → request).
	// Returns ErrRequestNotFound if the request does not exist.
	WithRequestLock(ctx context.Context, requestID string, fn func(tx Tx, req *models.LoanRequest, it *models.Item) error) error

	RequestOwner(ctx context.Context, requestID string) (string, error)
	ListRequestsForUser(ctx context.Context, userID string) ([]models.RequestView, error)
	ListAllRequests(ctx context.Context) ([]models.AdminRequestView, error)
	ListRequestEvents(ctx context.Context, requestID string) ([]models.RequestEvent, error)
}
