// Package lending owns the loan request lifecycle and the available-quantity
// bookkeeping coupled to it.
//
// Quantity is only taken at approval, never at submission, so approval re-checks
// availability under the item lock. Every operation runs inside one Store lock
// callback and either commits all of its writes or none.
package lending

import (
	"context"
	"errors"
	"time"

	"equiplend/logger"
	"equiplend/metrics"
	"equiplend/models"

	"github.com/google/uuid"
)

type Engine struct {
	store Store
	log   *logger.Logger
	m     *metrics.Metrics
	now   func() time.Time
}

type Option func(*Engine)

func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.m = m } }

// WithClock overrides time.Now; tests use it to pin dates.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   logger.Nop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Submit creates a PENDING request for itemID. Availability is checked but not reserved.
func (e *Engine) Submit(ctx context.Context, who models.Identity, itemID string) (*models.LoanRequest, error) {
	if err := requireRole(who, models.Role.CanCreateRequest); err != nil {
		return nil, e.finish("submit", err, "user_id", who.UserID, "item_id", itemID)
	}
	var created models.LoanRequest
	err := e.store.WithItemLock(ctx, itemID, func(tx Tx, it *models.Item) error {
		if it.AvailableQuantity <= 0 {
			return ErrItemUnavailable
		}
		to, err := Transition("", EventCreate)
		if err != nil {
			return err
		}
		now := e.now().UTC()
		req := &models.LoanRequest{
			ID:          uuid.NewString(),
			UserID:      who.UserID,
			ItemID:      it.ID,
			Status:      to,
			RequestDate: now,
		}
		if err := tx.CreateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, newEvent(req.ID, "", to, who.UserID, now)); err != nil {
			return err
		}
		created = *req
		return nil
	})
	if err != nil {
		return nil, e.finish("submit", err, "user_id", who.UserID, "item_id", itemID)
	}
	e.finish("submit", nil, "request_id", created.ID, "user_id", who.UserID, "item_id", itemID)
	return &created, nil
}

// Approve moves a PENDING request to APPROVED and takes one unit of the item.
func (e *Engine) Approve(ctx context.Context, who models.Identity, requestID string) (*models.LoanRequest, error) {
	return e.transition(ctx, who, requestID, EventApprove)
}

// Reject moves a PENDING request to REJECTED. Inventory is untouched.
func (e *Engine) Reject(ctx context.Context, who models.Identity, requestID string) (*models.LoanRequest, error) {
	return e.transition(ctx, who, requestID, EventReject)
}

// Return moves an APPROVED request to RETURNED and gives its unit back.
func (e *Engine) Return(ctx context.Context, who models.Identity, requestID string) (*models.LoanRequest, error) {
	return e.transition(ctx, who, requestID, EventReturn)
}

func (e *Engine) transition(ctx context.Context, who models.Identity, requestID string, ev Event) (*models.LoanRequest, error) {
	op := string(ev)
	if err := requireRole(who, models.Role.CanAdminister); err != nil {
		return nil, e.finish(op, err, "user_id", who.UserID, "request_id", requestID)
	}
	var out models.LoanRequest
	var available int
	err := e.store.WithRequestLock(ctx, requestID, func(tx Tx, req *models.LoanRequest, it *models.Item) error {
		from := req.Status
		to, err := Transition(from, ev)
		if err != nil {
			return err
		}
		if d := quantityDelta(ev); d != 0 {
			// check at use time: a competing approval may have drained the item since submit
			if d < 0 && it.AvailableQuantity <= 0 {
				return ErrItemUnavailable
			}
			it.AvailableQuantity = ApplyDelta(it.TotalQuantity, it.AvailableQuantity, d)
			if err := tx.SaveItem(ctx, it); err != nil {
				return err
			}
		}
		now := e.now().UTC()
		switch to {
		case models.StatusApproved:
			t := notBefore(now, req.RequestDate)
			req.ApproveDate = &t
			now = t
		case models.StatusReturned:
			floor := req.RequestDate
			if req.ApproveDate != nil {
				floor = *req.ApproveDate
			}
			t := notBefore(now, floor)
			req.ReturnDate = &t
			now = t
		}
		req.Status = to
		if err := tx.SaveRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, newEvent(req.ID, from, to, who.UserID, now)); err != nil {
			return err
		}
		out = *req
		available = it.AvailableQuantity
		return nil
	})
	if err != nil {
		return nil, e.finish(op, err, "user_id", who.UserID, "request_id", requestID)
	}
	e.finish(op, nil, "request_id", out.ID, "item_id", out.ItemID, "status", out.Status, "available", available)
	return &out, nil
}

// ListForUser returns the caller's own requests, newest first.
func (e *Engine) ListForUser(ctx context.Context, who models.Identity) ([]models.RequestView, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	return e.store.ListRequestsForUser(ctx, who.UserID)
}

// ListAll returns every request with its requester, newest first. Admin only.
func (e *Engine) ListAll(ctx context.Context, who models.Identity) ([]models.AdminRequestView, error) {
	if err := requireRole(who, models.Role.CanAdminister); err != nil {
		return nil, err
	}
	return e.store.ListAllRequests(ctx)
}

// History returns the status events of a request, oldest first.
// Admins see every request; other callers only their own.
func (e *Engine) History(ctx context.Context, who models.Identity, requestID string) ([]models.RequestEvent, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	if !who.Role.CanAdminister() {
		owner, err := e.store.RequestOwner(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if owner != who.UserID {
			return nil, ErrForbidden
		}
	}
	return e.store.ListRequestEvents(ctx, requestID)
}

// finish records the outcome of op and passes err through.
func (e *Engine) finish(op string, err error, kv ...interface{}) error {
	if err == nil {
		e.m.ObserveTransition(op, "ok")
		e.log.Info("lending "+op, kv...)
		return nil
	}
	if !IsDomain(err) {
		e.m.ObserveTransition(op, "error")
		e.log.Error("lending "+op+" failed", append(kv, "err", err)...)
		return err
	}
	code := Code(err)
	e.m.ObserveTransition(op, string(code))
	e.log.Debug("lending "+op+" refused", append(kv, "code", code)...)
	return err
}

func requireRole(who models.Identity, can func(models.Role) bool) error {
	if who.Anonymous() {
		return ErrUnauthorized
	}
	if !can(who.Role) {
		return ErrForbidden
	}
	return nil
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

func newEvent(requestID string, from, to models.Status, actorID string, at time.Time) *models.RequestEvent {
	return &models.RequestEvent{
		ID:        uuid.NewString(),
		RequestID: requestID,
		From:      from,
		To:        to,
		ActorID:   actorID,
		At:        at,
	}
}

// IsDomain reports whether err is a domain refusal rather than an infrastructure failure.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
