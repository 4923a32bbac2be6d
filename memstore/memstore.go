// Package memstore is an in-memory implementation of lending.Store and
// catalog.Store. One mutex serialises every mutating operation; each lock
// callback works on a copy of the state that replaces the live state only
// when the callback succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"

	"equiplend/lending"
	"equiplend/models"
)

type state struct {
	items    map[string]models.Item
	requests map[string]models.LoanRequest
	events   []models.RequestEvent
	users    map[string]models.User
	nextSeq  int64
}

func newState() state {
	return state{
		items:    map[string]models.Item{},
		requests: map[string]models.LoanRequest{},
		users:    map[string]models.User{},
	}
}

func (s state) clone() state {
	c := state{
		items:    make(map[string]models.Item, len(s.items)),
		requests: make(map[string]models.LoanRequest, len(s.requests)),
		events:   append([]models.RequestEvent(nil), s.events...),
		users:    s.users, // users are not written inside transactions
		nextSeq:  s.nextSeq,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = cloneRequest(v)
	}
	return c
}

func cloneRequest(r models.LoanRequest) models.LoanRequest {
	if r.ApproveDate != nil {
		t := *r.ApproveDate
		r.ApproveDate = &t
	}
	if r.ReturnDate != nil {
		t := *r.ReturnDate
		r.ReturnDate = &t
	}
	return r
}

type Store struct {
	mu sync.Mutex
	st state
}

func New() *Store { return &Store{st: newState()} }

// PutUser registers a user so listings can join requester identity.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// Item returns a snapshot of one item; ok is false when absent.
func (s *Store) Item(id string) (models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.st.items[id]
	return it, ok
}

// Request returns a snapshot of one request; ok is false when absent.
func (s *Store) Request(id string) (models.LoanRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.requests[id]
	return cloneRequest(r), ok
}

// ---- catalog.Store ----

func (s *Store) CreateItem(_ context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items[it.ID] = *it
	return nil
}

func (s *Store) FindItemByID(_ context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.st.items[id]
	if !ok {
		return nil, lending.ErrItemNotFound
	}
	return &it, nil
}

func (s *Store) ListItems(_ context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Item, 0, len(s.st.items))
	for _, it := range s.st.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- lending.Store ----

func (s *Store) WithItemLock(_ context.Context, itemID string, fn func(tx lending.Tx, it *models.Item) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.st.items[itemID]
	if !ok {
		return lending.ErrItemNotFound
	}
	t := &tx{st: s.st.clone()}
	if err := fn(t, &it); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

func (s *Store) WithRequestLock(_ context.Context, requestID string, fn func(tx lending.Tx, req *models.LoanRequest, it *models.Item) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.st.requests[requestID]
	if !ok {
		return lending.ErrRequestNotFound
	}
	it, ok := s.st.items[req.ItemID]
	if !ok {
		return lending.ErrItemNotFound
	}
	req = cloneRequest(req)
	t := &tx{st: s.st.clone()}
	if err := fn(t, &req, &it); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

func (s *Store) RequestOwner(_ context.Context, requestID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.st.requests[requestID]
	if !ok {
		return "", lending.ErrRequestNotFound
	}
	return req.UserID, nil
}

func (s *Store) ListRequestsForUser(_ context.Context, userID string) ([]models.RequestView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RequestView{}
	for _, r := range s.sortedRequests() {
		if r.UserID == userID {
			out = append(out, s.view(r))
		}
	}
	return out, nil
}

func (s *Store) ListAllRequests(_ context.Context) ([]models.AdminRequestView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AdminRequestView{}
	for _, r := range s.sortedRequests() {
		u := s.st.users[r.UserID]
		out = append(out, models.AdminRequestView{
			RequestView: s.view(r),
			UserID:      r.UserID,
			UserName:    u.Name,
			UserEmail:   u.Email,
		})
	}
	return out, nil
}

func (s *Store) ListRequestEvents(_ context.Context, requestID string) ([]models.RequestEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.requests[requestID]; !ok {
		return nil, lending.ErrRequestNotFound
	}
	out := []models.RequestEvent{}
	for _, ev := range s.st.events {
		if ev.RequestID == requestID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// sortedRequests orders newest first: request date, then insertion order.
func (s *Store) sortedRequests() []models.LoanRequest {
	rs := make([]models.LoanRequest, 0, len(s.st.requests))
	for _, r := range s.st.requests {
		rs = append(rs, cloneRequest(r))
	}
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RequestDate.Equal(rs[j].RequestDate) {
			return rs[i].RequestDate.After(rs[j].RequestDate)
		}
		return rs[i].Seq > rs[j].Seq
	})
	return rs
}

func (s *Store) view(r models.LoanRequest) models.RequestView {
	return models.RequestView{
		ID:          r.ID,
		ItemID:      r.ItemID,
		ItemName:    s.st.items[r.ItemID].Name,
		Status:      r.Status,
		RequestDate: r.RequestDate,
		ApproveDate: r.ApproveDate,
		ReturnDate:  r.ReturnDate,
	}
}

type tx struct{ st state }

func (t *tx) SaveItem(_ context.Context, it *models.Item) error {
	if _, ok := t.st.items[it.ID]; !ok {
		return lending.ErrItemNotFound
	}
	t.st.items[it.ID] = *it
	return nil
}

func (t *tx) CreateRequest(_ context.Context, req *models.LoanRequest) error {
	t.st.nextSeq++
	req.Seq = t.st.nextSeq
	t.st.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (t *tx) SaveRequest(_ context.Context, req *models.LoanRequest) error {
	old, ok := t.st.requests[req.ID]
	if !ok {
		return lending.ErrRequestNotFound
	}
	saved := cloneRequest(*req)
	saved.Seq = old.Seq
	t.st.requests[req.ID] = saved
	return nil
}

func (t *tx) AppendEvent(_ context.Context, ev *models.RequestEvent) error {
	t.st.nextSeq++
	ev.Seq = t.st.nextSeq
	t.st.events = append(t.st.events, *ev)
	return nil
}

func (t *tx) CountOutstanding(_ context.Context, itemID string) (int64, error) {
	var n int64
	for _, r := range t.st.requests {
		if r.ItemID == itemID && r.Status.Outstanding() {
			n++
		}
	}
	return n, nil
}

func (t *tx) DeleteItem(_ context.Context, itemID string) error {
	delete(t.st.items, itemID)
	gone := map[string]bool{}
	for id, r := range t.st.requests {
		if r.ItemID == itemID {
			gone[id] = true
			delete(t.st.requests, id)
		}
	}
	kept := t.st.events[:0]
	for _, ev := range t.st.events {
		if !gone[ev.RequestID] {
			kept = append(kept, ev)
		}
	}
	t.st.events = kept
	return nil
}
