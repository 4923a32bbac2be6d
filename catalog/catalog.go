package catalog

import (
	"context"
	"strings"
	"time"

	"equiplend/lending"
	"equiplend/logger"
	"equiplend/models"

	"github.com/google/uuid"
)

type Store interface {
	CreateItem(ctx context.Context, it *models.Item) error
	FindItemByID(ctx context.Context, id string) (*models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	WithItemLock(ctx context.Context, itemID string, fn func(tx lending.Tx, it *models.Item) error) error
}

// Patch is a partial item update; nil fields are left alone.
type Patch struct {
	Name          *string
	Category      *string
	Condition     *string
	TotalQuantity *int
}

func (p Patch) empty() bool {
	return p.Name == nil && p.Category == nil && p.Condition == nil && p.TotalQuantity == nil
}

type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]models.Item, error) {
	return s.store.ListItems(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Item, error) {
	return s.store.FindItemByID(ctx, id)
}

// Create 新器材：available = total
func (s *Service) Create(ctx context.Context, who models.Identity, name, category, condition string, total int) (*models.Item, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, lending.InvalidInput("name is required")
	}
	if total < 0 {
		return nil, lending.InvalidInput("total_quantity must be >= 0")
	}
	now := s.now().UTC()
	it := &models.Item{
		ID:                uuid.NewString(),
		Name:              name,
		Category:          strings.TrimSpace(category),
		Condition:         strings.TrimSpace(condition),
		TotalQuantity:     total,
		AvailableQuantity: total,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	s.log.Info("catalog item created", "item_id", it.ID, "total", total)
	return it, nil
}

// Update applies p under the item lock. A total change moves available by the
// same signed delta, clamped to [0, total].
func (s *Service) Update(ctx context.Context, who models.Identity, id string, p Patch) (*models.Item, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	if p.empty() {
		return nil, lending.InvalidInput("no fields to update")
	}
	if p.TotalQuantity != nil && *p.TotalQuantity < 0 {
		return nil, lending.InvalidInput("total_quantity must be >= 0")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, lending.InvalidInput("name cannot be empty")
	}
	var out models.Item
	err := s.store.WithItemLock(ctx, id, func(tx lending.Tx, it *models.Item) error {
		if p.Name != nil {
			it.Name = strings.TrimSpace(*p.Name)
		}
		if p.Category != nil {
			it.Category = strings.TrimSpace(*p.Category)
		}
		if p.Condition != nil {
			it.Condition = strings.TrimSpace(*p.Condition)
		}
		if p.TotalQuantity != nil {
			it.TotalQuantity, it.AvailableQuantity = lending.AdjustTotal(it.TotalQuantity, it.AvailableQuantity, *p.TotalQuantity)
		}
		it.UpdatedAt = s.now().UTC()
		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
		out = *it
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("catalog item updated", "item_id", id, "total", out.TotalQuantity, "available", out.AvailableQuantity)
	return &out, nil
}

// AdjustTotalQuantity is Update with only the total set.
func (s *Service) AdjustTotalQuantity(ctx context.Context, who models.Identity, id string, newTotal int) (*models.Item, error) {
	return s.Update(ctx, who, id, Patch{TotalQuantity: &newTotal})
}

// Delete removes an item. Refused while any request on it is PENDING or APPROVED;
// terminal requests and their history go with the item.
func (s *Service) Delete(ctx context.Context, who models.Identity, id string) error {
	if err := requireAdmin(who); err != nil {
		return err
	}
	err := s.store.WithItemLock(ctx, id, func(tx lending.Tx, it *models.Item) error {
		n, err := tx.CountOutstanding(ctx, it.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return lending.ErrItemInUse
		}
		return tx.DeleteItem(ctx, it.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("catalog item deleted", "item_id", id)
	return nil
}

func requireAdmin(who models.Identity) error {
	if who.Anonymous() {
		return lending.ErrUnauthorized
	}
	if !who.Role.CanAdminister() {
		return lending.ErrForbidden
	}
	return nil
}
