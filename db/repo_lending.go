package db

import (
	"context"
	"errors"
	"time"

	"equiplend/lending"
	"equiplend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

var outstanding = []string{string(models.StatusPending), string(models.StatusApproved)}

// Items

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	return r.DB.WithContext(ctx).Create(it).Error
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrItemNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *Repo) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id").Find(&items).Error
	return items, err
}

// 锁住 item → 执行 fn；fn 返回错误则整个事务回滚
func (r *Repo) WithItemLock(ctx context.Context, itemID string, fn func(tx lending.Tx, it *models.Item) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(forUpdate).First(&it, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrItemNotFound
			}
			return err
		}
		return fn(&gormTx{db: tx}, &it)
	})
}

// 锁顺序：先 item 再 request，避免与 WithItemLock 交叉死锁
func (r *Repo) WithRequestLock(ctx context.Context, requestID string, fn func(tx lending.Tx, req *models.LoanRequest, it *models.Item) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 不加锁先取 item_id（item_id 创建后不会变）
		var head models.LoanRequest
		if err := tx.Select("id", "item_id").First(&head, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrRequestNotFound
			}
			return err
		}
		// 2) 锁住物品
		var it models.Item
		if err := tx.Clauses(forUpdate).First(&it, "id = ?", head.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrItemNotFound
			}
			return err
		}
		// 3) 锁住申请，读最新状态
		var req models.LoanRequest
		if err := tx.Clauses(forUpdate).First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrRequestNotFound
			}
			return err
		}
		return fn(&gormTx{db: tx}, &req, &it)
	})
}

func (r *Repo) RequestOwner(ctx context.Context, requestID string) (string, error) {
	var req models.LoanRequest
	if err := r.DB.WithContext(ctx).Select("id", "user_id").First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", lending.ErrRequestNotFound
		}
		return "", err
	}
	return req.UserID, nil
}

func (r *Repo) ListRequestsForUser(ctx context.Context, userID string) ([]models.RequestView, error) {
	rows := []models.RequestView{}
	err := r.DB.WithContext(ctx).
		Table(models.RequestTable+" r").
		Select(`
			r.id, r.item_id, e.name AS item_name, r.status,
			r.request_date, r.approve_date, r.return_date
		`).
		Joins("JOIN "+models.ItemTable+" e ON e.id = r.item_id").
		Where("r.user_id = ?", userID).
		Order("r.request_date DESC, r.seq DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repo) ListAllRequests(ctx context.Context) ([]models.AdminRequestView, error) {
	rows := []models.AdminRequestView{}
	err := r.DB.WithContext(ctx).
		Table(models.RequestTable+" r").
		Select(`
			r.id, r.item_id, e.name AS item_name, r.status,
			r.request_date, r.approve_date, r.return_date,
			r.user_id, u.name AS user_name, u.email AS user_email
		`).
		Joins("JOIN "+models.ItemTable+" e ON e.id = r.item_id").
		Joins("JOIN "+models.UserTable+" u ON u.id = r.user_id").
		Order("r.request_date DESC, r.seq DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repo) ListRequestEvents(ctx context.Context, requestID string) ([]models.RequestEvent, error) {
	if _, err := r.RequestOwner(ctx, requestID); err != nil {
		return nil, err
	}
	var evs []models.RequestEvent
	err := r.DB.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("at ASC, seq ASC").
		Find(&evs).Error
	return evs, err
}

// gormTx 是持锁事务内的写操作
type gormTx struct{ db *gorm.DB }

func (t *gormTx) SaveItem(ctx context.Context, it *models.Item) error {
	res := t.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", it.ID).
		Updates(map[string]any{
			"name":               it.Name,
			"category":           it.Category,
			"cond":               it.Condition,
			"total_quantity":     it.TotalQuantity,
			"available_quantity": it.AvailableQuantity,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lending.ErrItemNotFound
	}
	return nil
}

func (t *gormTx) CreateRequest(ctx context.Context, req *models.LoanRequest) error {
	return t.db.WithContext(ctx).Create(req).Error
}

func (t *gormTx) SaveRequest(ctx context.Context, req *models.LoanRequest) error {
	res := t.db.WithContext(ctx).Model(&models.LoanRequest{}).
		Where("id = ?", req.ID).
		Updates(map[string]any{
			"status":       string(req.Status),
			"approve_date": req.ApproveDate,
			"return_date":  req.ReturnDate,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lending.ErrRequestNotFound
	}
	return nil
}

func (t *gormTx) AppendEvent(ctx context.Context, ev *models.RequestEvent) error {
	return t.db.WithContext(ctx).Create(ev).Error
}

func (t *gormTx) CountOutstanding(ctx context.Context, itemID string) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.LoanRequest{}).
		Where("item_id = ? AND status IN ?", itemID, outstanding).
		Count(&n).Error
	return n, err
}

// DeleteItem 连带删除该物品的（已结束）申请与历史
func (t *gormTx) DeleteItem(ctx context.Context, itemID string) error {
	db := t.db.WithContext(ctx)
	var ids []string
	if err := db.Model(&models.LoanRequest{}).Where("item_id = ?", itemID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := db.Where("request_id IN ?", ids).Delete(&models.RequestEvent{}).Error; err != nil {
			return err
		}
		if err := db.Where("item_id = ?", itemID).Delete(&models.LoanRequest{}).Error; err != nil {
			return err
		}
	}
	return db.Delete(&models.Item{ID: itemID}).Error
}
