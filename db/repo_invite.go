package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"equiplend/models"

	"gorm.io/gorm"
)

var ErrInviteUnusable = errors.New("invite already used, expired or not found")

func (r *Repo) CreateInvite(ctx context.Context, email, token string, role models.Role, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	inv := &models.Invite{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Token:     token,
		Role:      role,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

// CreateUserWithInvite 原子操作 = 核销邀请 → 新建用户（角色取自邀请）
func (r *Repo) CreateUserWithInvite(ctx context.Context, token string, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invite
		if err := tx.Where("token = ?", token).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteUnusable
			}
			return err
		}
		now := time.Now()
		if !inv.Usable(now) || inv.Email != u.Email {
			return ErrInviteUnusable
		}
		res := tx.Model(&models.Invite{}).
			Where("token = ? AND used_at IS NULL", token).
			Update("used_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteUnusable
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		u.Role = inv.Role
		return tx.Create(u).Error
	})
}
