// app/bootstrap.go
package app

import (
	"context"
	"errors"

	"equiplend/config"
	"equiplend/logger"
	"equiplend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminSeeder interface {
	CountAdmins(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) error
}

// BootstrapFirstAdmin 没有管理员时，用 ADMIN_EMAIL / ADMIN_PASSWORD 创建第一个
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo AdminSeeder, log *logger.Logger) error {
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil // 已经有管理员，跳过
	}
	if cfg.AdminEmail == "" || cfg.AdminPwd == "" {
		log.Warn("no admin exists and ADMIN_EMAIL/ADMIN_PASSWORD are not set")
		return nil
	}
	// 账号已存在：直接提升为管理员
	if u, err := repo.FindUserByEmail(ctx, cfg.AdminEmail); err == nil {
		if err := repo.SetUserRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return err
		}
		log.Info("bootstrap admin promoted", "email", u.Email, "user_id", u.ID)
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if len(cfg.AdminPwd) < 8 {
		return errors.New("ADMIN_PASSWORD must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		return err
	}
	log.Info("bootstrap admin created", "email", u.Email, "user_id", u.ID)
	return nil
}
