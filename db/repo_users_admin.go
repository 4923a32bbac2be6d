// db/repo_users_admin.go
package db

import (
	"context"

	"equiplend/models"
)

func (r *Repo) SetUserRole(ctx context.Context, userID string, role models.Role) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", string(role)).Error
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", string(models.RoleAdmin)).
		Count(&n).Error
	return n, err
}
