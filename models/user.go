package models

import (
	"time"
)

const UserTable = "el_users"

type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         Role   `gorm:"size:20;not null;default:'student';index" json:"role"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }

// Identity 是访问网关解析出的调用者
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Anonymous reports whether no identity was resolved.
func (id Identity) Anonymous() bool { return id.UserID == "" }
