package models

import "time"

// Invite 一次性注册邀请，携带目标角色
type Invite struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"index;size:255;not null" json:"email"`
	Token     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Role      Role       `gorm:"size:20;not null" json:"role"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedBy string     `gorm:"size:255" json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Invite) TableName() string { return "el_invites" }

// Usable reports whether the invite can still be redeemed at t.
func (inv *Invite) Usable(t time.Time) bool {
	return inv.UsedAt == nil && t.Before(inv.ExpiresAt)
}
