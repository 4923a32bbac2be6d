package models

import "strings"

// Role 是用户角色（封闭枚举）
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts the stored spelling in any case and rejects unknown roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return r, true
	}
	return "", false
}

// CanCreateRequest reports whether the role may submit loan requests.
func (r Role) CanCreateRequest() bool {
	switch r {
	case RoleStudent, RoleStaff:
		return true
	}
	return false
}

// CanAdminister reports whether the role may transition requests and edit the catalog.
func (r Role) CanAdminister() bool { return r == RoleAdmin }

// Status 是借用申请的状态
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusReturned Status = "RETURNED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReturned:
		return true
	}
	return false
}

// IsTerminal: REJECTED / RETURNED 之后不可再变
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusReturned:
		return true
	}
	return false
}

// Outstanding reports whether a request in this state still holds a claim on its item.
func (s Status) Outstanding() bool {
	switch s {
	case StatusPending, StatusApproved:
		return true
	}
	return false
}
