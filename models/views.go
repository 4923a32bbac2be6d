package models

import "time"

// RequestView 是申请人自己看到的一行
type RequestView struct {
	ID          string     `json:"id"`
	ItemID      string     `json:"item_id"`
	ItemName    string     `json:"item_name"`
	Status      Status     `json:"status"`
	RequestDate time.Time  `json:"request_date"`
	ApproveDate *time.Time `json:"approve_date,omitempty"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
}

// AdminRequestView adds the requester to RequestView.
type AdminRequestView struct {
	RequestView
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}
