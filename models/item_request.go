// models/item_request.go
package models

import "time"

const ItemTable = "el_items"
const RequestTable = "el_requests"
const RequestEventTable = "el_request_events"

// Item 是一种器材，数量有限
type Item struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"size:200;not null" json:"name"`
	Category          string    `gorm:"size:120;not null;default:''" json:"category"`
	Condition         string    `gorm:"column:cond;size:120;not null;default:''" json:"cond"`
	TotalQuantity     int       `gorm:"not null;default:0;check:chk_el_items_total,total_quantity >= 0" json:"total_quantity"`
	AvailableQuantity int       `gorm:"not null;default:0;check:chk_el_items_available,available_quantity >= 0 AND available_quantity <= total_quantity" json:"available_quantity"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// LoanRequest 一次借用申请；状态与日期只由 lending.Engine 写入
type LoanRequest struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ItemID      string     `gorm:"type:uuid;index;not null" json:"item_id"`
	Status      Status     `gorm:"size:20;index;not null" json:"status"`
	RequestDate time.Time  `gorm:"index;not null" json:"request_date"`
	ApproveDate *time.Time `json:"approve_date,omitempty"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Seq 插入顺序，由数据库分配（见 db.Migrate）；同一 RequestDate 时用它排序
	Seq int64 `gorm:"->;-:migration" json:"-"`
}

// RequestEvent records one status change of a request.
// From is empty for the creating event.
type RequestEvent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID string    `gorm:"type:uuid;index;not null" json:"request_id"`
	From      Status    `gorm:"column:from_status;size:20" json:"from,omitempty"`
	To        Status    `gorm:"column:to_status;size:20;not null" json:"to"`
	ActorID   string    `gorm:"type:uuid;not null" json:"actor_id"`
	At        time.Time `gorm:"index;not null" json:"at"`
	Seq       int64     `gorm:"->;-:migration" json:"-"`
}

func (Item) TableName() string         { return ItemTable }
func (LoanRequest) TableName() string  { return RequestTable }
func (RequestEvent) TableName() string { return RequestEventTable }
