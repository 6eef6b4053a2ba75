package models

import "time"

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	ActionCreate     AuditAction = "CREATE"
	ActionUpdate     AuditAction = "UPDATE"
	ActionDelete     AuditAction = "DELETE"
	ActionBulkDelete AuditAction = "BULK_DELETE"
	ActionClearAll   AuditAction = "CLEAR_ALL"
)

// AuditLog is an immutable, append-only record of one mutation.
//
// UserID is a nullifying reference: deleting a user leaves its entries
// behind with a null user. RowID deliberately has no foreign key since
// the part row may be deleted after the entry is written; it is nil for
// CLEAR_ALL. Diff is the textual change description (see the audit
// service for its grammar).
type AuditLog struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Timestamp time.Time   `gorm:"autoCreateTime;index" json:"timestamp"`
	UserID    *uint       `gorm:"index" json:"user_id"`
	User      *User       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Action    AuditAction `gorm:"not null;index" json:"action"`
	RowID     *uint       `gorm:"index" json:"row_id"`
	Diff      string      `json:"diff"`
	CreatedAt time.Time   `json:"created_at"`
}
