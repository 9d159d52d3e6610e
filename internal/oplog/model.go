package oplog

import (
	"time"
)

// OperationLog records one student action. DataBefore and DataAfter hold
// client JSON verbatim and are never interpreted server-side.
type OperationLog struct {
	ID            uint `gorm:"primaryKey"`
	UID           uint `gorm:"column:uid;index;not null"`
	SubmitID      *uint
	OpTime        time.Time `gorm:"index;not null"`
	OpType        string    `gorm:"size:32;not null"`
	OpObject      string    `gorm:"size:32"`
	ObjectNo      string    `gorm:"size:32"`
	ObjectName    string    `gorm:"size:64"`
	DataBefore    *string   `gorm:"type:jsonb"`
	DataAfter     *string   `gorm:"type:jsonb"`
	VoiceURL      string    `gorm:"size:255"`
	ScreenshotURL string    `gorm:"size:255"`
	CreatedAt     time.Time
}

func (OperationLog) TableName() string {
	return "operation_logs"
}
