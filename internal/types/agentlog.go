package types

import (
	"time"
)

// AgentLog is the append-only audit trail of pipeline attempts. At least one
// row is written per attempt, including failed ones; rows are never mutated.
type AgentLog struct {
	ID       int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ReviewID int64   `gorm:"column:review_id;not null;index" json:"review_id"`
	Review   *Review `gorm:"constraint:OnDelete:CASCADE;foreignKey:ReviewID;references:ID" json:"review,omitempty"`

	AgentType      string  `gorm:"column:agent_type;size:50" json:"agent_type"`
	Action         string  `gorm:"column:action;size:100" json:"action"`
	Result         string  `gorm:"column:result;type:text" json:"result"`
	ProcessingTime float64 `gorm:"column:processing_time" json:"processing_time"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (AgentLog) TableName() string {
	return "agent_logs"
}
