package types

import (
	"time"
)

// Review processing states. processed and failed are terminal; a failed review
// becomes eligible again only through an explicit re-invocation or the worker's
// bounded retry sweep.
const (
	ReviewStateUnprocessed = "unprocessed"
	ReviewStateProcessing  = "processing"
	ReviewStateProcessed   = "processed"
	ReviewStateFailed      = "failed"
)

const (
	PlatformAppStore  = "app_store"
	PlatformPlayStore = "play_store"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

func ValidPlatform(p string) bool {
	return p == PlatformAppStore || p == PlatformPlayStore
}

func ValidSentiment(s string) bool {
	return s == SentimentPositive || s == SentimentNegative || s == SentimentNeutral
}

// Review is the system-of-record row for one app review. Sentiment,
// SentimentScore and DepartmentID are either all set (state=processed) or all
// unset; partial classification is never visible outside a transaction.
type Review struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID int64      `gorm:"column:company_id;not null;index" json:"company_id"`
	Company   *FinancialCompany `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"company,omitempty"`

	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	Rating     int       `gorm:"column:rating" json:"rating"`
	ReviewDate time.Time `gorm:"column:review_date" json:"review_date"`
	Platform   string    `gorm:"column:platform;size:20;not null;index" json:"platform"`

	State          string     `gorm:"column:state;size:20;not null;default:'unprocessed';index" json:"state"`
	Sentiment      *string    `gorm:"column:sentiment;size:20;index" json:"sentiment,omitempty"`
	SentimentScore *float64   `gorm:"column:sentiment_score" json:"sentiment_score,omitempty"`
	DepartmentID   *int64     `gorm:"column:department_id;index" json:"department_id,omitempty"`
	Department     *Department `gorm:"constraint:OnDelete:SET NULL;foreignKey:DepartmentID;references:ID" json:"department,omitempty"`
	Processed      bool       `gorm:"column:processed;not null;default:false" json:"processed"`

	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   string     `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	AgentLogs []AgentLog `gorm:"constraint:OnDelete:CASCADE;foreignKey:ReviewID;references:ID" json:"agent_logs,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}
