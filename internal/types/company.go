package types

import (
	"time"
)

type FinancialCompany struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:100;not null" json:"name"`
	AppID     string    `gorm:"column:app_id;size:100;not null;uniqueIndex" json:"app_id"`
	Category  string    `gorm:"column:category;size:50" json:"category"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	Reviews []Review `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"reviews,omitempty"`
}

func (FinancialCompany) TableName() string {
	return "financial_companies"
}
