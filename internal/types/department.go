package types

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Department is read-mostly; mutated only through administration endpoints,
// never by the pipeline.
type Department struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	Keywords    datatypes.JSON `gorm:"column:keywords" json:"keywords"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Department) TableName() string {
	return "departments"
}

// KeywordList decodes the JSON keyword column. A malformed or empty column
// yields an empty list rather than an error; keywords are a routing hint, not
// authoritative data.
func (d *Department) KeywordList() []string {
	if len(d.Keywords) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(d.Keywords, &out); err != nil {
		return nil
	}
	return out
}

// SetKeywords encodes keywords into the JSON column.
func (d *Department) SetKeywords(keywords []string) error {
	raw, err := json.Marshal(keywords)
	if err != nil {
		return err
	}
	d.Keywords = datatypes.JSON(raw)
	return nil
}
