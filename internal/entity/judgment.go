package entity

import (
	"gorm.io/datatypes"
)

// Judgment is the result of evaluating one strategy against one symbol
// within one batch run, unique by (batch_run_id, code, strategy).
type Judgment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BatchRunID uint           `gorm:"not null;uniqueIndex:idx_judgments_run_code_strategy" json:"batch_run_id"`
	Code       string         `gorm:"not null;uniqueIndex:idx_judgments_run_code_strategy" json:"code"`
	Strategy   string         `gorm:"not null;uniqueIndex:idx_judgments_run_code_strategy" json:"strategy"`
	Signal     string         `gorm:"not null" json:"signal"`
	Score      float64        `gorm:"not null" json:"score"`
	Price      *float64       `json:"price"`
	AsOf       string         `gorm:"type:date" json:"as_of"`
	TopReason  string         `json:"top_reason"`
	RulesJSON  datatypes.JSON `gorm:"type:jsonb" json:"rules_json"`
}

func (Judgment) TableName() string {
	return "judgments"
}
