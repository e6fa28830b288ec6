package entity

import (
	"time"

	"github.com/lib/pq"
)

// GenerationRecord 一次生成请求的历史记录
type GenerationRecord struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ModelID      string         `json:"model_id" gorm:"type:varchar(32);index;not null"`
	Mode         Mode           `json:"mode" gorm:"type:varchar(16);not null"`
	Prompt       string         `json:"prompt" gorm:"type:text;not null"`
	Seed         int64          `json:"seed" gorm:"not null"`
	Width        int            `json:"width" gorm:"not null"`
	Height       int            `json:"height" gorm:"not null"`
	Steps        int            `json:"steps" gorm:"not null"`
	NumImages    int            `json:"num_images" gorm:"not null"`
	Filenames    pq.StringArray `json:"filenames" gorm:"type:text[];not null"`
	DurationSecs float64        `json:"duration_secs" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

func (GenerationRecord) TableName() string {
	return "generation_records"
}
