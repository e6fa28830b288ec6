// Package repository 定义数据访问接口
package repository

import (
	"context"

	"dee-studio/internal/domain/entity"
)

// GenerationRecordRepository 生成历史仓储接口
type GenerationRecordRepository interface {
	// Create 写入一条生成记录
	Create(ctx context.Context, record *entity.GenerationRecord) error
	// ListRecent 按创建时间倒序列出最近的生成记录
	ListRecent(ctx context.Context, limit int) ([]*entity.GenerationRecord, error)
	// GetByFilename 按制品文件名回查生成记录
	GetByFilename(ctx context.Context, filename string) (*entity.GenerationRecord, error)
}
