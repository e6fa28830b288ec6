package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dee-studio/internal/domain/entity"
	"dee-studio/internal/domain/repository"
)

// GenerationRecordRepository 生成历史仓储实现
type GenerationRecordRepository struct {
	client *Client
}

var _ repository.GenerationRecordRepository = (*GenerationRecordRepository)(nil)

// NewGenerationRecordRepository 创建生成历史仓储
func NewGenerationRecordRepository(client *Client) *GenerationRecordRepository {
	return &GenerationRecordRepository{client: client}
}

// Create 写入一条生成记录
func (r *GenerationRecordRepository) Create(ctx context.Context, record *entity.GenerationRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRecordRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation record: %w", err)
	}
	return nil
}

// ListRecent 按创建时间倒序取最近的生成记录
func (r *GenerationRecordRepository) ListRecent(ctx context.Context, limit int) ([]*entity.GenerationRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRecordRepository.ListRecent")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	var records []*entity.GenerationRecord
	err := r.client.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list generation records: %w", err)
	}
	return records, nil
}

// GetByFilename 查找包含指定制品文件名的记录
func (r *GenerationRecordRepository) GetByFilename(ctx context.Context, filename string) (*entity.GenerationRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRecordRepository.GetByFilename")
	defer span.End()

	var record entity.GenerationRecord
	err := r.client.db.WithContext(ctx).
		Where("? = ANY(filenames)", filename).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get generation record: %w", err)
	}
	return &record, nil
}
