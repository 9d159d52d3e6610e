package oplog

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, entry *OperationLog) error
	ListByUID(ctx context.Context, uid uint, limit, offset int) ([]OperationLog, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *OperationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUID(ctx context.Context, uid uint, limit, offset int) ([]OperationLog, error) {
	var entries []OperationLog
	err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		Order("op_time DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
