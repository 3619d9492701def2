package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SORA112117/At00-sub000/internal/model"
)

// AlertRepository 本地提醒数据访问接口
type AlertRepository interface {
	// Upsert 按 alert_id 插入或覆盖
	Upsert(ctx context.Context, alert *model.LocalAlert) error
	Delete(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
	List(ctx context.Context) ([]model.LocalAlert, error)
}

type alertRepo struct {
	db *gorm.DB
}

// NewAlertRepo 创建 AlertRepository 实例
func NewAlertRepo(db *gorm.DB) AlertRepository {
	return &alertRepo{db: db}
}

func (r *alertRepo) Upsert(ctx context.Context, alert *model.LocalAlert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alert_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "title", "body", "trigger_at", "repeats", "payload", "updated_at"}),
		}).
		Create(alert).Error
}

func (r *alertRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("alert_id IN ?", ids).
		Delete(&model.LocalAlert{}).Error
}

func (r *alertRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.LocalAlert{}).Error
}

func (r *alertRepo) List(ctx context.Context) ([]model.LocalAlert, error) {
	var alerts []model.LocalAlert
	err := r.db.WithContext(ctx).
		Order("trigger_at ASC").
		Find(&alerts).Error
	return alerts, err
}
