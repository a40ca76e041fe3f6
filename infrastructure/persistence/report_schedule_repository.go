package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// ReportScheduleRepository persists report schedules in MySQL through gorm.
type ReportScheduleRepository struct {
	db *gorm.DB
}

func NewReportScheduleRepository(db *gorm.DB) repository.IReportSchedule {
	return &ReportScheduleRepository{db: db}
}

// EnsureReportSchema migrates the report_schedules table.
func EnsureReportSchema(db *gorm.DB) error {
	return db.AutoMigrate(&model.ReportSchedule{})
}

func (r *ReportScheduleRepository) Save(ctx context.Context, s *model.ReportSchedule) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(s).Error
}

func (r *ReportScheduleRepository) GetByID(ctx context.Context, id string) (*model.ReportSchedule, error) {
	var s model.ReportSchedule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ReportScheduleRepository) ListByUser(ctx context.Context, userID string) ([]*model.ReportSchedule, error) {
	var list []*model.ReportSchedule
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&list).Error
	return list, err
}

func (r *ReportScheduleRepository) ListEnabled(ctx context.Context) ([]*model.ReportSchedule, error) {
	var list []*model.ReportSchedule
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&list).Error
	return list, err
}

func (r *ReportScheduleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ReportSchedule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
