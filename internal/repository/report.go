package repository

import (
	"context"
	"errors"

	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// ReportRepository defines persistence operations for abuse reports.
type ReportRepository interface {
	GenerateID(ctx context.Context) (models.ID, error)
	Insert(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id models.ID) (*models.QueryReport, error)
	List(ctx context.Context, limit, offset int) ([]models.QueryReport, error)
	Delete(ctx context.Context, id models.ID) error
}

type reportRepository struct {
	db     *gorm.DB
	lookup LookupRepository
}

// NewReportRepository returns a new ReportRepository implementation.
func NewReportRepository(db *gorm.DB, lookup LookupRepository) ReportRepository {
	return &reportRepository{db: db, lookup: lookup}
}

func (r *reportRepository) GenerateID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "reports")
}

func (r *reportRepository) Insert(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id models.ID) (*models.QueryReport, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("report")
		}
		return nil, models.NewInternalError(err)
	}
	typeName, err := r.lookup.ReportTypeName(ctx, report.ReportTypeID)
	if err != nil {
		return nil, err
	}
	return &models.QueryReport{Report: report, ReportType: typeName}, nil
}

func (r *reportRepository) List(ctx context.Context, limit, offset int) ([]models.QueryReport, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&reports).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	typeNames := make(map[int]string)
	out := make([]models.QueryReport, 0, len(reports))
	for _, report := range reports {
		name, ok := typeNames[report.ReportTypeID]
		if !ok {
			if name, err = r.lookup.ReportTypeName(ctx, report.ReportTypeID); err != nil {
				return nil, err
			}
			typeNames[report.ReportTypeID] = name
		}
		out = append(out, models.QueryReport{Report: report, ReportType: name})
	}
	return out, nil
}

func (r *reportRepository) Delete(ctx context.Context, id models.ID) error {
	res := r.db.WithContext(ctx).Delete(&models.Report{}, int64(id))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("report")
	}
	return nil
}
