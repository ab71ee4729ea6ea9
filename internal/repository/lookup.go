package repository

import (
	"context"
	"errors"

	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// LookupRepository resolves the static reference tables in both directions:
// name to id for writes, id to name for assembling view aggregates. These
// tables are seeded at startup, not managed through the API.
type LookupRepository interface {
	CategoryID(ctx context.Context, name string) (int, error)
	LoaderID(ctx context.Context, name string) (int, error)
	GameVersionID(ctx context.Context, name string) (int, error)
	ChannelID(ctx context.Context, name string) (int, error)
	LicenseBySlug(ctx context.Context, short string) (*models.License, error)
	DonationPlatformBySlug(ctx context.Context, short string) (*models.DonationPlatform, error)
	StatusID(ctx context.Context, name models.ProjectStatus) (int, error)
	SideTypeID(ctx context.Context, name models.SideType) (int, error)
	ProjectTypeID(ctx context.Context, name string) (int, error)
	ReportTypeID(ctx context.Context, name string) (int, error)

	CategoryNames(ctx context.Context, ids []int) (map[int]string, error)
	LoaderNames(ctx context.Context, ids []int) (map[int]string, error)
	GameVersionNames(ctx context.Context, ids []int) (map[int]string, error)
	ChannelName(ctx context.Context, id int) (string, error)
	LicenseByID(ctx context.Context, id int) (*models.License, error)
	DonationPlatformsByID(ctx context.Context, ids []int) (map[int]models.DonationPlatform, error)
	StatusName(ctx context.Context, id int) (models.ProjectStatus, error)
	SideTypeName(ctx context.Context, id int) (models.SideType, error)
	ProjectTypeName(ctx context.Context, id int) (string, error)
	ReportTypeName(ctx context.Context, id int) (string, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	ListLoaders(ctx context.Context) ([]models.Loader, error)
	ListGameVersions(ctx context.Context) ([]models.GameVersion, error)
	ListLicenses(ctx context.Context) ([]models.License, error)
	ListDonationPlatforms(ctx context.Context) ([]models.DonationPlatform, error)
	ListReportTypes(ctx context.Context) ([]models.ReportType, error)
}

type lookupRepository struct {
	db *gorm.DB
}

// NewLookupRepository returns a new LookupRepository implementation.
func NewLookupRepository(db *gorm.DB) LookupRepository {
	return &lookupRepository{db: db}
}

func (r *lookupRepository) idByName(ctx context.Context, kind string, model interface{}, column, name string) (int, error) {
	var id int
	err := r.db.WithContext(ctx).Model(model).Select("id").Where(column+" = ?", name).First(&id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewInvalidReferenceError(kind, name)
		}
		return 0, models.NewInternalError(err)
	}
	return id, nil
}

func (r *lookupRepository) CategoryID(ctx context.Context, name string) (int, error) {
	return r.idByName(ctx, "category", &models.Category{}, "category", name)
}

func (r *lookupRepository) LoaderID(ctx context.Context, name string) (int, error) {
	return r.idByName(ctx, "loader", &models.Loader{}, "loader", name)
}

func (r *lookupRepository) GameVersionID(ctx context.Context, name string) (int, error) {
	return r.idByName(ctx, "game version", &models.GameVersion{}, "version", name)
}

func (r *lookupRepository) ChannelID(ctx context.Context, name string) (int, error) {
	return r.idByName(ctx, "release channel", &models.ReleaseChannel{}, "channel", name)
}

func (r *lookupRepository) LicenseBySlug(ctx context.Context, short string) (*models.License, error) {
	var license models.License
	err := r.db.WithContext(ctx).Where("short = ?", short).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInvalidReferenceError("license", short)
		}
		return nil, models.NewInternalError(err)
	}
	return &license, nil
}

func (r *lookupRepository) DonationPlatformBySlug(ctx context.Context, short string) (*models.DonationPlatform, error) {
	var platform models.DonationPlatform
	err := r.db.WithContext(ctx).Where("short = ?", short).First(&platform).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInvalidReferenceError("donation platform", short)
		}
		return nil, models.NewInternalError(err)
	}
	return &platform, nil
}

func (r *lookupRepository) StatusID(ctx context.Context, name models.ProjectStatus) (int, error) {
	return r.idByName(ctx, "status", &models.Status{}, "status", string(name))
}

func (r *lookupRepository) SideTypeID(ctx context.Context, name models.SideType) (int, error) {
	return r.idByName(ctx, "side type", &models.SideTypeRow{}, "name", string(name))
}

func (r *lookupRepository) ProjectTypeID(ctx context.Context, name string) (int, error) {
	return r.idByName(ctx, "project type", &models.ProjectType{}, "name", name)
}

func (r *lookupRepository) ReportTypeID(ctx context.Context, name string) (int, error) {
	return r.idByName(ctx, "report type", &models.ReportType{}, "name", name)
}

func (r *lookupRepository) CategoryNames(ctx context.Context, ids []int) (map[int]string, error) {
	var rows []models.Category
	if len(ids) == 0 {
		return map[int]string{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[int]string, len(rows))
	for _, c := range rows {
		out[c.ID] = c.Category
	}
	return out, nil
}

func (r *lookupRepository) LoaderNames(ctx context.Context, ids []int) (map[int]string, error) {
	var rows []models.Loader
	if len(ids) == 0 {
		return map[int]string{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[int]string, len(rows))
	for _, l := range rows {
		out[l.ID] = l.Loader
	}
	return out, nil
}

func (r *lookupRepository) GameVersionNames(ctx context.Context, ids []int) (map[int]string, error) {
	var rows []models.GameVersion
	if len(ids) == 0 {
		return map[int]string{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[int]string, len(rows))
	for _, v := range rows {
		out[v.ID] = v.Version
	}
	return out, nil
}

func (r *lookupRepository) ChannelName(ctx context.Context, id int) (string, error) {
	var channel models.ReleaseChannel
	if err := r.db.WithContext(ctx).First(&channel, id).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	return channel.Channel, nil
}

func (r *lookupRepository) LicenseByID(ctx context.Context, id int) (*models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).First(&license, id).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &license, nil
}

func (r *lookupRepository) DonationPlatformsByID(ctx context.Context, ids []int) (map[int]models.DonationPlatform, error) {
	var rows []models.DonationPlatform
	if len(ids) == 0 {
		return map[int]models.DonationPlatform{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[int]models.DonationPlatform, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *lookupRepository) StatusName(ctx context.Context, id int) (models.ProjectStatus, error) {
	var status models.Status
	if err := r.db.WithContext(ctx).First(&status, id).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	return models.ProjectStatus(status.Status), nil
}

func (r *lookupRepository) SideTypeName(ctx context.Context, id int) (models.SideType, error) {
	var side models.SideTypeRow
	if err := r.db.WithContext(ctx).First(&side, id).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	return models.SideType(side.Name), nil
}

func (r *lookupRepository) ProjectTypeName(ctx context.Context, id int) (string, error) {
	var pt models.ProjectType
	if err := r.db.WithContext(ctx).First(&pt, id).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	return pt.Name, nil
}

func (r *lookupRepository) ReportTypeName(ctx context.Context, id int) (string, error) {
	var rt models.ReportType
	if err := r.db.WithContext(ctx).First(&rt, id).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	return rt.Name, nil
}

func (r *lookupRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Order("category").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *lookupRepository) ListLoaders(ctx context.Context) ([]models.Loader, error) {
	var rows []models.Loader
	if err := r.db.WithContext(ctx).Order("loader").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *lookupRepository) ListGameVersions(ctx context.Context) ([]models.GameVersion, error) {
	var rows []models.GameVersion
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *lookupRepository) ListLicenses(ctx context.Context) ([]models.License, error) {
	var rows []models.License
	if err := r.db.WithContext(ctx).Order("short").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *lookupRepository) ListDonationPlatforms(ctx context.Context) ([]models.DonationPlatform, error) {
	var rows []models.DonationPlatform
	if err := r.db.WithContext(ctx).Order("short").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *lookupRepository) ListReportTypes(ctx context.Context) ([]models.ReportType, error) {
	var rows []models.ReportType
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
