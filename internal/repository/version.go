package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Geometrically/fabricate/internal/cache"
	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// VersionFileBuilder pairs a file row with its hashes for atomic insertion.
type VersionFileBuilder struct {
	File   models.VersionFile
	Hashes []models.FileHash
}

// VersionBuilder carries everything inserted atomically when a version is
// created.
type VersionBuilder struct {
	Version        models.Version
	Files          []VersionFileBuilder
	LoaderIDs      []int
	GameVersionIDs []int
	Dependencies   []models.VersionDependency
}

// VersionRepository defines persistence operations for versions, their files
// and the download log.
type VersionRepository interface {
	GenerateID(ctx context.Context) (models.ID, error)
	GenerateFileID(ctx context.Context) (models.ID, error)

	Insert(ctx context.Context, b *VersionBuilder) error
	Get(ctx context.Context, id models.ID) (*models.Version, error)
	GetFull(ctx context.Context, id models.ID) (*models.QueryVersion, error)
	GetManyFull(ctx context.Context, ids []models.ID) ([]models.QueryVersion, error)
	ListIDs(ctx context.Context, projectID models.ID) ([]models.ID, error)
	NumberExists(ctx context.Context, projectID models.ID, number string) (bool, error)

	UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error
	SetLoaders(ctx context.Context, id models.ID, loaderIDs []int) error
	SetGameVersions(ctx context.Context, id models.ID, gameVersionIDs []int) error
	SetDependencies(ctx context.Context, id models.ID, deps []models.VersionDependency) error

	AddFile(ctx context.Context, versionID models.ID, fb *VersionFileBuilder) error
	RemoveFile(ctx context.Context, fileID models.ID) error
	FilesForVersion(ctx context.Context, versionID models.ID) ([]models.VersionFile, error)
	SetPrimaryFile(ctx context.Context, versionID, fileID models.ID) error
	FileByHash(ctx context.Context, algorithm, hash string) (*models.VersionFile, error)

	Remove(ctx context.Context, id models.ID) error
	RecordDownload(ctx context.Context, versionID models.ID, identifier string, window time.Duration) (bool, error)
}

type versionRepository struct {
	db     *gorm.DB
	lookup LookupRepository
}

// NewVersionRepository returns a new VersionRepository implementation.
func NewVersionRepository(db *gorm.DB, lookup LookupRepository) VersionRepository {
	return &versionRepository{db: db, lookup: lookup}
}

func (r *versionRepository) GenerateID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "versions")
}

func (r *versionRepository) GenerateFileID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "version_files")
}

// insertVersionTx writes a version with its files, hashes, join rows and
// dependencies on an already-open transaction, so project creation can commit
// the project and its initial versions atomically.
func insertVersionTx(tx *gorm.DB, b *VersionBuilder) error {
	if err := tx.Create(&b.Version).Error; err != nil {
		return err
	}
	for i := range b.Files {
		b.Files[i].File.VersionID = b.Version.ID
		if err := tx.Create(&b.Files[i].File).Error; err != nil {
			return err
		}
		for j := range b.Files[i].Hashes {
			b.Files[i].Hashes[j].FileID = b.Files[i].File.ID
			if err := tx.Create(&b.Files[i].Hashes[j]).Error; err != nil {
				return err
			}
		}
	}
	for _, loaderID := range b.LoaderIDs {
		row := models.VersionLoader{VersionID: b.Version.ID, LoaderID: loaderID}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for _, gameVersionID := range b.GameVersionIDs {
		row := models.VersionGameVersion{VersionID: b.Version.ID, GameVersionID: gameVersionID}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for i := range b.Dependencies {
		b.Dependencies[i].DependentID = b.Version.ID
		if err := tx.Create(&b.Dependencies[i]).Error; err != nil {
			return err
		}
	}
	// The parent project surfaces version changes through its updated
	// timestamp.
	return tx.Model(&models.Project{}).Where("id = ?", int64(b.Version.ProjectID)).
		UpdateColumn("updated", time.Now().UTC()).Error
}

func (r *versionRepository) Insert(ctx context.Context, b *VersionBuilder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertVersionTx(tx, b)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateProject(ctx, b.Version.ProjectID, nil)
	return nil
}

func (r *versionRepository) Get(ctx context.Context, id models.ID) (*models.Version, error) {
	var version models.Version
	if err := r.db.WithContext(ctx).First(&version, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("version")
		}
		return nil, models.NewInternalError(err)
	}
	return &version, nil
}

func (r *versionRepository) GetFull(ctx context.Context, id models.ID) (*models.QueryVersion, error) {
	var full models.QueryVersion
	key := cache.VersionKey(id)

	err := cache.Aside(ctx, key, &full, cache.VersionTTL, func() error {
		results, err := r.GetManyFull(ctx, []models.ID{id})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return models.NewNotFoundError("version")
		}
		full = results[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &full, nil
}

// GetManyFull assembles aggregates with one query per relation, partitioned
// by version id.
func (r *versionRepository) GetManyFull(ctx context.Context, ids []models.ID) ([]models.QueryVersion, error) {
	if len(ids) == 0 {
		return []models.QueryVersion{}, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	var versions []models.Version
	if err := r.db.WithContext(ctx).Where("id IN ?", raw).Order("date_published DESC").Find(&versions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(versions) == 0 {
		return []models.QueryVersion{}, nil
	}

	var files []models.VersionFile
	if err := r.db.WithContext(ctx).Where("version_id IN ?", raw).Order("id ASC").Find(&files).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	fileIDs := make([]int64, 0, len(files))
	for _, f := range files {
		fileIDs = append(fileIDs, int64(f.ID))
	}
	var hashes []models.FileHash
	if len(fileIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("file_id IN ?", fileIDs).Find(&hashes).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	hashesByFile := make(map[models.ID]map[string]string)
	for _, h := range hashes {
		if hashesByFile[h.FileID] == nil {
			hashesByFile[h.FileID] = make(map[string]string)
		}
		hashesByFile[h.FileID][h.Algorithm] = string(h.Hash)
	}
	filesByVersion := make(map[models.ID][]models.QueryFile)
	for _, f := range files {
		fileHashes := hashesByFile[f.ID]
		if fileHashes == nil {
			fileHashes = map[string]string{}
		}
		filesByVersion[f.VersionID] = append(filesByVersion[f.VersionID], models.QueryFile{
			ID:       f.ID,
			URL:      f.URL,
			Filename: f.Filename,
			Primary:  f.Primary,
			Hashes:   fileHashes,
		})
	}

	var deps []models.VersionDependency
	if err := r.db.WithContext(ctx).Where("dependent_id IN ?", raw).Find(&deps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	depsByVersion := make(map[models.ID][]models.VersionDependency)
	for _, d := range deps {
		depsByVersion[d.DependentID] = append(depsByVersion[d.DependentID], d)
	}

	var loaderRows []models.VersionLoader
	if err := r.db.WithContext(ctx).Where("version_id IN ?", raw).Find(&loaderRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	var gameVersionRows []models.VersionGameVersion
	if err := r.db.WithContext(ctx).Where("version_id IN ?", raw).Find(&gameVersionRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	loaderIDs := make([]int, 0, len(loaderRows))
	for _, row := range loaderRows {
		loaderIDs = append(loaderIDs, row.LoaderID)
	}
	loaderNames, err := r.lookup.LoaderNames(ctx, loaderIDs)
	if err != nil {
		return nil, err
	}
	gameVersionIDs := make([]int, 0, len(gameVersionRows))
	for _, row := range gameVersionRows {
		gameVersionIDs = append(gameVersionIDs, row.GameVersionID)
	}
	gameVersionNames, err := r.lookup.GameVersionNames(ctx, gameVersionIDs)
	if err != nil {
		return nil, err
	}

	loadersByVersion := make(map[models.ID][]string)
	for _, row := range loaderRows {
		if name, ok := loaderNames[row.LoaderID]; ok {
			loadersByVersion[row.VersionID] = append(loadersByVersion[row.VersionID], name)
		}
	}
	gameVersionsByVersion := make(map[models.ID][]string)
	for _, row := range gameVersionRows {
		if name, ok := gameVersionNames[row.GameVersionID]; ok {
			gameVersionsByVersion[row.VersionID] = append(gameVersionsByVersion[row.VersionID], name)
		}
	}

	channelNames := make(map[int]string)

	out := make([]models.QueryVersion, 0, len(versions))
	for _, version := range versions {
		channel, ok := channelNames[version.ChannelID]
		if !ok {
			if channel, err = r.lookup.ChannelName(ctx, version.ChannelID); err != nil {
				return nil, err
			}
			channelNames[version.ChannelID] = channel
		}

		versionFiles := filesByVersion[version.ID]
		if versionFiles == nil {
			versionFiles = []models.QueryFile{}
		}
		versionDeps := depsByVersion[version.ID]
		if versionDeps == nil {
			versionDeps = []models.VersionDependency{}
		}
		loaders := loadersByVersion[version.ID]
		if loaders == nil {
			loaders = []string{}
		}
		gameVersions := gameVersionsByVersion[version.ID]
		if gameVersions == nil {
			gameVersions = []string{}
		}

		out = append(out, models.QueryVersion{
			Version:      version,
			VersionType:  models.VersionType(channel),
			Files:        versionFiles,
			Dependencies: versionDeps,
			GameVersions: gameVersions,
			Loaders:      loaders,
		})
	}
	return out, nil
}

func (r *versionRepository) ListIDs(ctx context.Context, projectID models.ID) ([]models.ID, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Version{}).
		Select("id").
		Where("project_id = ?", int64(projectID)).
		Order("date_published DESC").
		Find(&ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make([]models.ID, len(ids))
	for i, id := range ids {
		out[i] = models.ID(id)
	}
	return out, nil
}

func (r *versionRepository) NumberExists(ctx context.Context, projectID models.ID, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Version{}).
		Where("project_id = ? AND version_number = ?", int64(projectID), number).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *versionRepository) UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Version{}).Where("id = ?", int64(id)).Updates(fields).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, id)
	return nil
}

func (r *versionRepository) SetLoaders(ctx context.Context, id models.ID, loaderIDs []int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", int64(id)).Delete(&models.VersionLoader{}).Error; err != nil {
			return err
		}
		for _, loaderID := range loaderIDs {
			row := models.VersionLoader{VersionID: id, LoaderID: loaderID}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, id)
	return nil
}

func (r *versionRepository) SetGameVersions(ctx context.Context, id models.ID, gameVersionIDs []int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", int64(id)).Delete(&models.VersionGameVersion{}).Error; err != nil {
			return err
		}
		for _, gameVersionID := range gameVersionIDs {
			row := models.VersionGameVersion{VersionID: id, GameVersionID: gameVersionID}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, id)
	return nil
}

func (r *versionRepository) SetDependencies(ctx context.Context, id models.ID, deps []models.VersionDependency) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dependent_id = ?", int64(id)).Delete(&models.VersionDependency{}).Error; err != nil {
			return err
		}
		for i := range deps {
			deps[i].DependentID = id
			if err := tx.Create(&deps[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, id)
	return nil
}

func (r *versionRepository) AddFile(ctx context.Context, versionID models.ID, fb *VersionFileBuilder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fb.File.VersionID = versionID
		if err := tx.Create(&fb.File).Error; err != nil {
			return err
		}
		for j := range fb.Hashes {
			fb.Hashes[j].FileID = fb.File.ID
			if err := tx.Create(&fb.Hashes[j]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, versionID)
	return nil
}

func (r *versionRepository) RemoveFile(ctx context.Context, fileID models.ID) error {
	var file models.VersionFile
	if err := r.db.WithContext(ctx).First(&file, int64(fileID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("file")
		}
		return models.NewInternalError(err)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", int64(fileID)).Delete(&models.FileHash{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.VersionFile{}, int64(fileID)).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, file.VersionID)
	return nil
}

func (r *versionRepository) FilesForVersion(ctx context.Context, versionID models.ID) ([]models.VersionFile, error) {
	var files []models.VersionFile
	err := r.db.WithContext(ctx).Where("version_id = ?", int64(versionID)).Order("id ASC").Find(&files).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return files, nil
}

// SetPrimaryFile clears the flag across the version before setting it so the
// at-most-one invariant holds.
func (r *versionRepository) SetPrimaryFile(ctx context.Context, versionID, fileID models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VersionFile{}).Where("version_id = ?", int64(versionID)).
			UpdateColumn("is_primary", false).Error; err != nil {
			return err
		}
		res := tx.Model(&models.VersionFile{}).Where("id = ? AND version_id = ?", int64(fileID), int64(versionID)).
			UpdateColumn("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("file")
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, versionID)
	return nil
}

func (r *versionRepository) FileByHash(ctx context.Context, algorithm, hash string) (*models.VersionFile, error) {
	var fileHash models.FileHash
	err := r.db.WithContext(ctx).Where("algorithm = ? AND hash = ?", algorithm, []byte(hash)).First(&fileHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("file")
		}
		return nil, models.NewInternalError(err)
	}
	var file models.VersionFile
	if err := r.db.WithContext(ctx).First(&file, int64(fileHash.FileID)).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &file, nil
}

// Remove deletes the version and its dependents in one transaction. Edges
// pointing at the removed version from other versions are dropped too.
func (r *versionRepository) Remove(ctx context.Context, id models.ID) error {
	version, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fileIDs []int64
		if err := tx.Model(&models.VersionFile{}).Select("id").Where("version_id = ?", int64(id)).Find(&fileIDs).Error; err != nil {
			return err
		}
		if len(fileIDs) > 0 {
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&models.FileHash{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("version_id = ?", int64(id)).Delete(&models.VersionFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dependent_id = ? OR dependency_id = ?", int64(id), int64(id)).Delete(&models.VersionDependency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", int64(id)).Delete(&models.VersionLoader{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", int64(id)).Delete(&models.VersionGameVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", int64(id)).Delete(&models.DownloadLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Version{}, int64(id)).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVersion(ctx, id)
	cache.InvalidateProject(ctx, version.ProjectID, nil)
	return nil
}

// RecordDownload counts a download hit unless the same anonymized requester
// already hit this version inside the sliding window. It returns whether the
// hit was counted.
func (r *versionRepository) RecordDownload(ctx context.Context, versionID models.ID, identifier string, window time.Duration) (bool, error) {
	counted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var version models.Version
		if err := tx.First(&version, int64(versionID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("version")
			}
			return err
		}

		cutoff := time.Now().UTC().Add(-window)
		var count int64
		if err := tx.Model(&models.DownloadLog{}).
			Where("version_id = ? AND identifier = ? AND date > ?", int64(versionID), identifier, cutoff).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		row := models.DownloadLog{VersionID: versionID, Identifier: identifier, Date: time.Now().UTC()}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Version{}).Where("id = ?", int64(versionID)).
			UpdateColumn("downloads", gorm.Expr("downloads + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", int64(version.ProjectID)).
			UpdateColumn("downloads", gorm.Expr("downloads + 1")).Error; err != nil {
			return err
		}
		counted = true
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, models.NewInternalError(err)
	}
	if counted {
		cache.InvalidateVersion(ctx, versionID)
	}
	return counted, nil
}
