package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Geometrically/fabricate/internal/cache"
	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// ProjectBuilder carries everything inserted atomically when a project is
// created: the owning team with its members, the project row and its join
// rows.
type ProjectBuilder struct {
	Project     models.Project
	CategoryIDs []int
	Donations   []models.ProjectDonation
	Team        models.Team
	Members     []models.TeamMember
}

// ProjectRepository defines persistence operations for projects and their
// denormalized aggregates.
type ProjectRepository interface {
	GenerateID(ctx context.Context) (models.ID, error)
	GenerateTeamID(ctx context.Context) (models.ID, error)
	GenerateMemberID(ctx context.Context) (models.ID, error)

	Insert(ctx context.Context, b *ProjectBuilder) error
	InsertWithVersions(ctx context.Context, b *ProjectBuilder, versions []VersionBuilder) error
	Get(ctx context.Context, id models.ID) (*models.Project, error)
	GetFull(ctx context.Context, id models.ID) (*models.QueryProject, error)
	GetManyFull(ctx context.Context, ids []models.ID) ([]models.QueryProject, error)
	ResolveID(ctx context.Context, ref string) (models.ID, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)

	UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error
	SetCategories(ctx context.Context, id models.ID, categoryIDs []int) error
	SetDonations(ctx context.Context, id models.ID, donations []models.ProjectDonation) error
	Remove(ctx context.Context, id, teamID models.ID) error

	Follow(ctx context.Context, userID, projectID models.ID) error
	Unfollow(ctx context.Context, userID, projectID models.ID) error
	IsFollowing(ctx context.Context, userID, projectID models.ID) (bool, error)
	ListFollowed(ctx context.Context, userID models.ID) ([]models.ID, error)
	ListByStatus(ctx context.Context, statusID, limit, offset int) ([]models.ID, error)
}

type projectRepository struct {
	db     *gorm.DB
	lookup LookupRepository
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB, lookup LookupRepository) ProjectRepository {
	return &projectRepository{db: db, lookup: lookup}
}

func (r *projectRepository) GenerateID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "projects")
}

func (r *projectRepository) GenerateTeamID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "teams")
}

func (r *projectRepository) GenerateMemberID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "team_members")
}

// insertProjectTx writes the team, members, project row and join rows on an
// already-open transaction.
func insertProjectTx(tx *gorm.DB, b *ProjectBuilder) error {
	if err := tx.Create(&b.Team).Error; err != nil {
		return err
	}
	for i := range b.Members {
		if err := tx.Create(&b.Members[i]).Error; err != nil {
			return err
		}
	}
	if err := tx.Create(&b.Project).Error; err != nil {
		return err
	}
	for _, categoryID := range b.CategoryIDs {
		row := models.ProjectCategory{ProjectID: b.Project.ID, CategoryID: categoryID}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for i := range b.Donations {
		b.Donations[i].ProjectID = b.Project.ID
		if err := tx.Create(&b.Donations[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *projectRepository) Insert(ctx context.Context, b *ProjectBuilder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertProjectTx(tx, b)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("slug collides with an existing project")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// InsertWithVersions commits a new project and its initial versions in one
// transaction: a failure on any version leaves no orphan project row behind.
func (r *projectRepository) InsertWithVersions(ctx context.Context, b *ProjectBuilder, versions []VersionBuilder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertProjectTx(tx, b); err != nil {
			return err
		}
		for i := range versions {
			if err := insertVersionTx(tx, &versions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("slug collides with an existing project")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) Get(ctx context.Context, id models.ID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("project")
		}
		return nil, models.NewInternalError(err)
	}
	return &project, nil
}

func (r *projectRepository) GetFull(ctx context.Context, id models.ID) (*models.QueryProject, error) {
	var full models.QueryProject
	key := cache.ProjectKey(id)

	err := cache.Aside(ctx, key, &full, cache.ProjectTTL, func() error {
		results, err := r.GetManyFull(ctx, []models.ID{id})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return models.NewNotFoundError("project")
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
// by project id. A single round trip per relation beats per-project loads
// for the multi-get endpoints.
func (r *projectRepository) GetManyFull(ctx context.Context, ids []models.ID) ([]models.QueryProject, error) {
	if len(ids) == 0 {
		return []models.QueryProject{}, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	var projects []models.Project
	if err := r.db.WithContext(ctx).Where("id IN ?", raw).Find(&projects).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(projects) == 0 {
		return []models.QueryProject{}, nil
	}

	type versionRow struct {
		ID        models.ID
		ProjectID models.ID
	}
	var versionRows []versionRow
	if err := r.db.WithContext(ctx).Model(&models.Version{}).
		Select("id", "project_id").
		Where("project_id IN ?", raw).
		Order("date_published DESC").
		Find(&versionRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	versionsByProject := make(map[models.ID][]models.ID)
	for _, v := range versionRows {
		versionsByProject[v.ProjectID] = append(versionsByProject[v.ProjectID], v.ID)
	}

	var categoryRows []models.ProjectCategory
	if err := r.db.WithContext(ctx).Where("project_id IN ?", raw).Find(&categoryRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	var donationRows []models.ProjectDonation
	if err := r.db.WithContext(ctx).Where("project_id IN ?", raw).Find(&donationRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	categoryIDs := make([]int, 0, len(categoryRows))
	for _, row := range categoryRows {
		categoryIDs = append(categoryIDs, row.CategoryID)
	}
	categoryNames, err := r.lookup.CategoryNames(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	platformIDs := make([]int, 0, len(donationRows))
	for _, row := range donationRows {
		platformIDs = append(platformIDs, row.PlatformID)
	}
	platforms, err := r.lookup.DonationPlatformsByID(ctx, platformIDs)
	if err != nil {
		return nil, err
	}

	categoriesByProject := make(map[models.ID][]string)
	for _, row := range categoryRows {
		if name, ok := categoryNames[row.CategoryID]; ok {
			categoriesByProject[row.ProjectID] = append(categoriesByProject[row.ProjectID], name)
		}
	}
	donationsByProject := make(map[models.ID][]models.DonationLink)
	for _, row := range donationRows {
		platform, ok := platforms[row.PlatformID]
		if !ok {
			continue
		}
		donationsByProject[row.ProjectID] = append(donationsByProject[row.ProjectID], models.DonationLink{
			ID:       platform.Short,
			Platform: platform.Name,
			URL:      row.URL,
		})
	}

	// Lookup names are resolved per distinct id; the tables are tiny.
	statusNames := make(map[int]models.ProjectStatus)
	sideNames := make(map[int]models.SideType)
	typeNames := make(map[int]string)
	licenses := make(map[int]*models.License)

	out := make([]models.QueryProject, 0, len(projects))
	for _, project := range projects {
		statusName, ok := statusNames[project.StatusID]
		if !ok {
			if statusName, err = r.lookup.StatusName(ctx, project.StatusID); err != nil {
				return nil, err
			}
			statusNames[project.StatusID] = statusName
		}
		clientSide, ok := sideNames[project.ClientSideID]
		if !ok {
			if clientSide, err = r.lookup.SideTypeName(ctx, project.ClientSideID); err != nil {
				return nil, err
			}
			sideNames[project.ClientSideID] = clientSide
		}
		serverSide, ok := sideNames[project.ServerSideID]
		if !ok {
			if serverSide, err = r.lookup.SideTypeName(ctx, project.ServerSideID); err != nil {
				return nil, err
			}
			sideNames[project.ServerSideID] = serverSide
		}
		typeName, ok := typeNames[project.ProjectTypeID]
		if !ok {
			if typeName, err = r.lookup.ProjectTypeName(ctx, project.ProjectTypeID); err != nil {
				return nil, err
			}
			typeNames[project.ProjectTypeID] = typeName
		}
		license, ok := licenses[project.LicenseID]
		if !ok {
			if license, err = r.lookup.LicenseByID(ctx, project.LicenseID); err != nil {
				return nil, err
			}
			licenses[project.LicenseID] = license
		}

		categories := categoriesByProject[project.ID]
		if categories == nil {
			categories = []string{}
		}
		versions := versionsByProject[project.ID]
		if versions == nil {
			versions = []models.ID{}
		}
		donations := donationsByProject[project.ID]
		if donations == nil {
			donations = []models.DonationLink{}
		}

		out = append(out, models.QueryProject{
			Project:     project,
			ProjectType: typeName,
			Status:      statusName,
			ClientSide:  clientSide,
			ServerSide:  serverSide,
			License: models.LicenseInfo{
				ID:   license.Short,
				Name: license.Name,
				URL:  project.LicenseURL,
			},
			Categories:   categories,
			Versions:     versions,
			DonationURLs: donations,
		})
	}
	return out, nil
}

// ResolveID maps a slug-or-id reference to a project id. Base-62 decodable
// references are tried as ids first; anything else, or a decodable string
// matching no row, falls through to slug lookup.
func (r *projectRepository) ResolveID(ctx context.Context, ref string) (models.ID, error) {
	if id, err := models.ParseID(ref); err == nil {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", int64(id)).Count(&count).Error; err != nil {
			return 0, models.NewInternalError(err)
		}
		if count > 0 {
			return id, nil
		}
	}
	var project models.Project
	err := r.db.WithContext(ctx).Select("id").Where("slug = ?", strings.ToLower(ref)).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("project")
		}
		return 0, models.NewInternalError(err)
	}
	return project.ID, nil
}

// SlugTaken reports whether the slug collides with an existing slug or with
// the base-62 encoding of an existing project id. The second check keeps the
// slug-or-id reference space unambiguous.
func (r *projectRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	if count > 0 {
		return true, nil
	}
	if id, err := models.ParseID(slug); err == nil {
		if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", int64(id)).Count(&count).Error; err != nil {
			return false, models.NewInternalError(err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *projectRepository) UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated"] = time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", int64(id)).Updates(fields).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("slug collides with an existing project")
		}
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, id)
	return nil
}

// SetCategories replaces the full category set. Delete-all-then-insert keeps
// the write idempotent without diffing.
func (r *projectRepository) SetCategories(ctx context.Context, id models.ID, categoryIDs []int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", int64(id)).Delete(&models.ProjectCategory{}).Error; err != nil {
			return err
		}
		for _, categoryID := range categoryIDs {
			row := models.ProjectCategory{ProjectID: id, CategoryID: categoryID}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *projectRepository) SetDonations(ctx context.Context, id models.ID, donations []models.ProjectDonation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", int64(id)).Delete(&models.ProjectDonation{}).Error; err != nil {
			return err
		}
		for i := range donations {
			donations[i].ProjectID = id
			if err := tx.Create(&donations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, id)
	return nil
}

// Remove deletes the project and everything hanging off it in one
// transaction: versions with their files, hashes and edges, the join rows,
// and the owning team. Blob deletion happens upstream since it cannot join
// the transaction.
func (r *projectRepository) Remove(ctx context.Context, id, teamID models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var versionIDs []int64
		if err := tx.Model(&models.Version{}).Select("id").Where("project_id = ?", int64(id)).Find(&versionIDs).Error; err != nil {
			return err
		}
		if len(versionIDs) > 0 {
			var fileIDs []int64
			if err := tx.Model(&models.VersionFile{}).Select("id").Where("version_id IN ?", versionIDs).Find(&fileIDs).Error; err != nil {
				return err
			}
			if len(fileIDs) > 0 {
				if err := tx.Where("file_id IN ?", fileIDs).Delete(&models.FileHash{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("version_id IN ?", versionIDs).Delete(&models.VersionFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("dependent_id IN ? OR dependency_id IN ?", versionIDs, versionIDs).Delete(&models.VersionDependency{}).Error; err != nil {
				return err
			}
			if err := tx.Where("version_id IN ?", versionIDs).Delete(&models.VersionLoader{}).Error; err != nil {
				return err
			}
			if err := tx.Where("version_id IN ?", versionIDs).Delete(&models.VersionGameVersion{}).Error; err != nil {
				return err
			}
			if err := tx.Where("version_id IN ?", versionIDs).Delete(&models.DownloadLog{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", int64(id)).Delete(&models.Version{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", int64(id)).Delete(&models.ProjectCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", int64(id)).Delete(&models.ProjectDonation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", int64(id)).Delete(&models.ProjectFollow{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Project{}, int64(id)).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", int64(teamID)).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Team{}, int64(teamID)).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *projectRepository) Follow(ctx context.Context, userID, projectID models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.ProjectFollow{FollowerID: userID, ProjectID: projectID}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", int64(projectID)).
			UpdateColumn("follows", gorm.Expr("follows + 1")).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("already following this project")
		}
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, projectID)
	return nil
}

func (r *projectRepository) Unfollow(ctx context.Context, userID, projectID models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND project_id = ?", int64(userID), int64(projectID)).Delete(&models.ProjectFollow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("not following this project")
		}
		return tx.Model(&models.Project{}).Where("id = ?", int64(projectID)).
			UpdateColumn("follows", gorm.Expr("follows - 1")).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, projectID)
	return nil
}

func (r *projectRepository) IsFollowing(ctx context.Context, userID, projectID models.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProjectFollow{}).
		Where("follower_id = ? AND project_id = ?", int64(userID), int64(projectID)).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *projectRepository) ListFollowed(ctx context.Context, userID models.ID) ([]models.ID, error) {
	var rows []models.ProjectFollow
	if err := r.db.WithContext(ctx).Where("follower_id = ?", int64(userID)).Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make([]models.ID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ProjectID)
	}
	return out, nil
}

func (r *projectRepository) ListByStatus(ctx context.Context, statusID, limit, offset int) ([]models.ID, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Select("id").
		Where("status_id = ?", statusID).
		Order("published ASC").
		Limit(limit).Offset(offset).
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

func (r *projectRepository) invalidate(ctx context.Context, id models.ID) {
	var slug *string
	var project models.Project
	if err := r.db.WithContext(ctx).Select("slug").First(&project, int64(id)).Error; err == nil {
		slug = project.Slug
	}
	cache.InvalidateProject(ctx, id, slug)
}
