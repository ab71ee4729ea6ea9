package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Geometrically/fabricate/internal/filehost"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
	"github.com/Geometrically/fabricate/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectRepoStub is a stub for repository.ProjectRepository. Only the
// methods the edit path touches take func fields; the rest are no-ops.
type projectRepoStub struct {
	resolveIDFn     func(context.Context, string) (models.ID, error)
	getFullFn       func(context.Context, models.ID) (*models.QueryProject, error)
	updateFieldsFn  func(context.Context, models.ID, map[string]interface{}) error
	setCategoriesFn func(context.Context, models.ID, []int) error
}

func (s *projectRepoStub) GenerateID(ctx context.Context) (models.ID, error)       { return 0, nil }
func (s *projectRepoStub) GenerateTeamID(ctx context.Context) (models.ID, error)   { return 0, nil }
func (s *projectRepoStub) GenerateMemberID(ctx context.Context) (models.ID, error) { return 0, nil }
func (s *projectRepoStub) Insert(ctx context.Context, b *repository.ProjectBuilder) error {
	return nil
}
func (s *projectRepoStub) InsertWithVersions(ctx context.Context, b *repository.ProjectBuilder, versions []repository.VersionBuilder) error {
	return nil
}
func (s *projectRepoStub) Get(ctx context.Context, id models.ID) (*models.Project, error) {
	return nil, models.NewNotFoundError("project")
}
func (s *projectRepoStub) GetFull(ctx context.Context, id models.ID) (*models.QueryProject, error) {
	return s.getFullFn(ctx, id)
}
func (s *projectRepoStub) GetManyFull(ctx context.Context, ids []models.ID) ([]models.QueryProject, error) {
	return nil, nil
}
func (s *projectRepoStub) ResolveID(ctx context.Context, ref string) (models.ID, error) {
	return s.resolveIDFn(ctx, ref)
}
func (s *projectRepoStub) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return false, nil
}
func (s *projectRepoStub) UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *projectRepoStub) SetCategories(ctx context.Context, id models.ID, categoryIDs []int) error {
	if s.setCategoriesFn != nil {
		return s.setCategoriesFn(ctx, id, categoryIDs)
	}
	return nil
}
func (s *projectRepoStub) SetDonations(ctx context.Context, id models.ID, donations []models.ProjectDonation) error {
	return nil
}
func (s *projectRepoStub) Remove(ctx context.Context, id, teamID models.ID) error { return nil }
func (s *projectRepoStub) Follow(ctx context.Context, userID, projectID models.ID) error {
	return nil
}
func (s *projectRepoStub) Unfollow(ctx context.Context, userID, projectID models.ID) error {
	return nil
}
func (s *projectRepoStub) IsFollowing(ctx context.Context, userID, projectID models.ID) (bool, error) {
	return false, nil
}
func (s *projectRepoStub) ListFollowed(ctx context.Context, userID models.ID) ([]models.ID, error) {
	return nil, nil
}
func (s *projectRepoStub) ListByStatus(ctx context.Context, statusID, limit, offset int) ([]models.ID, error) {
	return nil, nil
}

// lookupStub is a stub for repository.LookupRepository backed by canned rows.
type lookupStub struct{}

func (lookupStub) CategoryID(ctx context.Context, name string) (int, error)    { return 1, nil }
func (lookupStub) LoaderID(ctx context.Context, name string) (int, error)      { return 1, nil }
func (lookupStub) GameVersionID(ctx context.Context, name string) (int, error) { return 1, nil }
func (lookupStub) ChannelID(ctx context.Context, name string) (int, error)     { return 1, nil }
func (lookupStub) LicenseBySlug(ctx context.Context, short string) (*models.License, error) {
	return &models.License{ID: 1, Short: short, Name: "MIT License"}, nil
}
func (lookupStub) DonationPlatformBySlug(ctx context.Context, short string) (*models.DonationPlatform, error) {
	return &models.DonationPlatform{ID: 1, Short: short, Name: short}, nil
}
func (lookupStub) StatusID(ctx context.Context, name models.ProjectStatus) (int, error) {
	if name == models.StatusApproved {
		return 1, nil
	}
	return 2, nil
}
func (lookupStub) SideTypeID(ctx context.Context, name models.SideType) (int, error) { return 1, nil }
func (lookupStub) ProjectTypeID(ctx context.Context, name string) (int, error)       { return 1, nil }
func (lookupStub) ReportTypeID(ctx context.Context, name string) (int, error)        { return 1, nil }
func (lookupStub) CategoryNames(ctx context.Context, ids []int) (map[int]string, error) {
	return map[int]string{}, nil
}
func (lookupStub) LoaderNames(ctx context.Context, ids []int) (map[int]string, error) {
	return map[int]string{}, nil
}
func (lookupStub) GameVersionNames(ctx context.Context, ids []int) (map[int]string, error) {
	return map[int]string{}, nil
}
func (lookupStub) ChannelName(ctx context.Context, id int) (string, error) { return "release", nil }
func (lookupStub) LicenseByID(ctx context.Context, id int) (*models.License, error) {
	return &models.License{ID: id, Short: "mit", Name: "MIT License"}, nil
}
func (lookupStub) DonationPlatformsByID(ctx context.Context, ids []int) (map[int]models.DonationPlatform, error) {
	return map[int]models.DonationPlatform{}, nil
}
func (lookupStub) StatusName(ctx context.Context, id int) (models.ProjectStatus, error) {
	if id == 1 {
		return models.StatusApproved, nil
	}
	return models.StatusDraft, nil
}
func (lookupStub) SideTypeName(ctx context.Context, id int) (models.SideType, error) {
	return models.SideRequired, nil
}
func (lookupStub) ProjectTypeName(ctx context.Context, id int) (string, error) { return "mod", nil }
func (lookupStub) ReportTypeName(ctx context.Context, id int) (string, error)  { return "spam", nil }
func (lookupStub) ListCategories(ctx context.Context) ([]models.Category, error) { return nil, nil }
func (lookupStub) ListLoaders(ctx context.Context) ([]models.Loader, error)      { return nil, nil }
func (lookupStub) ListGameVersions(ctx context.Context) ([]models.GameVersion, error) {
	return nil, nil
}
func (lookupStub) ListLicenses(ctx context.Context) ([]models.License, error) { return nil, nil }
func (lookupStub) ListDonationPlatforms(ctx context.Context) ([]models.DonationPlatform, error) {
	return nil, nil
}
func (lookupStub) ListReportTypes(ctx context.Context) ([]models.ReportType, error) {
	return nil, nil
}

// indexStub records index writes for assertions.
type indexStub struct {
	upserted []search.ProjectDocument
	deleted  []string
}

func (s *indexStub) UpsertProject(ctx context.Context, doc search.ProjectDocument) error {
	s.upserted = append(s.upserted, doc)
	return nil
}
func (s *indexStub) DeleteProject(ctx context.Context, documentID string) error {
	s.deleted = append(s.deleted, documentID)
	return nil
}

// hostStub records blob keys written and removed.
type hostStub struct {
	uploaded []string
	deleted  []string
}

func (s *hostStub) Upload(ctx context.Context, contentType, key string, data []byte) (*filehost.UploadedFile, error) {
	s.uploaded = append(s.uploaded, key)
	return &filehost.UploadedFile{FileID: key, FileName: key}, nil
}
func (s *hostStub) Delete(ctx context.Context, fileID, fileName string) error {
	s.deleted = append(s.deleted, fileName)
	return nil
}

const testProjectID models.ID = 77

func queryProjectFixture(status models.ProjectStatus) *models.QueryProject {
	slug := "iron-craft"
	now := time.Now().UTC()
	return &models.QueryProject{
		Project: models.Project{
			ID: testProjectID, TeamID: testTeamID, Slug: &slug,
			Title: "Iron Craft", Description: "adds iron things",
			Published: now, Updated: now,
		},
		Status:      status,
		ProjectType: "mod",
	}
}

func projectTable(p *models.QueryProject) *projectRepoStub {
	return &projectRepoStub{
		resolveIDFn: func(context.Context, string) (models.ID, error) { return p.ID, nil },
		getFullFn:   func(context.Context, models.ID) (*models.QueryProject, error) { return p, nil },
		updateFieldsFn: func(context.Context, models.ID, map[string]interface{}) error {
			return nil
		},
	}
}

func newProjectServiceForTest(projects *projectRepoStub, teams *teamRepoStub, host filehost.FileHost, index search.Index) *ProjectService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProjectService(
		projects, nil, teams, testUsers(), lookupStub{},
		host, index, search.NewQueue(index, logger, 8),
		"http://cdn.test", logger,
	)
}

func TestEditProjectRequiresFieldPermission(t *testing.T) {
	uploader := models.TeamMember{
		ID: 2, TeamID: testTeamID, UserID: testUserID,
		Role: "Developer", Permissions: models.PermissionUploadVersion, Accepted: true,
	}
	projects := projectTable(queryProjectFixture(models.StatusDraft))
	var written map[string]interface{}
	projects.updateFieldsFn = func(_ context.Context, _ models.ID, fields map[string]interface{}) error {
		written = fields
		return nil
	}
	svc := newProjectServiceForTest(projects, memberTable(ownerMember(), uploader), &hostStub{}, &indexStub{})
	caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}

	title := "Renamed Craft"
	err := svc.EditProject(context.Background(), caller, "iron-craft", EditProjectInput{Title: &title})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	// A rejected edit writes nothing.
	assert.Nil(t, written)
}

func TestEditProjectOmittableNullClearsField(t *testing.T) {
	projects := projectTable(queryProjectFixture(models.StatusDraft))
	var written map[string]interface{}
	projects.updateFieldsFn = func(_ context.Context, _ models.ID, fields map[string]interface{}) error {
		written = fields
		return nil
	}
	svc := newProjectServiceForTest(projects, memberTable(ownerMember()), &hostStub{}, &indexStub{})
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	err := svc.EditProject(context.Background(), caller, "iron-craft", EditProjectInput{
		IssuesURL: models.OmittableNull[string](),
	})
	require.NoError(t, err)
	require.Contains(t, written, "issues_url")
	assert.Nil(t, written["issues_url"].(*string))
	// Fields absent from the payload stay untouched.
	assert.NotContains(t, written, "source_url")
	assert.NotContains(t, written, "wiki_url")
}

func TestEditProjectLeavingSearchableSetDeletesSynchronously(t *testing.T) {
	projects := projectTable(queryProjectFixture(models.StatusApproved))
	index := &indexStub{}
	svc := newProjectServiceForTest(projects, memberTable(ownerMember()), &hostStub{}, index)
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	status := models.StatusDraft
	err := svc.EditProject(context.Background(), caller, "iron-craft", EditProjectInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, []string{search.DocumentID(testProjectID)}, index.deleted)
	assert.Empty(t, index.upserted)
}

func TestSetIconDeletesReplacedBlob(t *testing.T) {
	project := queryProjectFixture(models.StatusDraft)
	oldURL := "http://cdn.test/data/" + testProjectID.Base62() + "/icon.png"
	project.IconURL = &oldURL
	projects := projectTable(project)
	var written map[string]interface{}
	projects.updateFieldsFn = func(_ context.Context, _ models.ID, fields map[string]interface{}) error {
		written = fields
		return nil
	}
	host := &hostStub{}
	svc := newProjectServiceForTest(projects, memberTable(ownerMember()), host, &indexStub{})
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"/>`)
	err := svc.SetIcon(context.Background(), caller, "iron-craft", "image/svg+xml", svg)
	require.NoError(t, err)

	newKey := "data/" + testProjectID.Base62() + "/icon.svg"
	assert.Equal(t, []string{newKey}, host.uploaded)
	assert.Equal(t, map[string]interface{}{"icon_url": "http://cdn.test/" + newKey}, written)
	// The previous icon lived under a different extension, so its blob is
	// removed once the replacement is stored.
	assert.Equal(t, []string{"data/" + testProjectID.Base62() + "/icon.png"}, host.deleted)
}

func TestSetIconKeepsBlobWhenKeyUnchanged(t *testing.T) {
	project := queryProjectFixture(models.StatusDraft)
	oldURL := "http://cdn.test/data/" + testProjectID.Base62() + "/icon.svg"
	project.IconURL = &oldURL
	projects := projectTable(project)
	host := &hostStub{}
	svc := newProjectServiceForTest(projects, memberTable(ownerMember()), host, &indexStub{})
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"/>`)
	err := svc.SetIcon(context.Background(), caller, "iron-craft", "image/svg+xml", svg)
	require.NoError(t, err)
	assert.Empty(t, host.deleted)
}
