package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Geometrically/fabricate/internal/database"
	"github.com/Geometrically/fabricate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// lookupIDs holds the lookup rows every fixture references.
type lookupIDs struct {
	statusApproved int
	statusDraft    int
	sideRequired   int
	typeMod        int
	licenseMIT     int
	channelRelease int
	loaderFabric   int
	gv119          int
	gv120          int
	catTech        int
}

func setupTestDB(t *testing.T) (*gorm.DB, lookupIDs) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllEntities()...))

	var ids lookupIDs
	create := func(v interface{}) {
		require.NoError(t, db.Create(v).Error)
	}

	approved := models.Status{Status: string(models.StatusApproved)}
	create(&approved)
	ids.statusApproved = approved.ID
	draft := models.Status{Status: string(models.StatusDraft)}
	create(&draft)
	ids.statusDraft = draft.ID

	required := models.SideTypeRow{Name: string(models.SideRequired)}
	create(&required)
	ids.sideRequired = required.ID

	mod := models.ProjectType{Name: "mod"}
	create(&mod)
	ids.typeMod = mod.ID

	mit := models.License{Short: "mit", Name: "MIT License"}
	create(&mit)
	ids.licenseMIT = mit.ID

	release := models.ReleaseChannel{Channel: "release"}
	create(&release)
	ids.channelRelease = release.ID

	fabric := models.Loader{Loader: "fabric"}
	create(&fabric)
	ids.loaderFabric = fabric.ID

	gv119 := models.GameVersion{Version: "1.19"}
	create(&gv119)
	ids.gv119 = gv119.ID
	gv120 := models.GameVersion{Version: "1.20"}
	create(&gv120)
	ids.gv120 = gv120.ID

	tech := models.Category{Category: "technology"}
	create(&tech)
	ids.catTech = tech.ID

	return db, ids
}

func buildProject(t *testing.T, repo ProjectRepository, ids lookupIDs, slug string) *ProjectBuilder {
	t.Helper()
	ctx := context.Background()

	projectID, err := repo.GenerateID(ctx)
	require.NoError(t, err)
	teamID, err := repo.GenerateTeamID(ctx)
	require.NoError(t, err)
	memberID, err := repo.GenerateMemberID(ctx)
	require.NoError(t, err)

	ownerID := models.ID(4242)
	now := time.Now().UTC()
	b := &ProjectBuilder{
		Project: models.Project{
			ID:            projectID,
			Slug:          &slug,
			ProjectTypeID: ids.typeMod,
			TeamID:        teamID,
			Title:         "Iron Craft",
			Description:   "adds iron things",
			Body:          "a longer body",
			StatusID:      ids.statusApproved,
			ClientSideID:  ids.sideRequired,
			ServerSideID:  ids.sideRequired,
			LicenseID:     ids.licenseMIT,
			Published:     now,
			Updated:       now,
		},
		CategoryIDs: []int{ids.catTech},
		Team:        models.Team{ID: teamID},
		Members: []models.TeamMember{{
			ID: memberID, TeamID: teamID, UserID: ownerID,
			Name: "owner", Role: models.OwnerRole,
			Permissions: models.PermissionsAll, Accepted: true,
		}},
	}
	return b
}

func insertProject(t *testing.T, db *gorm.DB, repo ProjectRepository, ids lookupIDs, slug string) *ProjectBuilder {
	t.Helper()
	b := buildProject(t, repo, ids, slug)
	require.NoError(t, repo.Insert(context.Background(), b))
	return b
}

func buildVersion(t *testing.T, repo VersionRepository, ids lookupIDs, projectID models.ID, number string) *VersionBuilder {
	t.Helper()
	ctx := context.Background()

	versionID, err := repo.GenerateID(ctx)
	require.NoError(t, err)
	fileID, err := repo.GenerateFileID(ctx)
	require.NoError(t, err)

	b := &VersionBuilder{
		Version: models.Version{
			ID:            versionID,
			ProjectID:     projectID,
			AuthorID:      4242,
			Name:          "Release " + number,
			VersionNumber: number,
			ChannelID:     ids.channelRelease,
			DatePublished: time.Now().UTC(),
		},
		Files: []VersionFileBuilder{{
			File: models.VersionFile{
				ID: fileID, VersionID: versionID,
				URL: "http://cdn.example/mod.jar", Filename: "mod.jar", Primary: true,
			},
			Hashes: []models.FileHash{
				{FileID: fileID, Algorithm: "sha1", Hash: []byte("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")},
			},
		}},
		LoaderIDs:      []int{ids.loaderFabric},
		GameVersionIDs: []int{ids.gv119},
	}
	return b
}

func insertVersion(t *testing.T, repo VersionRepository, ids lookupIDs, projectID models.ID, number string) *VersionBuilder {
	t.Helper()
	b := buildVersion(t, repo, ids, projectID, number)
	require.NoError(t, repo.Insert(context.Background(), b))
	return b
}

func TestGenerateIDIsPositive(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	seen := make(map[models.ID]bool)
	for i := 0; i < 10; i++ {
		id, err := GenerateID(ctx, db, "projects")
		require.NoError(t, err)
		assert.Greater(t, int64(id), int64(0))
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestProjectInsertAndGetFull(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	versions := NewVersionRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	v := insertVersion(t, versions, ids, b.Project.ID, "1.0.0")

	full, err := projects.GetFull(ctx, b.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Iron Craft", full.Title)
	assert.Equal(t, models.StatusApproved, full.Status)
	assert.Equal(t, models.SideRequired, full.ClientSide)
	assert.Equal(t, "mod", full.ProjectType)
	assert.Equal(t, "mit", full.License.ID)
	assert.Equal(t, []string{"technology"}, full.Categories)
	assert.Equal(t, []models.ID{v.Version.ID}, full.Versions)
	assert.Empty(t, full.DonationURLs)
}

func TestInsertWithVersionsIsAtomic(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	versions := NewVersionRepository(db, lookup)
	ctx := context.Background()

	b := buildProject(t, projects, ids, "iron-craft")
	good := buildVersion(t, versions, ids, b.Project.ID, "1.0.0")
	dup := buildVersion(t, versions, ids, b.Project.ID, "2.0.0")
	// Reusing the first version's id makes the second insert fail, which
	// must roll back the project row and the first version with it.
	dup.Version.ID = good.Version.ID

	err := projects.InsertWithVersions(ctx, b, []VersionBuilder{*good, *dup})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Version{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Team{}).Count(&count).Error)
	assert.Zero(t, count)

	// The same call with distinct version ids commits everything at once.
	b2 := buildProject(t, projects, ids, "iron-craft")
	v1 := buildVersion(t, versions, ids, b2.Project.ID, "1.0.0")
	v2 := buildVersion(t, versions, ids, b2.Project.ID, "2.0.0")
	require.NoError(t, projects.InsertWithVersions(ctx, b2, []VersionBuilder{*v1, *v2}))

	full, err := projects.GetFull(ctx, b2.Project.ID)
	require.NoError(t, err)
	assert.Len(t, full.Versions, 2)
}

func TestProjectResolveID(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")

	bySlug, err := projects.ResolveID(ctx, "iron-craft")
	require.NoError(t, err)
	assert.Equal(t, b.Project.ID, bySlug)

	byID, err := projects.ResolveID(ctx, b.Project.ID.Base62())
	require.NoError(t, err)
	assert.Equal(t, b.Project.ID, byID)

	_, err = projects.ResolveID(ctx, "no-such-project")
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestProjectSlugTaken(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")

	taken, err := projects.SlugTaken(ctx, "iron-craft")
	require.NoError(t, err)
	assert.True(t, taken)

	// A candidate slug that decodes to an existing project id also collides.
	taken, err = projects.SlugTaken(ctx, b.Project.ID.Base62())
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = projects.SlugTaken(ctx, "free-slug")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestProjectFollowLifecycle(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	follower := models.ID(777)

	require.NoError(t, projects.Follow(ctx, follower, b.Project.ID))

	following, err := projects.IsFollowing(ctx, follower, b.Project.ID)
	require.NoError(t, err)
	assert.True(t, following)

	var p models.Project
	require.NoError(t, db.First(&p, int64(b.Project.ID)).Error)
	assert.Equal(t, int64(1), p.Follows)

	err = projects.Follow(ctx, follower, b.Project.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)

	require.NoError(t, projects.Unfollow(ctx, follower, b.Project.ID))
	err = projects.Unfollow(ctx, follower, b.Project.ID)
	assert.Error(t, err)
}

func TestVersionGetFullAndFileByHash(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	versions := NewVersionRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	v := insertVersion(t, versions, ids, b.Project.ID, "1.0.0")

	full, err := versions.GetFull(ctx, v.Version.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", full.VersionNumber)
	assert.Equal(t, models.VersionTypeRelease, full.VersionType)
	assert.Equal(t, []string{"fabric"}, full.Loaders)
	assert.Equal(t, []string{"1.19"}, full.GameVersions)
	require.Len(t, full.Files, 1)
	assert.True(t, full.Files[0].Primary)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", full.Files[0].Hashes["sha1"])

	file, err := versions.FileByHash(ctx, "sha1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")
	require.NoError(t, err)
	assert.Equal(t, v.Files[0].File.ID, file.ID)

	_, err = versions.FileByHash(ctx, "sha1", "0000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestVersionListsNewestFirst(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	versions := NewVersionRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	older := insertVersion(t, versions, ids, b.Project.ID, "1.0.0")
	newer := insertVersion(t, versions, ids, b.Project.ID, "2.0.0")
	require.NoError(t, db.Model(&models.Version{}).
		Where("id = ?", int64(older.Version.ID)).
		UpdateColumn("date_published", time.Now().UTC().Add(-2*time.Hour)).Error)

	full, err := projects.GetFull(ctx, b.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{newer.Version.ID, older.Version.ID}, full.Versions)

	listed, err := versions.ListIDs(ctx, b.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{newer.Version.ID, older.Version.ID}, listed)

	many, err := versions.GetManyFull(ctx, []models.ID{older.Version.ID, newer.Version.ID})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, newer.Version.ID, many[0].ID)
}

func TestVersionNumberExists(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	versions := NewVersionRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	insertVersion(t, versions, ids, b.Project.ID, "1.0.0")

	exists, err := versions.NumberExists(ctx, b.Project.ID, "1.0.0")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = versions.NumberExists(ctx, b.Project.ID, "2.0.0")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRecordDownloadDeduplicates(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	versions := NewVersionRepository(db, lookup)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	v := insertVersion(t, versions, ids, b.Project.ID, "1.0.0")
	window := 30 * time.Minute

	counted, err := versions.RecordDownload(ctx, v.Version.ID, "requester-a", window)
	require.NoError(t, err)
	assert.True(t, counted)

	// Same requester inside the window is not counted again.
	counted, err = versions.RecordDownload(ctx, v.Version.ID, "requester-a", window)
	require.NoError(t, err)
	assert.False(t, counted)

	// A different requester is.
	counted, err = versions.RecordDownload(ctx, v.Version.ID, "requester-b", window)
	require.NoError(t, err)
	assert.True(t, counted)

	var version models.Version
	require.NoError(t, db.First(&version, int64(v.Version.ID)).Error)
	assert.Equal(t, int64(2), version.Downloads)

	var project models.Project
	require.NoError(t, db.First(&project, int64(b.Project.ID)).Error)
	assert.Equal(t, int64(2), project.Downloads)

	_, err = versions.RecordDownload(ctx, 999999, "requester-a", window)
	assert.Error(t, err)
}

func TestTeamRepositoryMemberFlow(t *testing.T) {
	db, ids := setupTestDB(t)
	lookup := NewLookupRepository(db)
	projects := NewProjectRepository(db, lookup)
	teams := NewTeamRepository(db)
	ctx := context.Background()

	b := insertProject(t, db, projects, ids, "iron-craft")
	teamID := b.Project.TeamID

	exists, err := teams.Exists(ctx, teamID)
	require.NoError(t, err)
	assert.True(t, exists)

	project, err := teams.ProjectForTeam(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, b.Project.ID, project.ID)

	memberID, err := teams.GenerateMemberID(ctx)
	require.NoError(t, err)
	member := models.TeamMember{
		ID: memberID, TeamID: teamID, UserID: 555,
		Name: "newbie", Role: "Developer",
		Permissions: models.PermissionUploadVersion,
	}
	require.NoError(t, teams.InsertMember(ctx, &member))

	// The (team, user) pair is unique.
	dup := member
	dup.ID = memberID + 1
	err = teams.InsertMember(ctx, &dup)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)

	got, err := teams.GetMember(ctx, teamID, 555)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Accepted)

	missing, err := teams.GetMember(ctx, teamID, 556)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, teams.UpdateMember(ctx, memberID, map[string]interface{}{"accepted": true}))
	got, err = teams.GetMember(ctx, teamID, 555)
	require.NoError(t, err)
	assert.True(t, got.Accepted)

	require.NoError(t, teams.DeleteMember(ctx, memberID))
	got, err = teams.GetMember(ctx, teamID, 555)
	require.NoError(t, err)
	assert.Nil(t, got)
}
