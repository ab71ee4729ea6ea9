package seed

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumProjects int
	ShouldClean bool
}

var modWords = []string{
	"iron", "copper", "crystal", "arcane", "deep", "lush", "ender", "nether",
	"redstone", "mystic", "cobble", "thermal", "botanic", "astral", "void",
	"frost", "ember", "rune", "golem", "biome",
}

var modSuffixes = []string{
	"craft", "works", "tech", "gear", "tools", "magic", "expanded", "plus",
	"utilities", "additions", "tweaks", "core", "lib", "origins",
}

// Seed populates the database with demo data. Lookup tables must already be
// seeded (see SeedLookups).
func Seed(db *gorm.DB, opts Options) error {
	ctx := context.Background()
	log.Printf("Starting database seeding with %d users and %d projects...", opts.NumUsers, opts.NumProjects)

	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	lookup := repository.NewLookupRepository(db)
	projects := repository.NewProjectRepository(db, lookup)
	versions := repository.NewVersionRepository(db, lookup)
	users := repository.NewUserRepository(db)

	seededUsers, err := createUsers(ctx, users, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("%d users created", len(seededUsers))

	created := 0
	for i := 0; i < opts.NumProjects; i++ {
		owner := seededUsers[r.Intn(len(seededUsers))]
		if err := createProject(ctx, projects, versions, lookup, owner, r); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		created++
	}
	log.Printf("%d projects created", created)

	log.Println("Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE file_hashes, version_files, version_dependencies, version_loaders,
		version_game_versions, downloads, versions, project_categories, project_donations,
		project_follows, projects, team_members, teams, notification_actions, notifications,
		reports, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(ctx context.Context, users repository.UserRepository, count int) ([]models.User, error) {
	out := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		id, err := users.GenerateID(ctx)
		if err != nil {
			return nil, err
		}
		username := strings.ToLower(gofakeit.Username())
		// Usernames must be unique; gofakeit repeats occasionally.
		username = fmt.Sprintf("%s%d", username, i)
		email := fmt.Sprintf("%s@example.com", username)
		avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username)

		user := models.User{
			ID:        id,
			Username:  username,
			Name:      gofakeit.Name(),
			Email:     &email,
			AvatarURL: &avatar,
			Bio:       gofakeit.Sentence(8),
			Created:   time.Now().UTC(),
			Role:      models.RoleDeveloper,
		}
		if i == 0 {
			user.Role = models.RoleAdmin
		} else if i == 1 {
			user.Role = models.RoleModerator
		}
		if err := users.Create(ctx, &user); err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, nil
}

func generateProjectName(r *rand.Rand) (title, slug string) {
	word := modWords[r.Intn(len(modWords))]
	suffix := modSuffixes[r.Intn(len(modSuffixes))]
	title = strings.Title(word) + " " + strings.Title(suffix)
	slug = fmt.Sprintf("%s-%s-%d", word, suffix, r.Intn(10000))
	return title, slug
}

func createProject(
	ctx context.Context,
	projects repository.ProjectRepository,
	versions repository.VersionRepository,
	lookup repository.LookupRepository,
	owner models.User,
	r *rand.Rand,
) error {
	projectID, err := projects.GenerateID(ctx)
	if err != nil {
		return err
	}
	teamID, err := projects.GenerateTeamID(ctx)
	if err != nil {
		return err
	}
	memberID, err := projects.GenerateMemberID(ctx)
	if err != nil {
		return err
	}

	title, slug := generateProjectName(r)

	status := models.StatusApproved
	if r.Intn(5) == 0 {
		status = models.StatusProcessing
	}
	statusID, err := lookup.StatusID(ctx, status)
	if err != nil {
		return err
	}
	typeID, err := lookup.ProjectTypeID(ctx, "mod")
	if err != nil {
		return err
	}
	clientSideID, err := lookup.SideTypeID(ctx, models.SideRequired)
	if err != nil {
		return err
	}
	serverSideID, err := lookup.SideTypeID(ctx, models.SideOptional)
	if err != nil {
		return err
	}
	license, err := lookup.LicenseBySlug(ctx, "mit")
	if err != nil {
		return err
	}
	categoryID, err := lookup.CategoryID(ctx, categories[r.Intn(len(categories))])
	if err != nil {
		return err
	}

	published := time.Now().UTC().Add(-time.Duration(r.Intn(120*24)) * time.Hour)
	builder := &repository.ProjectBuilder{
		Project: models.Project{
			ID:            projectID,
			Slug:          &slug,
			ProjectTypeID: typeID,
			TeamID:        teamID,
			Title:         title,
			Description:   gofakeit.Sentence(12),
			Body:          gofakeit.Paragraph(2, 4, 8, "\n\n"),
			StatusID:      statusID,
			ClientSideID:  clientSideID,
			ServerSideID:  serverSideID,
			LicenseID:     license.ID,
			Downloads:     int64(r.Intn(50000)),
			Follows:       int64(r.Intn(2000)),
			Published:     published,
			Updated:       published,
		},
		CategoryIDs: []int{categoryID},
		Team:        models.Team{ID: teamID},
		Members: []models.TeamMember{{
			ID:          memberID,
			TeamID:      teamID,
			UserID:      owner.ID,
			Name:        owner.Name,
			Role:        models.OwnerRole,
			Permissions: models.PermissionsAll,
			Accepted:    true,
		}},
	}
	if err := projects.Insert(ctx, builder); err != nil {
		return err
	}

	numVersions := 1 + r.Intn(4)
	for v := 0; v < numVersions; v++ {
		if err := createVersion(ctx, versions, lookup, projectID, owner.ID, published, v, r); err != nil {
			return err
		}
	}
	return nil
}

func createVersion(
	ctx context.Context,
	versions repository.VersionRepository,
	lookup repository.LookupRepository,
	projectID, authorID models.ID,
	base time.Time,
	ordinal int,
	r *rand.Rand,
) error {
	versionID, err := versions.GenerateID(ctx)
	if err != nil {
		return err
	}
	fileID, err := versions.GenerateFileID(ctx)
	if err != nil {
		return err
	}
	channelID, err := lookup.ChannelID(ctx, "release")
	if err != nil {
		return err
	}
	loaderID, err := lookup.LoaderID(ctx, loaders[r.Intn(len(loaders))])
	if err != nil {
		return err
	}
	gameVersionID, err := lookup.GameVersionID(ctx, gameVersions[r.Intn(len(gameVersions))])
	if err != nil {
		return err
	}

	number := fmt.Sprintf("1.%d.%d", ordinal, r.Intn(10))
	filename := fmt.Sprintf("mod-%s.jar", number)
	content := []byte(gofakeit.Sentence(20))
	sha1Sum := sha1.Sum(content)
	sha512Sum := sha512.Sum512(content)

	builder := &repository.VersionBuilder{
		Version: models.Version{
			ID:            versionID,
			ProjectID:     projectID,
			AuthorID:      authorID,
			Name:          "Release " + number,
			VersionNumber: number,
			Changelog:     gofakeit.Sentence(10),
			ChannelID:     channelID,
			Featured:      ordinal == 0,
			Downloads:     int64(r.Intn(10000)),
			DatePublished: base.Add(time.Duration(ordinal) * 24 * time.Hour),
		},
		Files: []repository.VersionFileBuilder{{
			File: models.VersionFile{
				ID:       fileID,
				VersionID: versionID,
				URL:      fmt.Sprintf("http://localhost:8000/cdn/data/%s/versions/%s/%s", projectID.Base62(), number, filename),
				Filename: filename,
				Primary:  true,
			},
			Hashes: []models.FileHash{
				{FileID: fileID, Algorithm: "sha1", Hash: []byte(hex.EncodeToString(sha1Sum[:]))},
				{FileID: fileID, Algorithm: "sha512", Hash: []byte(hex.EncodeToString(sha512Sum[:]))},
			},
		}},
		LoaderIDs:      []int{loaderID},
		GameVersionIDs: []int{gameVersionID},
	}
	return versions.Insert(ctx, builder)
}
