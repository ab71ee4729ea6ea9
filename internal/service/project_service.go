package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Geometrically/fabricate/internal/filehost"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
	"github.com/Geometrically/fabricate/internal/search"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// ProjectService implements project lifecycle: creation, reads with
// visibility gating, permission-checked edits, deletion and follows.
type ProjectService struct {
	projects repository.ProjectRepository
	versions repository.VersionRepository
	teams    repository.TeamRepository
	users    repository.UserRepository
	lookup   repository.LookupRepository
	host     filehost.FileHost
	index    search.Index
	queue    *search.Queue
	cdnURL   string
	logger   *slog.Logger
}

// NewProjectService wires a ProjectService.
func NewProjectService(
	projects repository.ProjectRepository,
	versions repository.VersionRepository,
	teams repository.TeamRepository,
	users repository.UserRepository,
	lookup repository.LookupRepository,
	host filehost.FileHost,
	index search.Index,
	queue *search.Queue,
	cdnURL string,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects: projects,
		versions: versions,
		teams:    teams,
		users:    users,
		lookup:   lookup,
		host:     host,
		index:    index,
		queue:    queue,
		cdnURL:   cdnURL,
		logger:   logger,
	}
}

// DonationInput names a donation platform by short code with the target url.
type DonationInput struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// DependencyInput is one declared dependency edge of a new version.
type DependencyInput struct {
	VersionID      models.ID `json:"version_id"`
	DependencyType string    `json:"dependency_type"`
}

// InitialVersionInput is one version created together with its project. File
// parts reference uploaded multipart files by part name.
type InitialVersionInput struct {
	Name          string            `json:"name"`
	VersionNumber string            `json:"version_number"`
	Changelog     string            `json:"changelog"`
	VersionType   string            `json:"version_type"`
	Dependencies  []DependencyInput `json:"dependencies"`
	GameVersions  []string          `json:"game_versions"`
	Loaders       []string          `json:"loaders"`
	Featured      bool              `json:"featured"`
	FileParts     []string          `json:"file_parts"`
}

// CreateProjectInput is the JSON payload of the multipart creation request.
type CreateProjectInput struct {
	Title           string                `json:"title"`
	Slug            string                `json:"slug"`
	Description     string                `json:"description"`
	Body            string                `json:"body"`
	ProjectType     string                `json:"project_type"`
	InitialVersions []InitialVersionInput `json:"initial_versions"`
	Categories      []string              `json:"categories"`
	ClientSide      models.SideType       `json:"client_side"`
	ServerSide      models.SideType       `json:"server_side"`
	LicenseID       string                `json:"license_id"`
	LicenseURL      *string               `json:"license_url"`
	IssuesURL       *string               `json:"issues_url"`
	SourceURL       *string               `json:"source_url"`
	WikiURL         *string               `json:"wiki_url"`
	DiscordURL      *string               `json:"discord_url"`
	DonationURLs    []DonationInput       `json:"donation_urls"`
	IsDraft         bool                  `json:"is_draft"`
}

const maxCategories = 3

// CreateProject runs the creation saga: validate, resolve references, upload
// artifacts, then insert the team, project and versions. Uploaded blobs are
// compensated away when any later step fails, so a failed creation leaves no
// trace in the blob store.
func (s *ProjectService) CreateProject(ctx context.Context, caller *models.CallerIdentity, in CreateProjectInput, parts []FilePart) (*models.QueryProject, error) {
	if caller == nil {
		return nil, models.NewAuthenticationError("authentication required")
	}
	if err := s.validateCreate(&in); err != nil {
		return nil, err
	}

	projectTypeID, err := s.lookup.ProjectTypeID(ctx, in.ProjectType)
	if err != nil {
		return nil, err
	}
	status := models.StatusProcessing
	if in.IsDraft {
		status = models.StatusDraft
	}
	statusID, err := s.lookup.StatusID(ctx, status)
	if err != nil {
		return nil, err
	}
	clientSideID, err := s.lookup.SideTypeID(ctx, in.ClientSide)
	if err != nil {
		return nil, err
	}
	serverSideID, err := s.lookup.SideTypeID(ctx, in.ServerSide)
	if err != nil {
		return nil, err
	}
	license, err := s.lookup.LicenseBySlug(ctx, in.LicenseID)
	if err != nil {
		return nil, err
	}
	categoryIDs := make([]int, 0, len(in.Categories))
	for _, name := range in.Categories {
		id, err := s.lookup.CategoryID(ctx, name)
		if err != nil {
			return nil, err
		}
		categoryIDs = append(categoryIDs, id)
	}
	donations, err := s.resolveDonations(ctx, in.DonationURLs)
	if err != nil {
		return nil, err
	}

	taken, err := s.projects.SlugTaken(ctx, in.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("slug collides with an existing project")
	}

	owner, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	projectID, err := s.projects.GenerateID(ctx)
	if err != nil {
		return nil, err
	}
	teamID, err := s.projects.GenerateTeamID(ctx)
	if err != nil {
		return nil, err
	}
	memberID, err := s.projects.GenerateMemberID(ctx)
	if err != nil {
		return nil, err
	}

	// Upload every artifact before touching the database; the uploaded list
	// is the compensation log.
	var uploaded []filehost.UploadedFile
	fail := func(cause error) (*models.QueryProject, error) {
		undoUploads(ctx, s.host, s.logger, uploaded)
		return nil, cause
	}

	claimed := make(map[string]bool)
	builders := make([]repository.VersionBuilder, 0, len(in.InitialVersions))
	for _, vin := range in.InitialVersions {
		builder, up, err := assembleVersion(ctx, s.lookup, s.versions, s.host, s.logger, s.cdnURL,
			projectID, caller.UserID, vin, parts, claimed)
		if err != nil {
			return fail(err)
		}
		uploaded = append(uploaded, up...)
		builders = append(builders, *builder)
	}

	now := time.Now().UTC()
	slug := in.Slug
	project := models.Project{
		ID:            projectID,
		Slug:          &slug,
		ProjectTypeID: projectTypeID,
		TeamID:        teamID,
		Title:         in.Title,
		Description:   in.Description,
		Body:          in.Body,
		StatusID:      statusID,
		ClientSideID:  clientSideID,
		ServerSideID:  serverSideID,
		LicenseID:     license.ID,
		LicenseURL:    in.LicenseURL,
		IssuesURL:     in.IssuesURL,
		SourceURL:     in.SourceURL,
		WikiURL:       in.WikiURL,
		DiscordURL:    in.DiscordURL,
		Published:     now,
		Updated:       now,
	}
	builder := repository.ProjectBuilder{
		Project:     project,
		CategoryIDs: categoryIDs,
		Donations:   donations,
		Team:        models.Team{ID: teamID},
		Members: []models.TeamMember{{
			ID:          memberID,
			TeamID:      teamID,
			UserID:      caller.UserID,
			Name:        owner.Username,
			Role:        models.OwnerRole,
			Permissions: models.PermissionsAll,
			Accepted:    true,
		}},
	}
	// Project and version rows commit in one transaction; only the blob
	// uploads need compensating when it fails.
	if err := s.projects.InsertWithVersions(ctx, &builder, builders); err != nil {
		return fail(err)
	}

	return s.projects.GetFull(ctx, projectID)
}

func (s *ProjectService) validateCreate(in *CreateProjectInput) error {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Title = strings.TrimSpace(in.Title)

	if in.Title == "" {
		return models.NewValidationError("title is required")
	}
	if len(in.Title) > 256 {
		return models.NewValidationError("title too long (max 256 characters)")
	}
	if len(in.Description) > 2048 {
		return models.NewValidationError("description too long (max 2048 characters)")
	}
	if !slugRegex.MatchString(in.Slug) {
		return models.NewValidationError("slug must be 3-64 lowercase letters, digits and dashes")
	}
	if len(in.Categories) > maxCategories {
		return models.NewValidationError("a project may carry at most 3 categories")
	}
	if in.ProjectType == "" {
		in.ProjectType = "mod"
	}
	for _, vin := range in.InitialVersions {
		if err := validateVersionInput(&vin); err != nil {
			return err
		}
	}
	return nil
}

func validateVersionInput(vin *InitialVersionInput) error {
	if vin.VersionNumber == "" {
		return models.NewValidationError("version_number is required")
	}
	if vin.Name == "" {
		return models.NewValidationError("version name is required")
	}
	if len(vin.FileParts) == 0 {
		return models.NewValidationError("a version requires at least one file")
	}
	for _, dep := range vin.Dependencies {
		if !models.DependencyType(dep.DependencyType).Valid() {
			return models.NewInvalidReferenceError("dependency type", dep.DependencyType)
		}
	}
	return nil
}

func (s *ProjectService) resolveDonations(ctx context.Context, inputs []DonationInput) ([]models.ProjectDonation, error) {
	donations := make([]models.ProjectDonation, 0, len(inputs))
	for _, d := range inputs {
		platform, err := s.lookup.DonationPlatformBySlug(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		donations = append(donations, models.ProjectDonation{
			PlatformID: platform.ID,
			URL:        d.URL,
		})
	}
	return donations, nil
}

// canView reports whether the caller may see the project given its status.
func (s *ProjectService) canView(ctx context.Context, caller *models.CallerIdentity, project *models.QueryProject) (bool, error) {
	if !project.Status.Hidden() {
		return true, nil
	}
	if caller == nil {
		return false, nil
	}
	if caller.Role.IsMod() {
		return true, nil
	}
	member, err := s.teams.GetMember(ctx, project.TeamID, caller.UserID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// GetProject fetches a project by slug or id, applying visibility rules.
// Hidden projects answer 404, not 403, so their existence stays private.
func (s *ProjectService) GetProject(ctx context.Context, caller *models.CallerIdentity, ref string) (*models.QueryProject, error) {
	id, err := s.projects.ResolveID(ctx, ref)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetFull(ctx, id)
	if err != nil {
		return nil, err
	}
	visible, err := s.canView(ctx, caller, project)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, models.NewNotFoundError("project")
	}
	return project, nil
}

// GetProjects multi-fetches projects, silently dropping those the caller
// cannot see.
func (s *ProjectService) GetProjects(ctx context.Context, caller *models.CallerIdentity, refs []string) ([]models.QueryProject, error) {
	ids := make([]models.ID, 0, len(refs))
	for _, ref := range refs {
		id, err := models.ParseID(ref)
		if err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("invalid project id %q", ref))
		}
		ids = append(ids, id)
	}
	projects, err := s.projects.GetManyFull(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.QueryProject, 0, len(projects))
	for i := range projects {
		visible, err := s.canView(ctx, caller, &projects[i])
		if err != nil {
			return nil, err
		}
		if visible {
			out = append(out, projects[i])
		}
	}
	return out, nil
}

// EditProjectInput is the partial-update payload. Pointer fields distinguish
// absent from present; Omittable fields additionally distinguish an explicit
// null, which clears the column.
type EditProjectInput struct {
	Title        *string                  `json:"title"`
	Description  *string                  `json:"description"`
	Body         *string                  `json:"body"`
	Slug         *string                  `json:"slug"`
	Status       *models.ProjectStatus    `json:"status"`
	Categories   *[]string                `json:"categories"`
	ClientSide   *models.SideType         `json:"client_side"`
	ServerSide   *models.SideType         `json:"server_side"`
	LicenseID    *string                  `json:"license_id"`
	LicenseURL   models.Omittable[string] `json:"license_url"`
	IssuesURL    models.Omittable[string] `json:"issues_url"`
	SourceURL    models.Omittable[string] `json:"source_url"`
	WikiURL      models.Omittable[string] `json:"wiki_url"`
	DiscordURL   models.Omittable[string] `json:"discord_url"`
	DonationURLs *[]DonationInput         `json:"donation_urls"`
}

// EditProject applies a partial update. Each present field is gated on its
// permission bit before anything is written, so a rejected edit changes
// nothing.
func (s *ProjectService) EditProject(ctx context.Context, caller *models.CallerIdentity, ref string, in EditProjectInput) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	id, err := s.projects.ResolveID(ctx, ref)
	if err != nil {
		return err
	}
	project, err := s.projects.GetFull(ctx, id)
	if err != nil {
		return err
	}
	perms, _, err := resolvePermissions(ctx, s.teams, caller, project.TeamID)
	if err != nil {
		return err
	}

	require := func(bit models.Permissions, field string) error {
		if !perms.Contains(bit) {
			return models.NewAuthorizationError(fmt.Sprintf("you do not have permission to edit the %s of this project", field))
		}
		return nil
	}

	fields := make(map[string]interface{})
	var statusChange *models.ProjectStatus

	if in.Title != nil {
		if err := require(models.PermissionEditDetails, "title"); err != nil {
			return err
		}
		title := strings.TrimSpace(*in.Title)
		if title == "" || len(title) > 256 {
			return models.NewValidationError("title must be 1-256 characters")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		if err := require(models.PermissionEditDetails, "description"); err != nil {
			return err
		}
		if len(*in.Description) > 2048 {
			return models.NewValidationError("description too long (max 2048 characters)")
		}
		fields["description"] = *in.Description
	}
	if in.Body != nil {
		if err := require(models.PermissionEditBody, "body"); err != nil {
			return err
		}
		fields["body"] = *in.Body
	}
	if in.Slug != nil {
		if err := require(models.PermissionEditDetails, "slug"); err != nil {
			return err
		}
		slug := strings.ToLower(strings.TrimSpace(*in.Slug))
		if !slugRegex.MatchString(slug) {
			return models.NewValidationError("slug must be 3-64 lowercase letters, digits and dashes")
		}
		if project.Slug == nil || *project.Slug != slug {
			taken, err := s.projects.SlugTaken(ctx, slug)
			if err != nil {
				return err
			}
			if taken {
				return models.NewConflictError("slug collides with an existing project")
			}
		}
		fields["slug"] = slug
	}
	if in.Status != nil {
		if err := require(models.PermissionEditDetails, "status"); err != nil {
			return err
		}
		if !in.Status.Valid() {
			return models.NewInvalidReferenceError("status", string(*in.Status))
		}
		if (*in.Status == models.StatusApproved || *in.Status == models.StatusRejected) && !caller.Role.IsMod() {
			return models.NewAuthorizationError("only moderators may approve or reject projects")
		}
		statusID, err := s.lookup.StatusID(ctx, *in.Status)
		if err != nil {
			return err
		}
		fields["status_id"] = statusID
		statusChange = in.Status
	}
	if in.ClientSide != nil {
		if err := require(models.PermissionEditDetails, "client side"); err != nil {
			return err
		}
		sideID, err := s.lookup.SideTypeID(ctx, *in.ClientSide)
		if err != nil {
			return err
		}
		fields["client_side_id"] = sideID
	}
	if in.ServerSide != nil {
		if err := require(models.PermissionEditDetails, "server side"); err != nil {
			return err
		}
		sideID, err := s.lookup.SideTypeID(ctx, *in.ServerSide)
		if err != nil {
			return err
		}
		fields["server_side_id"] = sideID
	}
	if in.LicenseID != nil {
		if err := require(models.PermissionEditDetails, "license"); err != nil {
			return err
		}
		license, err := s.lookup.LicenseBySlug(ctx, *in.LicenseID)
		if err != nil {
			return err
		}
		fields["license_id"] = license.ID
	}
	if in.LicenseURL.Present() {
		if err := require(models.PermissionEditDetails, "license URL"); err != nil {
			return err
		}
		fields["license_url"] = in.LicenseURL.Value()
	}
	if in.IssuesURL.Present() {
		if err := require(models.PermissionEditDetails, "issues URL"); err != nil {
			return err
		}
		fields["issues_url"] = in.IssuesURL.Value()
	}
	if in.SourceURL.Present() {
		if err := require(models.PermissionEditDetails, "source URL"); err != nil {
			return err
		}
		fields["source_url"] = in.SourceURL.Value()
	}
	if in.WikiURL.Present() {
		if err := require(models.PermissionEditDetails, "wiki URL"); err != nil {
			return err
		}
		fields["wiki_url"] = in.WikiURL.Value()
	}
	if in.DiscordURL.Present() {
		if err := require(models.PermissionEditDetails, "discord URL"); err != nil {
			return err
		}
		fields["discord_url"] = in.DiscordURL.Value()
	}

	var categoryIDs []int
	if in.Categories != nil {
		if err := require(models.PermissionEditDetails, "categories"); err != nil {
			return err
		}
		if len(*in.Categories) > maxCategories {
			return models.NewValidationError("a project may carry at most 3 categories")
		}
		categoryIDs = make([]int, 0, len(*in.Categories))
		for _, name := range *in.Categories {
			categoryID, err := s.lookup.CategoryID(ctx, name)
			if err != nil {
				return err
			}
			categoryIDs = append(categoryIDs, categoryID)
		}
	}
	var donations []models.ProjectDonation
	if in.DonationURLs != nil {
		if err := require(models.PermissionEditDetails, "donation links"); err != nil {
			return err
		}
		donations, err = s.resolveDonations(ctx, *in.DonationURLs)
		if err != nil {
			return err
		}
	}

	if err := s.projects.UpdateFields(ctx, id, fields); err != nil {
		return err
	}
	if in.Categories != nil {
		if err := s.projects.SetCategories(ctx, id, categoryIDs); err != nil {
			return err
		}
	}
	if in.DonationURLs != nil {
		if err := s.projects.SetDonations(ctx, id, donations); err != nil {
			return err
		}
	}

	return s.syncIndex(ctx, id, project.Status, statusChange)
}

// syncIndex reconciles the search index after an edit. Entering the
// searchable set queues an upsert; leaving it deletes synchronously so a
// hidden project is gone from results when the request returns. Content
// edits while searchable re-queue the document.
func (s *ProjectService) syncIndex(ctx context.Context, id models.ID, oldStatus models.ProjectStatus, statusChange *models.ProjectStatus) error {
	newStatus := oldStatus
	if statusChange != nil {
		newStatus = *statusChange
	}

	if oldStatus.Searchable() && !newStatus.Searchable() {
		if err := s.index.DeleteProject(ctx, search.DocumentID(id)); err != nil {
			return models.NewIndexingError(err)
		}
		return nil
	}
	if newStatus.Searchable() {
		doc, err := s.buildSearchDocument(ctx, id)
		if err != nil {
			return err
		}
		s.queue.Enqueue(*doc)
	}
	return nil
}

func (s *ProjectService) buildSearchDocument(ctx context.Context, id models.ID) (*search.ProjectDocument, error) {
	project, err := s.projects.GetFull(ctx, id)
	if err != nil {
		return nil, err
	}

	author := ""
	members, err := s.teams.GetMembers(ctx, project.TeamID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.Role == models.OwnerRole {
			author = m.Name
			break
		}
	}

	gameVersions := []string{}
	if len(project.Versions) > 0 {
		fullVersions, err := s.versions.GetManyFull(ctx, project.Versions)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, v := range fullVersions {
			for _, gv := range v.GameVersions {
				if !seen[gv] {
					seen[gv] = true
					gameVersions = append(gameVersions, gv)
				}
			}
		}
	}

	iconURL := ""
	if project.IconURL != nil {
		iconURL = *project.IconURL
	}
	return &search.ProjectDocument{
		ProjectID:    search.DocumentID(project.ID),
		ProjectType:  project.ProjectType,
		Slug:         project.Slug,
		Author:       author,
		Title:        project.Title,
		Description:  project.Description,
		Categories:   project.Categories,
		Versions:     gameVersions,
		Downloads:    project.Downloads,
		Follows:      project.Follows,
		IconURL:      iconURL,
		DateCreated:  project.Published,
		DateModified: project.Updated,
		License:      project.License.ID,
		ClientSide:   string(project.ClientSide),
		ServerSide:   string(project.ServerSide),
	}, nil
}

// DeleteProject removes the project, its versions, blobs and index document.
func (s *ProjectService) DeleteProject(ctx context.Context, caller *models.CallerIdentity, ref string) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	id, err := s.projects.ResolveID(ctx, ref)
	if err != nil {
		return err
	}
	project, err := s.projects.GetFull(ctx, id)
	if err != nil {
		return err
	}
	perms, _, err := resolvePermissions(ctx, s.teams, caller, project.TeamID)
	if err != nil {
		return err
	}
	if !perms.Contains(models.PermissionDeleteProject) {
		return models.NewAuthorizationError("you do not have permission to delete this project")
	}

	// Collect blob keys before the rows disappear.
	var blobKeys []string
	if len(project.Versions) > 0 {
		fullVersions, err := s.versions.GetManyFull(ctx, project.Versions)
		if err != nil {
			return err
		}
		for _, v := range fullVersions {
			for _, f := range v.Files {
				blobKeys = append(blobKeys, versionFileKey(id, v.VersionNumber, f.Filename))
			}
		}
	}

	if err := s.projects.Remove(ctx, id, project.TeamID); err != nil {
		return err
	}

	if project.Status.Searchable() {
		if err := s.index.DeleteProject(ctx, search.DocumentID(id)); err != nil {
			return models.NewIndexingError(err)
		}
	}

	for _, key := range blobKeys {
		if err := s.host.Delete(ctx, "", key); err != nil {
			s.logger.Error("failed to delete blob for removed project",
				slog.String("project_id", id.Base62()),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// SetIcon replaces the project icon. Icons are bounded at 256 KiB.
func (s *ProjectService) SetIcon(ctx context.Context, caller *models.CallerIdentity, ref, contentType string, data []byte) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	if len(data) > maxIconBytes {
		return models.NewValidationError("icon exceeds the 256 KiB limit")
	}
	if _, err := iconExtension(contentType); err != nil {
		return err
	}
	data, contentType, err := processIcon(data, contentType)
	if err != nil {
		return err
	}
	ext, err := iconExtension(contentType)
	if err != nil {
		return err
	}
	id, err := s.projects.ResolveID(ctx, ref)
	if err != nil {
		return err
	}
	project, err := s.projects.GetFull(ctx, id)
	if err != nil {
		return err
	}
	perms, _, err := resolvePermissions(ctx, s.teams, caller, project.TeamID)
	if err != nil {
		return err
	}
	if !perms.Contains(models.PermissionEditDetails) {
		return models.NewAuthorizationError("you do not have permission to edit the icon of this project")
	}

	key := iconKey(id, ext)
	if _, err := s.host.Upload(ctx, contentType, key, data); err != nil {
		return models.NewStorageError(err)
	}
	iconURL := s.cdnURL + "/" + key
	if err := s.projects.UpdateFields(ctx, id, map[string]interface{}{"icon_url": iconURL}); err != nil {
		return err
	}
	// A changed extension leaves the previous icon under a different key.
	if project.IconURL != nil && *project.IconURL != iconURL {
		oldKey := strings.TrimPrefix(*project.IconURL, s.cdnURL+"/")
		if err := s.host.Delete(ctx, "", oldKey); err != nil {
			s.logger.Error("failed to delete replaced project icon",
				slog.String("project_id", id.Base62()),
				slog.String("key", oldKey),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.syncIndex(ctx, id, project.Status, nil)
}

// FollowProject records the caller as a follower.
func (s *ProjectService) FollowProject(ctx context.Context, caller *models.CallerIdentity, ref string) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	project, err := s.GetProject(ctx, caller, ref)
	if err != nil {
		return err
	}
	return s.projects.Follow(ctx, caller.UserID, project.ID)
}

// UnfollowProject removes the caller's follow.
func (s *ProjectService) UnfollowProject(ctx context.Context, caller *models.CallerIdentity, ref string) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	id, err := s.projects.ResolveID(ctx, ref)
	if err != nil {
		return err
	}
	return s.projects.Unfollow(ctx, caller.UserID, id)
}

// ListFollowed returns the projects the user follows, visibility applied.
func (s *ProjectService) ListFollowed(ctx context.Context, caller *models.CallerIdentity) ([]models.QueryProject, error) {
	if caller == nil {
		return nil, models.NewAuthenticationError("authentication required")
	}
	ids, err := s.projects.ListFollowed(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.GetManyFull(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.QueryProject, 0, len(projects))
	for i := range projects {
		visible, err := s.canView(ctx, caller, &projects[i])
		if err != nil {
			return nil, err
		}
		if visible {
			out = append(out, projects[i])
		}
	}
	return out, nil
}

// ModerationList pages projects sitting in the given status, oldest first.
// Handlers restrict it to moderators.
func (s *ProjectService) ModerationList(ctx context.Context, status models.ProjectStatus, limit, offset int) ([]models.QueryProject, error) {
	if !status.Valid() {
		return nil, models.NewInvalidReferenceError("status", string(status))
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	statusID, err := s.lookup.StatusID(ctx, status)
	if err != nil {
		return nil, err
	}
	ids, err := s.projects.ListByStatus(ctx, statusID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.projects.GetManyFull(ctx, ids)
}
