package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Geometrically/fabricate/internal/filehost"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/observability"
	"github.com/Geometrically/fabricate/internal/repository"
)

// downloadWindow is the sliding window inside which repeat downloads from
// the same anonymized requester count once.
const downloadWindow = 30 * time.Minute

// VersionService implements version lifecycle: creation with artifact
// upload, permission-checked edits, file management and download counting.
type VersionService struct {
	versions repository.VersionRepository
	projects repository.ProjectRepository
	teams    repository.TeamRepository
	lookup   repository.LookupRepository
	host     filehost.FileHost
	cdnURL   string
	pepper   string
	logger   *slog.Logger
}

// NewVersionService wires a VersionService. pepper keys the hash that
// anonymizes requester addresses in the download log.
func NewVersionService(
	versions repository.VersionRepository,
	projects repository.ProjectRepository,
	teams repository.TeamRepository,
	lookup repository.LookupRepository,
	host filehost.FileHost,
	cdnURL string,
	pepper string,
	logger *slog.Logger,
) *VersionService {
	return &VersionService{
		versions: versions,
		projects: projects,
		teams:    teams,
		lookup:   lookup,
		host:     host,
		cdnURL:   cdnURL,
		pepper:   pepper,
		logger:   logger,
	}
}

func (s *VersionService) projectFor(ctx context.Context, projectID models.ID) (*models.QueryProject, error) {
	return s.projects.GetFull(ctx, projectID)
}

func (s *VersionService) requirePermission(ctx context.Context, caller *models.CallerIdentity, teamID models.ID, bit models.Permissions, action string) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	perms, _, err := resolvePermissions(ctx, s.teams, caller, teamID)
	if err != nil {
		return err
	}
	if !perms.Contains(bit) {
		return models.NewAuthorizationError(fmt.Sprintf("you do not have permission to %s", action))
	}
	return nil
}

// CreateVersion uploads a new version for an existing project.
func (s *VersionService) CreateVersion(ctx context.Context, caller *models.CallerIdentity, projectRef string, in InitialVersionInput, parts []FilePart) (*models.QueryVersion, error) {
	if err := validateVersionInput(&in); err != nil {
		return nil, err
	}
	projectID, err := s.projects.ResolveID(ctx, projectRef)
	if err != nil {
		return nil, err
	}
	project, err := s.projectFor(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, caller, project.TeamID, models.PermissionUploadVersion, "upload versions to this project"); err != nil {
		return nil, err
	}

	exists, err := s.versions.NumberExists(ctx, projectID, in.VersionNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError(fmt.Sprintf("version number %q already exists for this project", in.VersionNumber))
	}

	claimed := make(map[string]bool)
	builder, uploaded, err := assembleVersion(ctx, s.lookup, s.versions, s.host, s.logger, s.cdnURL,
		projectID, caller.UserID, in, parts, claimed)
	if err != nil {
		return nil, err
	}
	if err := s.versions.Insert(ctx, builder); err != nil {
		undoUploads(ctx, s.host, s.logger, uploaded)
		return nil, err
	}
	return s.versions.GetFull(ctx, builder.Version.ID)
}

// GetVersion fetches one version, applying the owning project's visibility.
func (s *VersionService) GetVersion(ctx context.Context, caller *models.CallerIdentity, id models.ID) (*models.QueryVersion, error) {
	version, err := s.versions.GetFull(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, caller, version.ProjectID); err != nil {
		return nil, err
	}
	return version, nil
}

// GetVersions multi-fetches versions, dropping those the caller cannot see.
func (s *VersionService) GetVersions(ctx context.Context, caller *models.CallerIdentity, ids []models.ID) ([]models.QueryVersion, error) {
	versions, err := s.versions.GetManyFull(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.QueryVersion, 0, len(versions))
	for _, v := range versions {
		if err := s.checkVisible(ctx, caller, v.ProjectID); err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ListProjectVersions returns a project's versions, optionally reduced to
// the featured selection.
func (s *VersionService) ListProjectVersions(ctx context.Context, caller *models.CallerIdentity, projectRef string, featured bool) ([]models.QueryVersion, error) {
	projectID, err := s.projects.ResolveID(ctx, projectRef)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, caller, projectID); err != nil {
		return nil, err
	}
	ids, err := s.versions.ListIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.GetManyFull(ctx, ids)
	if err != nil {
		return nil, err
	}
	if featured {
		versions = selectFeatured(versions)
	}
	return versions, nil
}

func (s *VersionService) checkVisible(ctx context.Context, caller *models.CallerIdentity, projectID models.ID) error {
	project, err := s.projectFor(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.Status.Hidden() {
		return nil
	}
	if caller != nil {
		if caller.Role.IsMod() {
			return nil
		}
		member, err := s.teams.GetMember(ctx, project.TeamID, caller.UserID)
		if err != nil {
			return err
		}
		if member != nil {
			return nil
		}
	}
	return models.NewNotFoundError("version")
}

// EditVersionInput is the partial-update payload for versions.
type EditVersionInput struct {
	Name          *string                  `json:"name"`
	VersionNumber *string                  `json:"version_number"`
	Changelog     *string                  `json:"changelog"`
	VersionType   *string                  `json:"version_type"`
	Featured      *bool                    `json:"featured"`
	Dependencies  *[]DependencyInput       `json:"dependencies"`
	GameVersions  *[]string                `json:"game_versions"`
	Loaders       *[]string                `json:"loaders"`
	PrimaryFile   models.Omittable[string] `json:"primary_file"`
}

// EditVersion applies a partial update; the edit is gated on the upload
// permission of the owning project's team. PrimaryFile names a file by its
// sha1 digest.
func (s *VersionService) EditVersion(ctx context.Context, caller *models.CallerIdentity, id models.ID, in EditVersionInput) error {
	version, err := s.versions.Get(ctx, id)
	if err != nil {
		return err
	}
	project, err := s.projectFor(ctx, version.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requirePermission(ctx, caller, project.TeamID, models.PermissionUploadVersion, "edit versions of this project"); err != nil {
		return err
	}

	fields := make(map[string]interface{})
	if in.Name != nil {
		if *in.Name == "" {
			return models.NewValidationError("version name cannot be empty")
		}
		fields["name"] = *in.Name
	}
	if in.VersionNumber != nil {
		if *in.VersionNumber == "" {
			return models.NewValidationError("version_number cannot be empty")
		}
		if *in.VersionNumber != version.VersionNumber {
			exists, err := s.versions.NumberExists(ctx, version.ProjectID, *in.VersionNumber)
			if err != nil {
				return err
			}
			if exists {
				return models.NewConflictError(fmt.Sprintf("version number %q already exists for this project", *in.VersionNumber))
			}
		}
		fields["version_number"] = *in.VersionNumber
	}
	if in.Changelog != nil {
		fields["changelog"] = *in.Changelog
	}
	if in.VersionType != nil {
		channelID, err := s.lookup.ChannelID(ctx, *in.VersionType)
		if err != nil {
			return err
		}
		fields["channel_id"] = channelID
	}
	if in.Featured != nil {
		fields["featured"] = *in.Featured
	}

	if err := s.versions.UpdateFields(ctx, id, fields); err != nil {
		return err
	}
	if in.Loaders != nil {
		loaderIDs := make([]int, 0, len(*in.Loaders))
		for _, name := range *in.Loaders {
			loaderID, err := s.lookup.LoaderID(ctx, name)
			if err != nil {
				return err
			}
			loaderIDs = append(loaderIDs, loaderID)
		}
		if err := s.versions.SetLoaders(ctx, id, loaderIDs); err != nil {
			return err
		}
	}
	if in.GameVersions != nil {
		gameVersionIDs := make([]int, 0, len(*in.GameVersions))
		for _, name := range *in.GameVersions {
			gameVersionID, err := s.lookup.GameVersionID(ctx, name)
			if err != nil {
				return err
			}
			gameVersionIDs = append(gameVersionIDs, gameVersionID)
		}
		if err := s.versions.SetGameVersions(ctx, id, gameVersionIDs); err != nil {
			return err
		}
	}
	if in.Dependencies != nil {
		deps := make([]models.VersionDependency, 0, len(*in.Dependencies))
		for _, dep := range *in.Dependencies {
			if !models.DependencyType(dep.DependencyType).Valid() {
				return models.NewInvalidReferenceError("dependency type", dep.DependencyType)
			}
			deps = append(deps, models.VersionDependency{
				DependencyID:   dep.VersionID,
				DependencyType: models.DependencyType(dep.DependencyType),
			})
		}
		if err := s.versions.SetDependencies(ctx, id, deps); err != nil {
			return err
		}
	}
	if in.PrimaryFile.Present() {
		digest := in.PrimaryFile.Value()
		if digest == nil {
			return models.NewValidationError("primary_file cannot be null")
		}
		file, err := s.versions.FileByHash(ctx, "sha1", *digest)
		if err != nil {
			return err
		}
		if file.VersionID != id {
			return models.NewValidationError("primary_file does not belong to this version")
		}
		if err := s.versions.SetPrimaryFile(ctx, id, file.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteVersion removes a version, its rows and blobs.
func (s *VersionService) DeleteVersion(ctx context.Context, caller *models.CallerIdentity, id models.ID) error {
	version, err := s.versions.GetFull(ctx, id)
	if err != nil {
		return err
	}
	project, err := s.projectFor(ctx, version.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requirePermission(ctx, caller, project.TeamID, models.PermissionDeleteVersion, "delete versions of this project"); err != nil {
		return err
	}

	if err := s.versions.Remove(ctx, id); err != nil {
		return err
	}
	for _, f := range version.Files {
		key := versionFileKey(version.ProjectID, version.VersionNumber, f.Filename)
		if err := s.host.Delete(ctx, "", key); err != nil {
			s.logger.Error("failed to delete blob for removed version",
				slog.String("version_id", id.Base62()),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// AddFile uploads an additional artifact to an existing version.
func (s *VersionService) AddFile(ctx context.Context, caller *models.CallerIdentity, id models.ID, part FilePart) (*models.QueryVersion, error) {
	version, err := s.versions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.projectFor(ctx, version.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, caller, project.TeamID, models.PermissionUploadVersion, "upload files to this project"); err != nil {
		return nil, err
	}

	key := versionFileKey(version.ProjectID, version.VersionNumber, part.Filename)
	if _, err := s.host.Upload(ctx, part.ContentType, key, part.Data); err != nil {
		return nil, models.NewStorageError(err)
	}
	fileID, err := s.versions.GenerateFileID(ctx)
	if err != nil {
		return nil, err
	}
	fb := repository.VersionFileBuilder{
		File: models.VersionFile{
			ID:       fileID,
			URL:      s.cdnURL + "/" + key,
			Filename: part.Filename,
		},
		Hashes: buildFileHashes(fileID, part.Data),
	}
	if err := s.versions.AddFile(ctx, id, &fb); err != nil {
		if delErr := s.host.Delete(ctx, "", key); delErr != nil {
			s.logger.Error("failed to undo file upload",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}
	return s.versions.GetFull(ctx, id)
}

// DeleteFileByHash removes the artifact identified by its digest.
func (s *VersionService) DeleteFileByHash(ctx context.Context, caller *models.CallerIdentity, algorithm, digest string) error {
	file, err := s.versions.FileByHash(ctx, algorithm, digest)
	if err != nil {
		return err
	}
	version, err := s.versions.Get(ctx, file.VersionID)
	if err != nil {
		return err
	}
	project, err := s.projectFor(ctx, version.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requirePermission(ctx, caller, project.TeamID, models.PermissionDeleteVersion, "delete files of this project"); err != nil {
		return err
	}

	if err := s.versions.RemoveFile(ctx, file.ID); err != nil {
		return err
	}
	key := versionFileKey(version.ProjectID, version.VersionNumber, file.Filename)
	if err := s.host.Delete(ctx, "", key); err != nil {
		s.logger.Error("failed to delete blob for removed file",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// VersionByFileHash resolves a version from one of its file digests,
// powering content-addressed lookups by launchers.
func (s *VersionService) VersionByFileHash(ctx context.Context, caller *models.CallerIdentity, algorithm, digest string) (*models.QueryVersion, error) {
	file, err := s.versions.FileByHash(ctx, algorithm, digest)
	if err != nil {
		return nil, err
	}
	return s.GetVersion(ctx, caller, file.VersionID)
}

// RecordDownload counts a download hit for the requester address. The
// address is anonymized with a keyed hash before storage and repeat hits
// inside the sliding window are deduplicated.
func (s *VersionService) RecordDownload(ctx context.Context, id models.ID, remoteAddr string) error {
	identifier := s.anonymize(remoteAddr)
	counted, err := s.versions.RecordDownload(ctx, id, identifier, downloadWindow)
	if err != nil {
		return err
	}
	if counted {
		observability.DownloadsRecorded.WithLabelValues("counted").Inc()
	} else {
		observability.DownloadsRecorded.WithLabelValues("deduplicated").Inc()
	}
	return nil
}

func (s *VersionService) anonymize(remoteAddr string) string {
	mac := hmac.New(sha256.New, []byte(s.pepper))
	mac.Write([]byte(remoteAddr))
	return hex.EncodeToString(mac.Sum(nil))
}
