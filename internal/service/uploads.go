package service

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Geometrically/fabricate/internal/filehost"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
)

// FilePart is one uploaded multipart file, keyed by its part name. The
// creation payload references parts by name, which is what lets a single
// request carry files for several versions.
type FilePart struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// matchFileParts resolves declared part names against the uploaded parts.
// Every declared name must match exactly one part; duplicates and shortfalls
// are rejected so a version is never created with fewer files than promised.
func matchFileParts(declared []string, parts []FilePart) ([]FilePart, error) {
	byName := make(map[string]int, len(parts))
	for i, p := range parts {
		if _, dup := byName[p.Name]; dup {
			return nil, models.NewValidationError(fmt.Sprintf("duplicate file part %q", p.Name))
		}
		byName[p.Name] = i
	}

	matched := make([]FilePart, 0, len(declared))
	seen := make(map[string]bool, len(declared))
	for _, name := range declared {
		if seen[name] {
			return nil, models.NewValidationError(fmt.Sprintf("file part %q declared twice", name))
		}
		seen[name] = true
		idx, ok := byName[name]
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("declared file part %q has no uploaded file", name))
		}
		matched = append(matched, parts[idx])
	}
	return matched, nil
}

// versionFileKey is the blob key for an uploaded version artifact.
func versionFileKey(projectID models.ID, versionNumber, filename string) string {
	return fmt.Sprintf("data/%s/versions/%s/%s", projectID.Base62(), versionNumber, filename)
}

// iconKey is the blob key for a project icon.
func iconKey(projectID models.ID, ext string) string {
	return fmt.Sprintf("data/%s/icon.%s", projectID.Base62(), ext)
}

// hashFile computes the stored content hashes of an artifact, hex encoded.
func hashFile(data []byte) map[string]string {
	s1 := sha1.Sum(data)
	s512 := sha512.Sum512(data)
	return map[string]string{
		"sha1":   hex.EncodeToString(s1[:]),
		"sha512": hex.EncodeToString(s512[:]),
	}
}

// undoUploads deletes blobs written by a creation attempt that failed
// part-way. Blob deletion failures are logged, not returned: the original
// error is the one the caller needs.
func undoUploads(ctx context.Context, host filehost.FileHost, logger *slog.Logger, uploaded []filehost.UploadedFile) {
	for _, f := range uploaded {
		if err := host.Delete(ctx, f.FileID, f.FileName); err != nil {
			logger.Error("failed to undo upload",
				slog.String("file", f.FileName),
				slog.String("error", err.Error()),
			)
		}
	}
}

// iconExtension maps an icon content type to its stored extension.
func iconExtension(contentType string) (string, error) {
	switch strings.ToLower(contentType) {
	case "image/png":
		return "png", nil
	case "image/jpeg":
		return "jpg", nil
	case "image/gif":
		return "gif", nil
	case "image/webp":
		return "webp", nil
	case "image/bmp":
		return "bmp", nil
	case "image/svg+xml":
		return "svg", nil
	}
	return "", models.NewValidationError(fmt.Sprintf("unsupported icon content type %q", contentType))
}

// maxIconBytes bounds uploaded icons to 256 KiB.
const maxIconBytes = 262144

// assembleVersion resolves one version payload into a repository builder,
// uploading its artifacts along the way. The claimed set spans the whole
// request so two versions cannot consume the same file part. The returned
// uploads are the caller's compensation log.
func assembleVersion(
	ctx context.Context,
	lookup repository.LookupRepository,
	versions repository.VersionRepository,
	host filehost.FileHost,
	logger *slog.Logger,
	cdnURL string,
	projectID, authorID models.ID,
	vin InitialVersionInput,
	parts []FilePart,
	claimed map[string]bool,
) (*repository.VersionBuilder, []filehost.UploadedFile, error) {
	channel := vin.VersionType
	if channel == "" {
		channel = string(models.VersionTypeRelease)
	}
	channelID, err := lookup.ChannelID(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	loaderIDs := make([]int, 0, len(vin.Loaders))
	for _, name := range vin.Loaders {
		id, err := lookup.LoaderID(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		loaderIDs = append(loaderIDs, id)
	}
	gameVersionIDs := make([]int, 0, len(vin.GameVersions))
	for _, name := range vin.GameVersions {
		id, err := lookup.GameVersionID(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		gameVersionIDs = append(gameVersionIDs, id)
	}

	matched, err := matchFileParts(vin.FileParts, parts)
	if err != nil {
		return nil, nil, err
	}
	for _, part := range matched {
		if claimed[part.Name] {
			return nil, nil, models.NewValidationError(fmt.Sprintf("file part %q claimed by two versions", part.Name))
		}
		claimed[part.Name] = true
	}

	versionID, err := versions.GenerateID(ctx)
	if err != nil {
		return nil, nil, err
	}

	var uploaded []filehost.UploadedFile
	files := make([]repository.VersionFileBuilder, 0, len(matched))
	for i, part := range matched {
		key := versionFileKey(projectID, vin.VersionNumber, part.Filename)
		up, err := host.Upload(ctx, part.ContentType, key, part.Data)
		if err != nil {
			undoUploads(ctx, host, logger, uploaded)
			return nil, nil, models.NewStorageError(err)
		}
		uploaded = append(uploaded, *up)

		fileID, err := versions.GenerateFileID(ctx)
		if err != nil {
			undoUploads(ctx, host, logger, uploaded)
			return nil, nil, err
		}
		fileHashes := buildFileHashes(fileID, part.Data)
		files = append(files, repository.VersionFileBuilder{
			File: models.VersionFile{
				ID:       fileID,
				URL:      cdnURL + "/" + key,
				Filename: part.Filename,
				Primary:  i == 0,
			},
			Hashes: fileHashes,
		})
	}

	deps := make([]models.VersionDependency, 0, len(vin.Dependencies))
	for _, dep := range vin.Dependencies {
		deps = append(deps, models.VersionDependency{
			DependencyID:   dep.VersionID,
			DependencyType: models.DependencyType(dep.DependencyType),
		})
	}

	return &repository.VersionBuilder{
		Version: models.Version{
			ID:            versionID,
			ProjectID:     projectID,
			AuthorID:      authorID,
			Name:          vin.Name,
			VersionNumber: vin.VersionNumber,
			Changelog:     vin.Changelog,
			ChannelID:     channelID,
			Featured:      vin.Featured,
			DatePublished: time.Now().UTC(),
		},
		Files:          files,
		LoaderIDs:      loaderIDs,
		GameVersionIDs: gameVersionIDs,
		Dependencies:   deps,
	}, uploaded, nil
}

func buildFileHashes(fileID models.ID, data []byte) []models.FileHash {
	hashes := hashFile(data)
	out := make([]models.FileHash, 0, len(hashes))
	for algorithm, digest := range hashes {
		out = append(out, models.FileHash{
			FileID:    fileID,
			Algorithm: algorithm,
			Hash:      []byte(digest),
		})
	}
	return out
}
