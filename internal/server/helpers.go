// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter as a base62 identifier.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (models.ID, error) {
	id, err := models.ParseID(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return id, nil
}

// parseIDList parses the ids query parameter, accepting either a JSON array
// (`ids=["AABBCC","DDEEFF"]`) or a comma-separated list.
func parseIDList(c *fiber.Ctx) []string {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil
		}
		return ids
	}
	return strings.Split(raw, ",")
}

// parseMultipartData reads a multipart form whose "data" field carries the
// JSON request body and whose remaining fields carry file uploads. The file
// parts keep their multipart field names so the body's file_parts entries
// can claim them.
func parseMultipartData(c *fiber.Ctx, dest any) ([]service.FilePart, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Request body must be multipart form data")
	}

	data := form.Value["data"]
	if len(data) == 0 {
		return nil, models.NewValidationError("Missing data field")
	}
	if err := json.Unmarshal([]byte(data[0]), dest); err != nil {
		return nil, models.NewValidationError("Invalid data field: " + err.Error())
	}

	return parseMultipartFiles(c)
}

// parseMultipartFiles collects the file fields of a multipart form without
// expecting a data field.
func parseMultipartFiles(c *fiber.Ctx) ([]service.FilePart, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Request body must be multipart form data")
	}

	var parts []service.FilePart
	for name, headers := range form.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				return nil, models.NewValidationError("Unreadable file part " + name)
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, models.NewValidationError("Unreadable file part " + name)
			}
			parts = append(parts, service.FilePart{
				Name:        name,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        content,
			})
		}
	}

	return parts, nil
}

// hashAlgorithm returns the requested hash algorithm, defaulting to sha1.
func hashAlgorithm(c *fiber.Ctx) (string, error) {
	algo := c.Query("algorithm", "sha1")
	if algo != "sha1" && algo != "sha512" {
		return "", models.NewValidationError("Unknown hash algorithm " + algo)
	}
	return algo, nil
}

// iconContentType maps the ext query parameter onto a MIME type, falling
// back to the request's Content-Type header when no ext is given.
func iconContentType(c *fiber.Ctx) string {
	switch strings.ToLower(c.Query("ext")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "svg":
		return "image/svg+xml"
	}
	return c.Get("Content-Type")
}
