package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the standardized API error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError is the application error carried from services to handlers.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, Status: fiber.StatusBadRequest}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s not found", resource), Status: fiber.StatusNotFound}
}

func NewAuthenticationError(message string) *AppError {
	return &AppError{Code: "UNAUTHENTICATED", Message: message, Status: fiber.StatusUnauthorized}
}

// NewAuthorizationError names the capability the caller is missing so edit
// rejections identify the offending field.
func NewAuthorizationError(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: fiber.StatusForbidden}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, Status: fiber.StatusBadRequest}
}

// NewInvalidReferenceError covers lookup names that do not exist (category,
// loader, game version, license, donation platform, status, side type).
func NewInvalidReferenceError(kind, name string) *AppError {
	return &AppError{
		Code:    "INVALID_REFERENCE",
		Message: fmt.Sprintf("%s %s does not exist", kind, name),
		Status:  fiber.StatusBadRequest,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: "internal server error", Status: fiber.StatusInternalServerError, Err: err}
}

func NewStorageError(err error) *AppError {
	return &AppError{Code: "STORAGE_ERROR", Message: "internal storage error", Status: fiber.StatusInternalServerError, Err: err}
}

func NewIndexingError(err error) *AppError {
	return &AppError{Code: "INDEXING_ERROR", Message: "search index sync failed", Status: fiber.StatusInternalServerError, Err: err}
}

// RespondWithError writes the standardized error body. AppErrors carry their
// own status; anything else is treated as an internal error.
func RespondWithError(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*AppError); ok {
		resp := ErrorResponse{Error: appErr.Message, Code: appErr.Code}
		if appErr.Err != nil {
			resp.Details = appErr.Err.Error()
		}
		status := appErr.Status
		if status == 0 {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(resp)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
}
