package service

import (
	"context"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
)

// ReportService implements abuse reports against projects, versions and
// users.
type ReportService struct {
	reports  repository.ReportRepository
	projects repository.ProjectRepository
	versions repository.VersionRepository
	users    repository.UserRepository
	lookup   repository.LookupRepository
}

// NewReportService wires a ReportService.
func NewReportService(
	reports repository.ReportRepository,
	projects repository.ProjectRepository,
	versions repository.VersionRepository,
	users repository.UserRepository,
	lookup repository.LookupRepository,
) *ReportService {
	return &ReportService{
		reports:  reports,
		projects: projects,
		versions: versions,
		users:    users,
		lookup:   lookup,
	}
}

// CreateReportInput is the report payload. ItemType selects which id field
// the item reference resolves into.
type CreateReportInput struct {
	ReportType string `json:"report_type"`
	ItemType   string `json:"item_type"`
	ItemID     string `json:"item_id"`
	Body       string `json:"body"`
}

// CreateReport files a report on behalf of the caller. Exactly one target id
// is populated, matching the declared item type.
func (s *ReportService) CreateReport(ctx context.Context, caller *models.CallerIdentity, in CreateReportInput) (*models.QueryReport, error) {
	if caller == nil {
		return nil, models.NewAuthenticationError("authentication required")
	}
	typeID, err := s.lookup.ReportTypeID(ctx, in.ReportType)
	if err != nil {
		return nil, err
	}

	report := models.Report{
		ReportTypeID: typeID,
		Body:         in.Body,
		Reporter:     caller.UserID,
	}
	switch in.ItemType {
	case "project":
		id, err := s.projects.ResolveID(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		report.ProjectID = &id
	case "version":
		id, err := models.ParseID(in.ItemID)
		if err != nil {
			return nil, models.NewValidationError("invalid version id")
		}
		if _, err := s.versions.Get(ctx, id); err != nil {
			return nil, err
		}
		report.VersionID = &id
	case "user":
		id, err := s.users.ResolveID(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		report.UserID = &id
	default:
		return nil, models.NewValidationError("item_type must be project, version or user")
	}

	reportID, err := s.reports.GenerateID(ctx)
	if err != nil {
		return nil, err
	}
	report.ID = reportID
	if err := s.reports.Insert(ctx, &report); err != nil {
		return nil, err
	}
	return s.reports.Get(ctx, reportID)
}

// ListReports pages reports for moderators.
func (s *ReportService) ListReports(ctx context.Context, caller *models.CallerIdentity, limit, offset int) ([]models.QueryReport, error) {
	if caller == nil || !caller.Role.IsMod() {
		return nil, models.NewAuthorizationError("moderator role required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.reports.List(ctx, limit, offset)
}

// DeleteReport removes a report. The reporter may withdraw their own;
// moderators may close any.
func (s *ReportService) DeleteReport(ctx context.Context, caller *models.CallerIdentity, id models.ID) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return err
	}
	if report.Reporter != caller.UserID && !caller.Role.IsMod() {
		return models.NewAuthorizationError("you may only withdraw your own reports")
	}
	return s.reports.Delete(ctx, id)
}
