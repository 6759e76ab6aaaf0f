package chama

import (
	"context"
	"fmt"
	"time"

	appErrors "github.com/otieno-dev/chama_tracker/errors"
	"github.com/otieno-dev/chama_tracker/internal/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (ct *ChamaTracker) SaveProject(ctx context.Context, userId string, req NewProjectRequest) (CSRProject, error) {
	if err := ct.RequireAdmin(ctx, userId); err != nil {
		return CSRProject{}, err
	}
	if req.Title == "" {
		return CSRProject{}, appErrors.New(appErrors.ErrInvalidInput, "Project title is required.")
	}
	if len(req.Title) > MAX_TITLE_LENGTH {
		return CSRProject{}, appErrors.Newf(appErrors.ErrInvalidInput, "Project title so long, maximum allowed length is: %d", MAX_TITLE_LENGTH)
	}
	if req.Budget < 0 {
		return CSRProject{}, appErrors.New(appErrors.ErrInvalidInput, "Project budget cannot be negative.")
	}
	if !req.EndDate.IsZero() && !req.StartDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return CSRProject{}, appErrors.New(appErrors.ErrInvalidInput, "Project end date cannot be before the start date.")
	}

	status := ProjectStatusPlanned
	now := time.Now().UTC()
	if !req.StartDate.IsZero() && !req.StartDate.After(now) {
		status = ProjectStatusActive
	}

	project := CSRProject{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      status,
		CreatedAt:   now,
	}

	if err := ct.storage.SaveProject(ctx, project); err != nil {
		return CSRProject{}, err
	}

	ct.publish(TableCSRProjects, notify.OpInsert)
	return project, nil
}

func (ct *ChamaTracker) ListProjects(ctx context.Context) ([]CSRProject, error) {
	projects, err := ct.storage.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}
	return projects, nil
}

// GetProjectDetail returns the project with raised-vs-budget progress summed
// over its contributions.
func (ct *ChamaTracker) GetProjectDetail(ctx context.Context, projectId string) (ProjectDetailResponse, error) {
	project, err := ct.storage.GetProjectById(ctx, projectId)
	if err != nil {
		return ProjectDetailResponse{}, err
	}

	contributions, err := ct.storage.ListProjectContributions(ctx, projectId)
	if err != nil {
		return ProjectDetailResponse{}, err
	}

	raised := decimal.Zero
	for _, c := range contributions {
		raised = raised.Add(decimal.NewFromFloat(c.Amount))
	}
	raisedFloat, _ := raised.Float64()

	var progress int
	if project.Budget > 0 {
		pct := raised.Div(decimal.NewFromFloat(project.Budget)).Mul(decimal.NewFromInt(100))
		progress = int(pct.IntPart())
	}

	return ProjectDetailResponse{
		Project:       project,
		Raised:        raisedFloat,
		Budget:        project.Budget,
		ProgressPct:   progress,
		Contributions: contributions,
	}, nil
}

func (ct *ChamaTracker) SaveProjectContribution(ctx context.Context, req NewProjectContributionRequest) (CSRContribution, error) {
	if req.ProjectID == "" {
		return CSRContribution{}, appErrors.New(appErrors.ErrInvalidInput, "Project is required.")
	}
	if req.MemberID == "" {
		return CSRContribution{}, appErrors.New(appErrors.ErrInvalidInput, "Member is required.")
	}
	if req.Amount <= 0 || IsFloatZero(req.Amount) {
		return CSRContribution{}, appErrors.New(appErrors.ErrInvalidInput, "Contribution amount must be greater than zero.")
	}

	if _, err := ct.storage.GetProjectById(ctx, req.ProjectID); err != nil {
		return CSRContribution{}, err
	}
	if _, err := ct.storage.GetMemberById(ctx, req.MemberID); err != nil {
		return CSRContribution{}, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	contribution := CSRContribution{
		ID:        uuid.New().String(),
		ProjectID: req.ProjectID,
		MemberID:  req.MemberID,
		Amount:    req.Amount,
		Date:      date,
	}

	if err := ct.storage.SaveProjectContribution(ctx, contribution); err != nil {
		return CSRContribution{}, err
	}

	ct.publish(TableCSRContributions, notify.OpInsert)
	return contribution, nil
}
