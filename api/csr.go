package api

import (
	"encoding/json"
	"fmt"

	"github.com/0xcafe-io/iz"
	"github.com/otieno-dev/chama_tracker/internal/chama"
)

func (api *Api) SaveProjectHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var projectReq NewProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&projectReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	startDate, err := parseDateField("start_date", projectReq.StartDate)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}
	endDate, err := parseDateField("end_date", projectReq.EndDate)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	req := chama.NewProjectRequest{
		Title:       projectReq.Title,
		Description: projectReq.Description,
		Budget:      projectReq.Budget,
		StartDate:   startDate,
		EndDate:     endDate,
	}

	project, err := api.Service.SaveProject(r.Context(), userId, req)
	if err != nil {
		msg := fmt.Sprintf("failed to create project: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(201).JSON(ProjectToHttp(project))
}

func (api *Api) ListProjectsHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	projects, err := api.Service.ListProjects(r.Context())
	if err != nil {
		msg := fmt.Sprintf("failed to get projects: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var resp ListProjectsResponse
	resp.Projects = make([]ProjectItem, 0, len(projects))
	for _, project := range projects {
		resp.Projects = append(resp.Projects, ProjectToHttp(project))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetProjectDetailHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	projectId := r.PathValue("id")
	if projectId == "" {
		return iz.Respond().Status(400).Text("project id is required")
	}

	detail, err := api.Service.GetProjectDetail(r.Context(), projectId)
	if err != nil {
		msg := fmt.Sprintf("failed to get project: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := ProjectDetailItem{
		Project:     ProjectToHttp(detail.Project),
		Raised:      detail.Raised,
		Budget:      detail.Budget,
		ProgressPct: detail.ProgressPct,
	}
	resp.Contributions = make([]ProjectContributionItem, 0, len(detail.Contributions))
	for _, contribution := range detail.Contributions {
		resp.Contributions = append(resp.Contributions, ProjectContributionItem{
			ID:       contribution.ID,
			MemberID: contribution.MemberID,
			Amount:   contribution.Amount,
			Date:     contribution.Date.Format("02/01/2006"),
		})
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) SaveProjectContributionHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	projectId := r.PathValue("id")
	if projectId == "" {
		return iz.Respond().Status(400).Text("project id is required")
	}

	var contributionReq NewProjectContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&contributionReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	req := chama.NewProjectContributionRequest{
		ProjectID: projectId,
		MemberID:  contributionReq.MemberID,
		Amount:    contributionReq.Amount,
	}

	contribution, err := api.Service.SaveProjectContribution(r.Context(), req)
	if err != nil {
		msg := fmt.Sprintf("failed to save contribution: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := ProjectContributionItem{
		ID:       contribution.ID,
		MemberID: contribution.MemberID,
		Amount:   contribution.Amount,
		Date:     contribution.Date.Format("02/01/2006"),
	}
	return iz.Respond().Status(201).JSON(resp)
}
