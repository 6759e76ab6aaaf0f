package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/0xcafe-io/iz"
	"github.com/otieno-dev/chama_tracker/logging"
)

func (api *Api) DeduplicateMembersHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	result, err := api.Service.DeduplicateMembers(r.Context(), userId)
	if err != nil {
		msg := fmt.Sprintf("failed to deduplicate members: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := DeduplicateResponse{
		GroupsFound:    result.GroupsFound,
		MembersRemoved: result.MembersRemoved,
		RowsReassigned: result.RowsReassigned,
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) CleanupContributionsHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	removed, err := api.Service.CleanupDuplicateContributions(r.Context(), userId)
	if err != nil {
		msg := fmt.Sprintf("failed to clean up contributions: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	msg := fmt.Sprintf("removed %d duplicate contributions", removed)
	return iz.Respond().Status(200).Text(msg)
}

func (api *Api) SeedDemoDataHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	if err := api.Service.SeedDemoData(r.Context(), userId); err != nil {
		msg := fmt.Sprintf("failed to seed demo data: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(201).Text("demo data seeded")
}

// ImportContributions takes a CSV upload. A plain handler because the body
// is the raw file, not JSON.
func (api *Api) ImportContributions(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		http.Error(w, "authorization failed: Authorization header is required.", 401)
		return
	}
	userId, err := api.Service.CheckSession(r.Context(), token)
	if err != nil {
		http.Error(w, fmt.Sprintf("authorization failed: %s", err.Error()), 401)
		return
	}
	if api.Guard != nil {
		api.Guard.Touch(token)
	}

	result, err := api.Service.ImportContributionsCSV(r.Context(), userId, r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to import contributions: %v", err), httpStatusFromError(err))
		return
	}

	resp := ImportResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Logger.Errorf("failed to write import response: %v", err)
	}
}
