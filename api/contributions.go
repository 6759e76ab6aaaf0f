package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/0xcafe-io/iz"
	"github.com/otieno-dev/chama_tracker/internal/chama"
)

func (api *Api) AddContributionRangeHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var rangeReq AddContributionRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&rangeReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	req := chama.AddContributionRangeRequest{
		MemberID:  rangeReq.MemberID,
		Amount:    rangeReq.Amount,
		Type:      rangeReq.Type,
		FromMonth: time.Month(rangeReq.FromMonth),
		FromYear:  rangeReq.FromYear,
		ToMonth:   time.Month(rangeReq.ToMonth),
		ToYear:    rangeReq.ToYear,
	}

	saved, err := api.Service.AddContributionRange(r.Context(), api.Ledger, req)
	if err != nil {
		msg := fmt.Sprintf("failed to save contributions: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var resp ListContributionsResponse
	resp.Contributions = make([]ContributionItem, 0, len(saved))
	for _, contribution := range saved {
		resp.Contributions = append(resp.Contributions, ContributionToHttp(contribution))
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) GetFilteredContributionsHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	params := r.URL.Query()
	filters, err := ContributionsListValidateParams(params)
	if err != nil {
		msg := fmt.Sprintf("invalid filter parameters: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	contributions, err := api.Service.GetFilteredContributions(r.Context(), filters)
	if err != nil {
		msg := fmt.Sprintf("failed to get contributions: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var resp ListContributionsResponse
	resp.Contributions = make([]ContributionItem, 0, len(contributions))
	for _, contribution := range contributions {
		resp.Contributions = append(resp.Contributions, ContributionToHttp(contribution))
	}
	return iz.Respond().Status(200).JSON(resp)
}
