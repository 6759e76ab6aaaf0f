package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/0xcafe-io/iz"
	"github.com/otieno-dev/chama_tracker/internal/export"
	"github.com/otieno-dev/chama_tracker/logging"
)

func (api *Api) GetMonthlySummaryHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	year := 0
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		yearInt, err := strconv.Atoi(yearStr)
		if err != nil {
			msg := fmt.Sprintf("failed to convert year to integer: %v", err)
			return iz.Respond().Status(400).Text(msg)
		}
		year = yearInt
	}

	summary, err := api.Service.GetMonthlySummary(r.Context(), year)
	if err != nil {
		msg := fmt.Sprintf("failed to get monthly summary: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := MonthlySummaryItem{Year: summary.Year}
	resp.Buckets = make([]MonthlyBucketItem, 0, len(summary.Buckets))
	for _, bucket := range summary.Buckets {
		resp.Buckets = append(resp.Buckets, MonthlyBucketItem{
			Month:     int(bucket.Month),
			Collected: bucket.Collected,
			Spent:     bucket.Spent,
			Net:       bucket.Net,
		})
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetMemberStatementHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	memberId := r.PathValue("id")
	if memberId == "" {
		return iz.Respond().Status(400).Text("member id is required")
	}

	statement, err := api.Service.GetMemberStatement(r.Context(), memberId)
	if err != nil {
		msg := fmt.Sprintf("failed to get member statement: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := MemberStatementResponse{
		Member: MemberToHttp(statement.Member),
		Total:  statement.Total,
	}
	resp.Rows = make([]StatementRowItem, 0, len(statement.Rows))
	for _, row := range statement.Rows {
		resp.Rows = append(resp.Rows, StatementRowItem{
			Month:  int(row.Month),
			Year:   row.Year,
			Amount: row.Amount,
			Type:   row.Type,
			Paid:   row.Paid,
		})
	}
	return iz.Respond().Status(200).JSON(resp)
}

// DownloadContributionsReport streams the contribution register as a file.
// It stays a plain handler because the response body is not JSON.
func (api *Api) DownloadContributionsReport(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		http.Error(w, "authorization failed: Authorization header is required.", 401)
		return
	}
	if _, err := api.Service.CheckSession(r.Context(), token); err != nil {
		http.Error(w, fmt.Sprintf("authorization failed: %s", err.Error()), 401)
		return
	}
	if api.Guard != nil {
		api.Guard.Touch(token)
	}

	filters, err := ContributionsListValidateParams(r.URL.Query())
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid filter parameters: %s", err.Error()), 400)
		return
	}

	contributions, err := api.Service.GetFilteredContributions(r.Context(), filters)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get contributions: %v", err), httpStatusFromError(err))
		return
	}

	table := export.Table{
		Title:   "Monthly Contributions",
		Headers: []string{"member_id", "amount", "month", "year", "type", "paid"},
	}
	for _, contribution := range contributions {
		table.Rows = append(table.Rows, []string{
			contribution.MemberID,
			strconv.FormatFloat(contribution.Amount, 'f', 2, 64),
			strconv.Itoa(int(contribution.Month)),
			strconv.Itoa(contribution.Year),
			contribution.Type,
			strconv.FormatBool(contribution.Paid),
		})
	}

	writeExportFile(w, r, table, "contributions")
}

// DownloadSummaryReport streams the monthly summary as a file.
func (api *Api) DownloadSummaryReport(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		http.Error(w, "authorization failed: Authorization header is required.", 401)
		return
	}
	if _, err := api.Service.CheckSession(r.Context(), token); err != nil {
		http.Error(w, fmt.Sprintf("authorization failed: %s", err.Error()), 401)
		return
	}
	if api.Guard != nil {
		api.Guard.Touch(token)
	}

	year := 0
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		yearInt, err := strconv.Atoi(yearStr)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to convert year to integer: %v", err), 400)
			return
		}
		year = yearInt
	}

	summary, err := api.Service.GetMonthlySummary(r.Context(), year)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get monthly summary: %v", err), httpStatusFromError(err))
		return
	}

	table := export.Table{
		Title:   "Monthly Summary",
		Headers: []string{"month", "collected", "spent", "net"},
	}
	for _, bucket := range summary.Buckets {
		table.Rows = append(table.Rows, []string{
			bucket.Month.String(),
			strconv.FormatFloat(bucket.Collected, 'f', 2, 64),
			strconv.FormatFloat(bucket.Spent, 'f', 2, 64),
			strconv.FormatFloat(bucket.Net, 'f', 2, 64),
		})
	}

	writeExportFile(w, r, table, "summary")
}

func writeExportFile(w http.ResponseWriter, r *http.Request, table export.Table, baseName string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var err error
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", baseName))
		err = export.WriteCSV(w, table)
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", baseName))
		err = export.WritePDF(w, table)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", baseName))
		err = export.WriteXLSX(w, table)
	default:
		http.Error(w, fmt.Sprintf("unsupported export format: %s", format), 400)
		return
	}

	if err != nil {
		// headers may already be written, nothing to do beyond logging
		logging.Logger.Errorf("failed to write %s export: %v", format, err)
	}
}
