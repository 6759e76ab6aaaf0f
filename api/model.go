package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/otieno-dev/chama_tracker/errors"

	"github.com/otieno-dev/chama_tracker/internal/chama"
)

// REQUESTS START:
type SaveUserRequest struct {
	UserName string `json:"username"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type UserLoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	UserName    string `json:"username"`
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type UpdateProfileRequest struct {
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

type NewMemberRequest struct {
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

type AddContributionRangeRequest struct {
	MemberID  string  `json:"member_id"`
	Amount    float64 `json:"amount"`
	Type      string  `json:"type"`
	FromMonth int     `json:"from_month"`
	FromYear  int     `json:"from_year"`
	ToMonth   int     `json:"to_month"`
	ToYear    int     `json:"to_year"`
}

type NewExpenseRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"` // "2006-01-02"
	MemberID    string  `json:"member_id"`
	ProjectID   string  `json:"project_id"`
}

type NewProjectRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	StartDate   string  `json:"start_date"` // "2006-01-02"
	EndDate     string  `json:"end_date"`
}

type NewProjectContributionRequest struct {
	ProjectID string  `json:"project_id"`
	MemberID  string  `json:"member_id"`
	Amount    float64 `json:"amount"`
}

// REQUESTS END:

// RESPONSES:

type UserCreatedResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type AccountInfoResponse struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

type MemberItem struct {
	ID       string `json:"id"`
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	JoinedAt string `json:"joined_at"`
	Role     string `json:"role"`
}

type ListMembersResponse struct {
	Members []MemberItem `json:"members"`
}

type ContributionItem struct {
	ID         string  `json:"id"`
	MemberID   string  `json:"member_id"`
	Amount     float64 `json:"amount"`
	Month      int     `json:"month"`
	Year       int     `json:"year"`
	Paid       bool    `json:"paid"`
	Type       string  `json:"type"`
	RecordedAt string  `json:"recorded_at"`
}

type ListContributionsResponse struct {
	Contributions []ContributionItem `json:"contributions"`
}

type ExpenseItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	MemberID    string  `json:"member_id"`
	ProjectID   string  `json:"project_id"`
	Status      string  `json:"status"`
	ApprovedBy  string  `json:"approved_by"`
	CreatedAt   string  `json:"created_at"`
}

type ListExpensesResponse struct {
	Expenses []ExpenseItem `json:"expenses"`
}

type ProjectItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type ListProjectsResponse struct {
	Projects []ProjectItem `json:"projects"`
}

type ProjectContributionItem struct {
	ID       string  `json:"id"`
	MemberID string  `json:"member_id"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

type ProjectDetailItem struct {
	Project       ProjectItem               `json:"project"`
	Raised        float64                   `json:"raised"`
	Budget        float64                   `json:"budget"`
	ProgressPct   int                       `json:"progress_pct"`
	Contributions []ProjectContributionItem `json:"contributions"`
}

type MonthlyBucketItem struct {
	Month     int     `json:"month"`
	Collected float64 `json:"collected"`
	Spent     float64 `json:"spent"`
	Net       float64 `json:"net"`
}

type MonthlySummaryItem struct {
	Year    int                 `json:"year"`
	Buckets []MonthlyBucketItem `json:"buckets"`
}

type StatementRowItem struct {
	Month  int     `json:"month"`
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type"`
	Paid   bool    `json:"paid"`
}

type MemberStatementResponse struct {
	Member MemberItem         `json:"member"`
	Rows   []StatementRowItem `json:"rows"`
	Total  float64            `json:"total"`
}

type DeduplicateResponse struct {
	GroupsFound    int   `json:"groups_found"`
	MembersRemoved int   `json:"members_removed"`
	RowsReassigned int64 `json:"rows_reassigned"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type SessionStateResponse struct {
	State string `json:"state"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 //internal error
	}
}

func MemberToHttp(member chama.Member) MemberItem {
	return MemberItem{
		ID:       member.ID,
		FullName: member.FullName,
		Phone:    member.Phone,
		Email:    member.Email,
		JoinedAt: member.JoinedAt.Format("02/01/2006"),
		Role:     member.Role,
	}
}

func ContributionToHttp(contribution chama.Contribution) ContributionItem {
	return ContributionItem{
		ID:         contribution.ID,
		MemberID:   contribution.MemberID,
		Amount:     contribution.Amount,
		Month:      int(contribution.Month),
		Year:       contribution.Year,
		Paid:       contribution.Paid,
		Type:       contribution.Type,
		RecordedAt: contribution.RecordedAt.Format("02/01/2006 15:04"),
	}
}

func ExpenseToHttp(expense chama.Expense) ExpenseItem {
	return ExpenseItem{
		ID:          expense.ID,
		Description: expense.Description,
		Amount:      expense.Amount,
		Date:        expense.Date.Format("02/01/2006"),
		MemberID:    expense.MemberID,
		ProjectID:   expense.ProjectID,
		Status:      expense.Status,
		ApprovedBy:  expense.ApprovedBy,
		CreatedAt:   expense.CreatedAt.Format("02/01/2006 15:04"),
	}
}

func ProjectToHttp(project chama.CSRProject) ProjectItem {
	return ProjectItem{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		Budget:      project.Budget,
		StartDate:   project.StartDate.Format("02/01/2006"),
		EndDate:     project.EndDate.Format("02/01/2006"),
		Status:      project.Status,
		CreatedAt:   project.CreatedAt.Format("02/01/2006 15:04"),
	}
}

func ContributionsListValidateParams(params url.Values) (*chama.ContributionList, error) {
	var filters chama.ContributionList
	if len(params) == 0 {
		filters.IsAllNil = true
		return &filters, nil
	}

	if membersStr := params.Get("members"); membersStr != "" {
		filters.MemberIDs = strings.Split(membersStr, ",")
	}

	if yearStr := params.Get("year"); yearStr != "" {
		yearInt, err := strconv.Atoi(yearStr)
		if err != nil {
			return nil, appErrors.Newf(appErrors.ErrInvalidInput, "failed to convert year to integer: %v", err)
		}
		filters.Year = yearInt
	}

	if monthStr := params.Get("month"); monthStr != "" {
		monthInt, err := strconv.Atoi(monthStr)
		if err != nil {
			return nil, appErrors.Newf(appErrors.ErrInvalidInput, "failed to convert month to integer: %v", err)
		}
		if monthInt < 1 || monthInt > 12 {
			return nil, appErrors.Newf(appErrors.ErrInvalidInput, "invalid month: %d", monthInt)
		}
		filters.Month = time.Month(monthInt)
	}

	if typeStr := params.Get("type"); typeStr != "" {
		filters.Type = typeStr
	}

	if paidStr := params.Get("paid"); paidStr != "" {
		filters.PaidOnly = paidStr == "true"
	}

	return &filters, nil
}

func ExpensesListValidateParams(params url.Values) (*chama.ExpenseList, error) {
	var filters chama.ExpenseList
	if len(params) == 0 {
		filters.IsAllNil = true
		return &filters, nil
	}

	if statusStr := params.Get("status"); statusStr != "" {
		for _, status := range strings.Split(statusStr, ",") {
			switch status {
			case chama.ExpenseStatusPending, chama.ExpenseStatusApproved, chama.ExpenseStatusRejected:
				filters.Statuses = append(filters.Statuses, status)
			default:
				return nil, appErrors.Newf(appErrors.ErrInvalidInput, "invalid expense status: %s", status)
			}
		}
	}

	if projectStr := params.Get("project"); projectStr != "" {
		filters.ProjectID = projectStr
	}

	if startStr := params.Get("start"); startStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return nil, appErrors.Newf(appErrors.ErrInvalidInput, "failed to parse start date: %v", err)
		}
		filters.StartDate = start
	}

	if endStr := params.Get("end"); endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return nil, appErrors.Newf(appErrors.ErrInvalidInput, "failed to parse end date: %v", err)
		}
		filters.EndDate = end
	}

	return &filters, nil
}

func parseDateField(name string, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, appErrors.Newf(appErrors.ErrInvalidInput, "%s is required", name)
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, appErrors.New(appErrors.ErrInvalidInput, fmt.Sprintf("failed to parse %s, expected format: 2006-01-02", name))
	}
	return date, nil
}
