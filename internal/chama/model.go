package chama

import (
	"time"
)

// REQUESTS START:
type NewMemberRequest struct {
	FullName string
	Phone    string
	Email    string
	JoinedAt time.Time
}

type UpdateMemberRequest struct {
	MemberID   string
	NewName    string
	NewPhone   string
	NewEmail   string
	UpdateTime time.Time
}

type AddContributionRangeRequest struct {
	MemberID  string
	Amount    float64
	Type      string
	FromMonth time.Month
	FromYear  int
	ToMonth   time.Month
	ToYear    int
}

type NewExpenseRequest struct {
	Description string
	Amount      float64
	Date        time.Time
	MemberID    string
	ProjectID   string
}

type NewProjectRequest struct {
	Title       string
	Description string
	Budget      float64
	StartDate   time.Time
	EndDate     time.Time
}

type NewProjectContributionRequest struct {
	ProjectID string
	MemberID  string
	Amount    float64
	Date      time.Time
}

// REQUESTS END:

// MODELS:

type Member struct {
	ID       string
	UserID   string
	FullName string
	Phone    string
	Email    string
	JoinedAt time.Time
	Role     string
}

// Contribution is one member payment for one calendar month. The store keeps
// at most one row per (member, year, month); writes go through an upsert on
// that key. Pending marks an optimistic placeholder that is not yet
// confirmed by the store.
type Contribution struct {
	ID         string
	MemberID   string
	Amount     float64
	Month      time.Month
	Year       int
	Paid       bool
	Type       string
	RecordedAt time.Time
	Pending    bool
}

const (
	ExpenseStatusPending  = "Pending"
	ExpenseStatusApproved = "Approved"
	ExpenseStatusRejected = "Rejected"
)

type Expense struct {
	ID          string
	Description string
	Amount      float64
	Date        time.Time
	MemberID    string
	ProjectID   string
	Status      string
	ApprovedBy  string
	CreatedAt   time.Time
}

const (
	ProjectStatusPlanned   = "Planned"
	ProjectStatusActive    = "Active"
	ProjectStatusCompleted = "Completed"
)

type CSRProject struct {
	ID          string
	Title       string
	Description string
	Budget      float64
	StartDate   time.Time
	EndDate     time.Time
	Status      string
	CreatedAt   time.Time
}

type CSRContribution struct {
	ID        string
	ProjectID string
	MemberID  string
	Amount    float64
	Date      time.Time
}

// MonthKey identifies one calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func (k MonthKey) Index() int {
	return k.Year*12 + int(k.Month) - 1
}

// FILTERS:

type ContributionList struct {
	MemberIDs []string
	Year      int
	Month     time.Month
	Type      string
	PaidOnly  bool
	IsAllNil  bool
}

type ExpenseList struct {
	Statuses  []string
	ProjectID string
	StartDate time.Time
	EndDate   time.Time
	IsAllNil  bool
}

// RESPONSES:

type AccountInfo struct {
	Fullname string
	Email    string
	Phone    string
	Role     string
	JoinedAt string
}

type DuplicateMemberGroup struct {
	Key     string
	Members []Member
}

type DeduplicateResult struct {
	GroupsFound    int
	MembersRemoved int
	RowsReassigned int64
}

type MonthlyBucket struct {
	Month     time.Month
	Collected float64
	Spent     float64
	Net       float64
}

type MonthlySummaryResponse struct {
	Year    int // 0 means all years
	Buckets [12]MonthlyBucket
}

type StatementRow struct {
	Month  time.Month
	Year   int
	Amount float64
	Type   string
	Paid   bool
}

type MemberStatement struct {
	Member Member
	Rows   []StatementRow
	Total  float64
}

type ProjectDetailResponse struct {
	Project       CSRProject
	Raised        float64
	Budget        float64
	ProgressPct   int
	Contributions []CSRContribution
}

type ImportResult struct {
	Imported int
	Skipped  int
}
