package chama

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	appErrors "github.com/otieno-dev/chama_tracker/errors"
	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/otieno-dev/chama_tracker/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.Logger = logrus.New()
	logging.Logger.SetLevel(logrus.ErrorLevel)
	os.Exit(m.Run())
}

// MockStorage is a stateful in-memory Storage used across the package tests.
type MockStorage struct {
	mu sync.Mutex

	users            []auth.User
	sessions         []auth.Session
	members          []Member
	contributions    []Contribution
	expenses         []Expense
	projects         []CSRProject
	projectContribs  []CSRContribution
	failUpsert       bool
	failSaveUser     error
	profileHideCalls int // GetMemberByUserId returns not-found this many times
}

func (m *MockStorage) GetStorageType() string { return "inmemory" }

func (m *MockStorage) SaveUser(ctx context.Context, user auth.User, member Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaveUser != nil {
		return m.failSaveUser
	}
	m.users = append(m.users, user)
	m.members = append(m.members, member)
	return nil
}

func (m *MockStorage) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UserName == strings.ToLower(credentials.UserName) {
			if auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
				return user, nil
			}
			return auth.User{}, appErrors.New(appErrors.ErrAuth, "Password is wrong.")
		}
	}
	return auth.User{}, appErrors.New(appErrors.ErrAuth, "User not found.")
}

func (m *MockStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UserName == strings.ToLower(username) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStorage) IsEmailTaken(ctx context.Context, emailAddress string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == strings.ToLower(emailAddress) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStorage) UpdatePassword(ctx context.Context, userId string, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, user := range m.users {
		if user.ID == userId {
			m.users[i].PasswordHashed = hashedPassword
			return nil
		}
	}
	return appErrors.New(appErrors.ErrNotFound, "User not found.")
}

func (m *MockStorage) GetUserByUserName(ctx context.Context, username string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UserName == username {
			return user, nil
		}
	}
	return auth.User{}, appErrors.New(appErrors.ErrNotFound, "User not found.")
}

func (m *MockStorage) SaveSession(ctx context.Context, session auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *MockStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return auth.Session{}, appErrors.New(appErrors.ErrAuth, "Session does not exist, please login.")
}

func (m *MockStorage) CheckSession(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.Token == token {
			if session.ExpireAt.After(time.Now().UTC()) {
				return session.UserID, nil
			}
			return "", appErrors.New(appErrors.ErrAuth, "Your session expired, please login again.")
		}
	}
	return "", appErrors.New(appErrors.ErrAuth, "Session does not exist, please login.")
}

func (m *MockStorage) UpdateSession(ctx context.Context, userId string, expireAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, session := range m.sessions {
		if session.UserID == userId {
			m.sessions[i].ExpireAt = expireAt
		}
	}
	return nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, session := range m.sessions {
		if session.Token == token {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return appErrors.New(appErrors.ErrNotFound, "Session not found.")
}

func (m *MockStorage) SaveMember(ctx context.Context, member Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, member)
	return nil
}

func (m *MockStorage) GetMemberByUserId(ctx context.Context, userId string) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileHideCalls > 0 {
		m.profileHideCalls--
		return Member{}, appErrors.New(appErrors.ErrNotFound, "Member not found.")
	}
	for _, member := range m.members {
		if member.UserID == userId {
			return member, nil
		}
	}
	return Member{}, appErrors.New(appErrors.ErrNotFound, "Member not found.")
}

func (m *MockStorage) GetMemberById(ctx context.Context, memberId string) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.ID == memberId {
			return member, nil
		}
	}
	return Member{}, appErrors.New(appErrors.ErrNotFound, "Member not found.")
}

func (m *MockStorage) ListMembers(ctx context.Context) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Member, len(m.members))
	copy(result, m.members)
	return result, nil
}

func (m *MockStorage) UpdateMember(ctx context.Context, fields UpdateMemberRequest) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, member := range m.members {
		if member.ID == fields.MemberID {
			if fields.NewName != "" {
				m.members[i].FullName = fields.NewName
			}
			if fields.NewPhone != "" {
				m.members[i].Phone = fields.NewPhone
			}
			if fields.NewEmail != "" {
				m.members[i].Email = fields.NewEmail
			}
			return m.members[i], nil
		}
	}
	return Member{}, appErrors.New(appErrors.ErrNotFound, "Member not found.")
}

func (m *MockStorage) FindDuplicateMembers(ctx context.Context) ([]DuplicateMemberGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPhone := make(map[string][]Member)
	for _, member := range m.members {
		if member.Phone != "" {
			byPhone[member.Phone] = append(byPhone[member.Phone], member)
		}
	}
	var groups []DuplicateMemberGroup
	for phone, members := range byPhone {
		if len(members) > 1 {
			groups = append(groups, DuplicateMemberGroup{Key: phone, Members: members})
		}
	}
	return groups, nil
}

func (m *MockStorage) ReassignContributions(ctx context.Context, fromMemberId string, toMemberId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var moved int64
	for i, c := range m.contributions {
		if c.MemberID == fromMemberId {
			m.contributions[i].MemberID = toMemberId
			moved++
		}
	}
	return moved, nil
}

func (m *MockStorage) DeleteMember(ctx context.Context, memberId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, member := range m.members {
		if member.ID == memberId {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return appErrors.New(appErrors.ErrNotFound, "Member not found.")
}

func (m *MockStorage) UpsertContributions(ctx context.Context, rows []Contribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert {
		return appErrors.New(appErrors.ErrInternal, "Failed to save contributions, try again later.")
	}
	for _, row := range rows {
		replaced := false
		for i, existing := range m.contributions {
			if existing.MemberID == row.MemberID && existing.Year == row.Year && existing.Month == row.Month {
				row.ID = existing.ID
				m.contributions[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			m.contributions = append(m.contributions, row)
		}
	}
	return nil
}

func (m *MockStorage) GetFilteredContributions(ctx context.Context, filters *ContributionList) ([]Contribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Contribution
	for _, c := range m.contributions {
		if !filters.IsAllNil {
			if len(filters.MemberIDs) > 0 {
				found := false
				for _, id := range filters.MemberIDs {
					if c.MemberID == id {
						found = true
						break
					}
				}
				if !found {
					continue
				}
			}
			if filters.Year != 0 && c.Year != filters.Year {
				continue
			}
			if filters.Month != 0 && c.Month != filters.Month {
				continue
			}
			if filters.Type != "" && c.Type != filters.Type {
				continue
			}
			if filters.PaidOnly && !c.Paid {
				continue
			}
		}
		result = append(result, c)
	}
	return result, nil
}

func (m *MockStorage) DeleteDuplicateContributions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var kept []Contribution
	var removed int64
	for _, c := range m.contributions {
		key := fmt.Sprintf("%s|%d-%d", c.MemberID, c.Year, int(c.Month))
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}
	m.contributions = kept
	return removed, nil
}

func (m *MockStorage) SaveExpense(ctx context.Context, expense Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append(m.expenses, expense)
	return nil
}

func (m *MockStorage) GetFilteredExpenses(ctx context.Context, filters *ExpenseList) ([]Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Expense
	for _, e := range m.expenses {
		if !filters.IsAllNil {
			if len(filters.Statuses) > 0 {
				found := false
				for _, s := range filters.Statuses {
					if e.Status == s {
						found = true
						break
					}
				}
				if !found {
					continue
				}
			}
			if filters.ProjectID != "" && e.ProjectID != filters.ProjectID {
				continue
			}
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *MockStorage) UpdateExpenseStatus(ctx context.Context, expenseId string, status string, approverId string) (Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.expenses {
		if e.ID == expenseId {
			m.expenses[i].Status = status
			m.expenses[i].ApprovedBy = approverId
			return m.expenses[i], nil
		}
	}
	return Expense{}, appErrors.New(appErrors.ErrNotFound, "Expense not found.")
}

func (m *MockStorage) SaveProject(ctx context.Context, project CSRProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = append(m.projects, project)
	return nil
}

func (m *MockStorage) ListProjects(ctx context.Context) ([]CSRProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]CSRProject, len(m.projects))
	copy(result, m.projects)
	return result, nil
}

func (m *MockStorage) GetProjectById(ctx context.Context, projectId string) (CSRProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.ID == projectId {
			return p, nil
		}
	}
	return CSRProject{}, appErrors.New(appErrors.ErrNotFound, "Project not found.")
}

func (m *MockStorage) SaveProjectContribution(ctx context.Context, contribution CSRContribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectContribs = append(m.projectContribs, contribution)
	return nil
}

func (m *MockStorage) ListProjectContributions(ctx context.Context, projectId string) ([]CSRContribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []CSRContribution
	for _, c := range m.projectContribs {
		if c.ProjectID == projectId {
			result = append(result, c)
		}
	}
	return result, nil
}

// helpers

func newTestTracker(store *MockStorage) ChamaTracker {
	ct := NewChamaTracker(store, nil)
	ct.profilePollBase = time.Millisecond
	return ct
}

func seedMember(store *MockStorage, role string) Member {
	member := Member{
		ID:       uuid.New().String(),
		UserID:   uuid.New().String(),
		FullName: "Test Member",
		Phone:    "+254700000000",
		Email:    "test@example.com",
		JoinedAt: time.Now().UTC(),
		Role:     role,
	}
	store.members = append(store.members, member)
	return member
}

// Tests

func TestRegisterMemberConflictCodeSurvivesWrap(t *testing.T) {
	store := &MockStorage{
		failSaveUser: appErrors.New(appErrors.ErrConflict, "This username or email already taken."),
	}
	ct := newTestTracker(store)

	_, err := ct.RegisterMember(context.Background(), auth.NewUser{
		UserName:      "grace",
		FullName:      "grace wanjiku",
		PasswordPlain: "secret1",
		Email:         "grace@example.com",
		Phone:         "+254711000001",
	})
	require.Error(t, err)

	// The storage conflict is wrapped on the way up; the code must survive
	// so the handler can answer 409 instead of 500.
	require.Equal(t, appErrors.ErrConflict, appErrors.CodeOf(err))
}

func TestRegisterMember(t *testing.T) {
	tests := []struct {
		name        string
		input       auth.NewUser
		expectedMsg string
	}{
		{
			name:        "Fail - empty username",
			input:       auth.NewUser{UserName: "", PasswordPlain: "secret1", Email: "a@b.com"},
			expectedMsg: "Username cannot be empty!",
		},
		{
			name:        "Fail - bad email",
			input:       auth.NewUser{UserName: "grace", PasswordPlain: "secret1", Email: "nope"},
			expectedMsg: "Invalid email format",
		},
		{
			name: "Success - valid registration",
			input: auth.NewUser{
				UserName:      "grace",
				FullName:      "grace wanjiku",
				PasswordPlain: "secret1",
				Email:         "grace@example.com",
				Phone:         "+254711000001",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStorage{}
			ct := newTestTracker(store)
			ctx := context.Background()

			token, err := ct.RegisterMember(ctx, tt.input)

			if tt.expectedMsg != "" {
				if err == nil {
					t.Fatalf("Expected error containing %q, but got nil", tt.expectedMsg)
				}
				if !strings.Contains(err.Error(), tt.expectedMsg) {
					t.Errorf("Error message mismatch:\n got:  %q\n want to contain: %q", err.Error(), tt.expectedMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotEmpty(t, token)

			// The profile row and the capitalized name both landed.
			require.Len(t, store.members, 1)
			require.Equal(t, "Grace Wanjiku", store.members[0].FullName)

			userId, err := ct.CheckSession(ctx, token)
			require.NoError(t, err)
			require.Equal(t, store.users[0].ID, userId)
		})
	}
}

func TestRegisterMemberRejectsDuplicates(t *testing.T) {
	store := &MockStorage{}
	ct := newTestTracker(store)
	ctx := context.Background()

	first := auth.NewUser{
		UserName:      "grace",
		FullName:      "Grace Wanjiku",
		PasswordPlain: "secret1",
		Email:         "grace@example.com",
	}
	_, err := ct.RegisterMember(ctx, first)
	require.NoError(t, err)

	_, err = ct.RegisterMember(ctx, first)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict, appErrors.CodeOf(err))
}

func TestWaitForProfileBackoff(t *testing.T) {
	store := &MockStorage{profileHideCalls: 3}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)

	got, err := ct.WaitForProfile(context.Background(), member.UserID)
	require.NoError(t, err)
	require.Equal(t, member.ID, got.ID)
}

func TestWaitForProfileGivesUp(t *testing.T) {
	store := &MockStorage{profileHideCalls: PROFILE_POLL_MAX_ATTEMPT + 1}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)

	_, err := ct.WaitForProfile(context.Background(), member.UserID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestResetPassword(t *testing.T) {
	store := &MockStorage{}
	ct := newTestTracker(store)
	ctx := context.Background()

	_, err := ct.RegisterMember(ctx, auth.NewUser{
		UserName:      "grace",
		FullName:      "Grace Wanjiku",
		PasswordPlain: "oldsecret",
		Email:         "grace@example.com",
	})
	require.NoError(t, err)

	err = ct.ResetPassword(ctx, auth.ResetPasswordRequest{
		UserName:         "grace",
		Email:            "wrong@example.com",
		NewPasswordPlain: "newsecret",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAccessDenied, appErrors.CodeOf(err))

	err = ct.ResetPassword(ctx, auth.ResetPasswordRequest{
		UserName:         "grace",
		Email:            "grace@example.com",
		NewPasswordPlain: "newsecret",
	})
	require.NoError(t, err)

	_, err = ct.GenerateSession(ctx, auth.UserCredentialsPure{UserName: "grace", PasswordPlain: "newsecret"})
	require.NoError(t, err)
}

func TestRequireAdmin(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	regular := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ctx := context.Background()

	require.NoError(t, ct.RequireAdmin(ctx, admin.UserID))

	err := ct.RequireAdmin(ctx, regular.UserID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAccessDenied, appErrors.CodeOf(err))
}

func TestDeduplicateMembers(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	ct := newTestTracker(store)
	ctx := context.Background()

	older := Member{ID: "dup-old", FullName: "Grace W", Phone: "+254711000009", JoinedAt: time.Now().AddDate(0, -6, 0)}
	newer := Member{ID: "dup-new", FullName: "Grace Wanjiku", Phone: "+254711000009", JoinedAt: time.Now()}
	store.members = append(store.members, older, newer)
	store.contributions = append(store.contributions, Contribution{
		ID: "c-1", MemberID: "dup-new", Amount: 1000, Month: time.March, Year: 2025, Paid: true,
	})

	result, err := ct.DeduplicateMembers(ctx, admin.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, result.GroupsFound)
	require.Equal(t, 1, result.MembersRemoved)
	require.Equal(t, int64(1), result.RowsReassigned)

	// The earliest-joined member was kept and owns the contribution now.
	_, err = store.GetMemberById(ctx, "dup-new")
	require.Error(t, err)
	require.Equal(t, "dup-old", store.contributions[0].MemberID)
}

func TestExpenseApprovalFlow(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	regular := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ctx := context.Background()

	expense, err := ct.SaveExpense(ctx, regular.UserID, NewExpenseRequest{
		Description: "Stationery",
		Amount:      450,
	})
	require.NoError(t, err)
	require.Equal(t, ExpenseStatusPending, expense.Status)

	// Non-admin cannot approve.
	_, err = ct.ApproveExpense(ctx, regular.UserID, expense.ID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAccessDenied, appErrors.CodeOf(err))

	approved, err := ct.ApproveExpense(ctx, admin.UserID, expense.ID)
	require.NoError(t, err)
	require.Equal(t, ExpenseStatusApproved, approved.Status)
	require.Equal(t, admin.ID, approved.ApprovedBy)

	rejected, err := ct.RejectExpense(ctx, admin.UserID, expense.ID)
	require.NoError(t, err)
	require.Equal(t, ExpenseStatusRejected, rejected.Status)
}

func TestSaveExpenseValidation(t *testing.T) {
	store := &MockStorage{}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ctx := context.Background()

	tests := []struct {
		name        string
		input       NewExpenseRequest
		expectedMsg string
	}{
		{
			name:        "Fail - empty description",
			input:       NewExpenseRequest{Description: "", Amount: 100},
			expectedMsg: "description is required",
		},
		{
			name:        "Fail - zero amount",
			input:       NewExpenseRequest{Description: "Chairs", Amount: 0},
			expectedMsg: "greater than zero",
		},
		{
			name:        "Fail - negative amount",
			input:       NewExpenseRequest{Description: "Chairs", Amount: -10},
			expectedMsg: "greater than zero",
		},
		{
			name:        "Fail - description over limit",
			input:       NewExpenseRequest{Description: strings.Repeat("a", MAX_DESCRIPTION_LENGTH+1), Amount: 100},
			expectedMsg: "Description so long",
		},
		{
			name:  "Success - description at limit",
			input: NewExpenseRequest{Description: strings.Repeat("a", MAX_DESCRIPTION_LENGTH), Amount: 100},
		},
		{
			name:  "Success - valid expense",
			input: NewExpenseRequest{Description: "Chairs", Amount: 1200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ct.SaveExpense(ctx, member.UserID, tt.input)
			if tt.expectedMsg == "" {
				if err != nil {
					t.Errorf("Expected success, but got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, but got nil", tt.expectedMsg)
			}
			if !strings.Contains(err.Error(), tt.expectedMsg) {
				t.Errorf("Error message mismatch:\n got:  %q\n want to contain: %q", err.Error(), tt.expectedMsg)
			}
		})
	}
}

func TestProjectDetailProgress(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ctx := context.Background()

	project, err := ct.SaveProject(ctx, admin.UserID, NewProjectRequest{
		Title:     "Borehole",
		Budget:    10000,
		StartDate: time.Now().AddDate(0, -1, 0),
		EndDate:   time.Now().AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	require.Equal(t, ProjectStatusActive, project.Status)

	for i := 0; i < 3; i++ {
		_, err := ct.SaveProjectContribution(ctx, NewProjectContributionRequest{
			ProjectID: project.ID,
			MemberID:  member.ID,
			Amount:    1500,
		})
		require.NoError(t, err)
	}

	detail, err := ct.GetProjectDetail(ctx, project.ID)
	require.NoError(t, err)
	require.InDelta(t, 4500, detail.Raised, 1e-9)
	require.Equal(t, 45, detail.ProgressPct)
	require.Len(t, detail.Contributions, 3)
}

func TestSeedDemoData(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	ct := newTestTracker(store)

	require.NoError(t, ct.SeedDemoData(context.Background(), admin.UserID))

	// The admin plus three sample members, all seeded with the member role.
	require.Len(t, store.members, 4)
	for _, m := range store.members[1:] {
		require.Equal(t, auth.RoleMember, m.Role)
	}
	require.NotEmpty(t, store.contributions)
	require.Len(t, store.expenses, 1)
	require.Len(t, store.projects, 1)
}

func TestSeedDemoDataRequiresAdmin(t *testing.T) {
	store := &MockStorage{}
	regular := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)

	err := ct.SeedDemoData(context.Background(), regular.UserID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAccessDenied, appErrors.CodeOf(err))
}
