package chama

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
	"unicode"

	appErrors "github.com/otieno-dev/chama_tracker/errors"
	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/otieno-dev/chama_tracker/internal/notify"
	"github.com/otieno-dev/chama_tracker/logging"
	"github.com/google/uuid"
)

const (
	MAX_CONTRIBUTION_AMOUNT  = 999999999999999999.99
	MAX_EXPENSE_AMOUNT       = 999999999999999999.99
	MAX_DESCRIPTION_LENGTH   = 1000
	MAX_TYPE_TAG_LENGTH      = 100
	MAX_TITLE_LENGTH         = 255
	PROFILE_POLL_MAX_ATTEMPT = 8
	PROFILE_POLL_BASE_DELAY  = 100 * time.Millisecond
	Epsilon                  = 1e-9 // For IsFloatZero() func.
)

// Table names published on the notify hub after successful writes.
const (
	TableMembers          = "members"
	TableContributions    = "contributions"
	TableExpenses         = "expenses"
	TableCSRProjects      = "csr_projects"
	TableCSRContributions = "csr_contributions"
)

func IsFloatZero(f float64) bool {
	return f >= 0 && f < Epsilon
}

type ChamaTracker struct {
	storage         Storage
	hub             *notify.Hub
	profilePollBase time.Duration
	StorageType     string
}

func NewChamaTracker(s Storage, hub *notify.Hub) ChamaTracker {
	return ChamaTracker{
		storage:         s,
		hub:             hub,
		profilePollBase: PROFILE_POLL_BASE_DELAY,
		StorageType:     s.GetStorageType(),
	}
}

type Storage interface {
	SaveUser(ctx context.Context, user auth.User, member Member) error
	ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error)
	IsUserExists(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, emailAddress string) (bool, error)
	UpdatePassword(ctx context.Context, userId string, hashedPassword string) error
	GetUserByUserName(ctx context.Context, username string) (auth.User, error)

	SaveSession(ctx context.Context, session auth.Session) error
	GetSessionByToken(ctx context.Context, token string) (auth.Session, error)
	CheckSession(ctx context.Context, token string) (userId string, err error)
	UpdateSession(ctx context.Context, userId string, expireAt time.Time) error
	DeleteSession(ctx context.Context, token string) error

	SaveMember(ctx context.Context, member Member) error
	GetMemberByUserId(ctx context.Context, userId string) (Member, error)
	GetMemberById(ctx context.Context, memberId string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	UpdateMember(ctx context.Context, fields UpdateMemberRequest) (Member, error)
	FindDuplicateMembers(ctx context.Context) ([]DuplicateMemberGroup, error)
	ReassignContributions(ctx context.Context, fromMemberId string, toMemberId string) (int64, error)
	DeleteMember(ctx context.Context, memberId string) error

	UpsertContributions(ctx context.Context, rows []Contribution) error
	GetFilteredContributions(ctx context.Context, filters *ContributionList) ([]Contribution, error)
	DeleteDuplicateContributions(ctx context.Context) (int64, error)

	SaveExpense(ctx context.Context, expense Expense) error
	GetFilteredExpenses(ctx context.Context, filters *ExpenseList) ([]Expense, error)
	UpdateExpenseStatus(ctx context.Context, expenseId string, status string, approverId string) (Expense, error)

	SaveProject(ctx context.Context, project CSRProject) error
	ListProjects(ctx context.Context) ([]CSRProject, error)
	GetProjectById(ctx context.Context, projectId string) (CSRProject, error)
	SaveProjectContribution(ctx context.Context, contribution CSRContribution) error
	ListProjectContributions(ctx context.Context, projectId string) ([]CSRContribution, error)

	GetStorageType() string
}

func (ct *ChamaTracker) publish(table string, op notify.Op) {
	if ct.hub != nil {
		ct.hub.Publish(table, op)
	}
}

func (ct *ChamaTracker) GenerateSession(ctx context.Context, credentialsPure auth.UserCredentialsPure) (string, error) {
	user, err := ct.storage.ValidateUser(ctx, credentialsPure)
	if err != nil {
		return "", err
	}

	tokenByte := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, tokenByte); err != nil {
		return "", fmt.Errorf("failed to generate new session: %w", err)
	}

	token := hex.EncodeToString(tokenByte)

	now := time.Now().UTC()

	session := auth.Session{
		ID:        uuid.New().String(),
		Token:     token,
		CreatedAt: now,
		ExpireAt:  now.AddDate(0, 3, 0),
		UserID:    user.ID,
	}

	err = ct.storage.SaveSession(ctx, session)
	if err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return token, nil
}

func (ct *ChamaTracker) CheckSession(ctx context.Context, token string) (string, error) {
	session, err := ct.storage.GetSessionByToken(ctx, token)
	if err != nil {
		return "", err
	}

	userId, err := ct.storage.CheckSession(ctx, token)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	daysUntilExpiry := int(session.ExpireAt.Sub(now).Hours() / 24)

	if daysUntilExpiry <= 5 {
		newExpireAt := time.Now().AddDate(0, 1, 0)

		err := ct.storage.UpdateSession(ctx, userId, newExpireAt)
		if err != nil {
			return "", fmt.Errorf("failed to update session: %w", err)
		}
	}

	return userId, nil
}

func (ct *ChamaTracker) RegisterMember(ctx context.Context, newUser auth.NewUser) (string, error) {
	if err := newUser.ValidateUserFields(); err != nil {
		return "", err
	}

	isUserExists, err := ct.storage.IsUserExists(ctx, newUser.UserName)
	if err != nil {
		return "", fmt.Errorf("failed to check username availability: %w", err)
	}
	if isUserExists {
		return "", appErrors.Newf(appErrors.ErrConflict, "This '%s' username already taken", newUser.UserName)
	}
	isEmailTaken, err := ct.storage.IsEmailTaken(ctx, newUser.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}
	if isEmailTaken {
		return "", appErrors.Newf(appErrors.ErrConflict, "This '%s' email address already taken, try to register with another email.", newUser.Email)
	}
	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := auth.User{
		ID:             uuid.New().String(),
		UserName:       strings.ToLower(newUser.UserName),
		Email:          strings.ToLower(newUser.Email),
		PasswordHashed: hashedPassword,
		Role:           auth.RoleMember,
		CreatedAt:      now,
	}
	member := Member{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		FullName: CapitalizeFullName(newUser.FullName),
		Phone:    newUser.Phone,
		Email:    strings.ToLower(newUser.Email),
		JoinedAt: now,
		Role:     auth.RoleMember,
	}

	if err := ct.storage.SaveUser(ctx, user, member); err != nil {
		return "", fmt.Errorf("failed to registration: %w", err)
	}

	// The member profile may be provisioned out of band. Wait for it with
	// bounded backoff before handing out a session.
	if _, err := ct.WaitForProfile(ctx, user.ID); err != nil {
		return "", err
	}

	ct.publish(TableMembers, notify.OpInsert)

	credentials := auth.UserCredentialsPure{
		UserName:      newUser.UserName,
		PasswordPlain: newUser.PasswordPlain,
	}

	token, err := ct.GenerateSession(ctx, credentials)
	if err != nil {
		return "", fmt.Errorf("registration successfully but failed to generate session: %w | try login", err)
	}
	return token, nil
}

// WaitForProfile polls for the member profile row with doubling delay and
// jitter, up to PROFILE_POLL_MAX_ATTEMPT attempts.
func (ct *ChamaTracker) WaitForProfile(ctx context.Context, userId string) (Member, error) {
	delay := ct.profilePollBase

	for attempt := 1; attempt <= PROFILE_POLL_MAX_ATTEMPT; attempt++ {
		member, err := ct.storage.GetMemberByUserId(ctx, userId)
		if err == nil {
			return member, nil
		}
		if appErrors.CodeOf(err) != appErrors.ErrNotFound {
			return Member{}, err
		}
		if attempt == PROFILE_POLL_MAX_ATTEMPT {
			break
		}

		jitter := time.Duration(0)
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)/2+1)); err == nil {
			jitter = time.Duration(n.Int64())
		}

		select {
		case <-ctx.Done():
			return Member{}, ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}

	logging.Logger.Warnf("profile for user '%s' not visible after %d attempts", userId, PROFILE_POLL_MAX_ATTEMPT)
	return Member{}, appErrors.New(appErrors.ErrNotFound, "Profile is not ready yet, try again in a moment.")
}

func CapitalizeFullName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		if len(word) == 0 {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func (ct *ChamaTracker) LogoutUser(ctx context.Context, token string) error {
	err := ct.storage.DeleteSession(ctx, token)
	if err != nil {
		return err
	}
	return nil
}

func (ct *ChamaTracker) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	if req.UserName == "" || req.Email == "" {
		return appErrors.New(appErrors.ErrInvalidInput, "Username and email are required.")
	}
	if len(req.NewPasswordPlain) < auth.MIN_PASSWORD_LENGTH {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Password so short, minimum length is %d", auth.MIN_PASSWORD_LENGTH)
	}

	user, err := ct.storage.GetUserByUserName(ctx, strings.ToLower(req.UserName))
	if err != nil {
		return err
	}
	if user.Email != strings.ToLower(req.Email) {
		return appErrors.New(appErrors.ErrAccessDenied, "Email does not match this account.")
	}

	hashedPassword, err := auth.HashPassword(req.NewPasswordPlain)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := ct.storage.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return err
	}
	return nil
}

func (ct *ChamaTracker) GetAccountInfo(ctx context.Context, userId string) (AccountInfo, error) {
	member, err := ct.storage.GetMemberByUserId(ctx, userId)
	if err != nil {
		return AccountInfo{}, err
	}

	return AccountInfo{
		Fullname: member.FullName,
		Email:    member.Email,
		Phone:    member.Phone,
		Role:     member.Role,
		JoinedAt: member.JoinedAt.Format("2006-01-02"),
	}, nil
}

func (ct *ChamaTracker) UpdateProfile(ctx context.Context, userId string, fields UpdateMemberRequest) (Member, error) {
	member, err := ct.storage.GetMemberByUserId(ctx, userId)
	if err != nil {
		return Member{}, err
	}
	fields.MemberID = member.ID
	fields.UpdateTime = time.Now().UTC()

	if fields.NewEmail != "" && !strings.Contains(fields.NewEmail, "@") {
		return Member{}, appErrors.New(appErrors.ErrInvalidInput, "Invalid email format.")
	}

	updated, err := ct.storage.UpdateMember(ctx, fields)
	if err != nil {
		return Member{}, err
	}

	ct.publish(TableMembers, notify.OpUpdate)
	return updated, nil
}

func (ct *ChamaTracker) ListMembers(ctx context.Context) ([]Member, error) {
	members, err := ct.storage.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	return members, nil
}

// AddMember creates a standalone member profile without a login, used by
// admins to record people who never sign up themselves.
func (ct *ChamaTracker) AddMember(ctx context.Context, adminUserId string, req NewMemberRequest) (Member, error) {
	if err := ct.RequireAdmin(ctx, adminUserId); err != nil {
		return Member{}, err
	}
	if req.FullName == "" {
		return Member{}, appErrors.New(appErrors.ErrInvalidInput, "Member name is required.")
	}

	joined := req.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}

	member := Member{
		ID:       uuid.New().String(),
		FullName: CapitalizeFullName(req.FullName),
		Phone:    req.Phone,
		Email:    strings.ToLower(req.Email),
		JoinedAt: joined,
		Role:     auth.RoleMember,
	}

	if err := ct.storage.SaveMember(ctx, member); err != nil {
		return Member{}, err
	}

	ct.publish(TableMembers, notify.OpInsert)
	return member, nil
}

// RequireAdmin resolves the caller's member profile and rejects non-admins.
// Replaces the original client-side password gate with a server-side role
// check.
func (ct *ChamaTracker) RequireAdmin(ctx context.Context, userId string) error {
	member, err := ct.storage.GetMemberByUserId(ctx, userId)
	if err != nil {
		return err
	}
	if member.Role != auth.RoleAdmin {
		return appErrors.New(appErrors.ErrAccessDenied, "This action requires an admin account.")
	}
	return nil
}

// DeduplicateMembers consolidates duplicate member rows (same normalized
// phone or email). The earliest-joined member of each group is kept,
// contributions of the others are re-pointed to it, then the duplicates are
// deleted.
func (ct *ChamaTracker) DeduplicateMembers(ctx context.Context, adminUserId string) (DeduplicateResult, error) {
	if err := ct.RequireAdmin(ctx, adminUserId); err != nil {
		return DeduplicateResult{}, err
	}

	groups, err := ct.storage.FindDuplicateMembers(ctx)
	if err != nil {
		return DeduplicateResult{}, err
	}

	result := DeduplicateResult{GroupsFound: len(groups)}

	for _, group := range groups {
		if len(group.Members) < 2 {
			continue
		}

		keeper := group.Members[0]
		for _, m := range group.Members[1:] {
			if m.JoinedAt.Before(keeper.JoinedAt) {
				keeper = m
			}
		}

		for _, m := range group.Members {
			if m.ID == keeper.ID {
				continue
			}
			moved, err := ct.storage.ReassignContributions(ctx, m.ID, keeper.ID)
			if err != nil {
				return result, err
			}
			result.RowsReassigned += moved

			if err := ct.storage.DeleteMember(ctx, m.ID); err != nil {
				return result, err
			}
			result.MembersRemoved++
		}
	}

	if result.MembersRemoved > 0 {
		ct.publish(TableMembers, notify.OpDelete)
		ct.publish(TableContributions, notify.OpUpdate)
	}
	return result, nil
}
