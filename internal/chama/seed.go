package chama

import (
	"context"
	"fmt"
	"time"

	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/otieno-dev/chama_tracker/internal/notify"
	"github.com/google/uuid"
)

// SeedDemoData loads a small set of sample members, contributions, expenses
// and one CSR project so a fresh install has something to look at.
func (ct *ChamaTracker) SeedDemoData(ctx context.Context, adminUserId string) error {
	if err := ct.RequireAdmin(ctx, adminUserId); err != nil {
		return err
	}

	now := time.Now().UTC()
	year := now.Year()

	names := []struct {
		fullName string
		phone    string
		email    string
	}{
		{"Grace Wanjiku", "+254711000001", "grace.wanjiku@example.com"},
		{"Peter Omondi", "+254711000002", "peter.omondi@example.com"},
		{"Amina Hassan", "+254711000003", "amina.hassan@example.com"},
	}

	memberIds := make([]string, 0, len(names))
	for _, n := range names {
		member := Member{
			ID:       uuid.New().String(),
			FullName: n.fullName,
			Phone:    n.phone,
			Email:    n.email,
			JoinedAt: now.AddDate(0, -6, 0),
			Role:     auth.RoleMember,
		}
		if err := ct.storage.SaveMember(ctx, member); err != nil {
			return fmt.Errorf("failed to seed member '%s': %w", n.fullName, err)
		}
		memberIds = append(memberIds, member.ID)
	}

	var rows []Contribution
	for _, memberId := range memberIds {
		for month := time.January; month <= now.Month(); month++ {
			rows = append(rows, Contribution{
				ID:         uuid.New().String(),
				MemberID:   memberId,
				Amount:     1000,
				Month:      month,
				Year:       year,
				Paid:       true,
				Type:       "monthly",
				RecordedAt: now,
			})
		}
	}
	if err := ct.storage.UpsertContributions(ctx, rows); err != nil {
		return fmt.Errorf("failed to seed contributions: %w", err)
	}

	expense := Expense{
		ID:          uuid.New().String(),
		Description: "Venue hire for monthly meeting",
		Amount:      2500,
		Date:        now.AddDate(0, -1, 0),
		Status:      ExpenseStatusApproved,
		CreatedAt:   now,
	}
	if err := ct.storage.SaveExpense(ctx, expense); err != nil {
		return fmt.Errorf("failed to seed expense: %w", err)
	}

	project := CSRProject{
		ID:          uuid.New().String(),
		Title:       "School desks donation",
		Description: "Desks for the local primary school",
		Budget:      50000,
		StartDate:   now.AddDate(0, -2, 0),
		EndDate:     now.AddDate(0, 4, 0),
		Status:      ProjectStatusActive,
		CreatedAt:   now,
	}
	if err := ct.storage.SaveProject(ctx, project); err != nil {
		return fmt.Errorf("failed to seed project: %w", err)
	}

	ct.publish(TableMembers, notify.OpInsert)
	ct.publish(TableContributions, notify.OpInsert)
	ct.publish(TableExpenses, notify.OpInsert)
	ct.publish(TableCSRProjects, notify.OpInsert)
	return nil
}
