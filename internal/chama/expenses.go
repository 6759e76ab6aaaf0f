package chama

import (
	"context"
	"fmt"
	"time"

	appErrors "github.com/otieno-dev/chama_tracker/errors"
	"github.com/otieno-dev/chama_tracker/internal/notify"
	"github.com/google/uuid"
)

func (ct *ChamaTracker) SaveExpense(ctx context.Context, userId string, req NewExpenseRequest) (Expense, error) {
	if req.Description == "" {
		return Expense{}, appErrors.New(appErrors.ErrInvalidInput, "Expense description is required.")
	}
	if len(req.Description) > MAX_DESCRIPTION_LENGTH {
		return Expense{}, appErrors.Newf(appErrors.ErrInvalidInput, "Description so long, maximum allowed length is: %d", MAX_DESCRIPTION_LENGTH)
	}
	if req.Amount <= 0 || IsFloatZero(req.Amount) {
		return Expense{}, appErrors.New(appErrors.ErrInvalidInput, "Expense amount must be greater than zero.")
	}
	if req.Amount > MAX_EXPENSE_AMOUNT {
		return Expense{}, appErrors.Newf(appErrors.ErrInvalidInput, "Maximum allowed expense amount is: %.2f", MAX_EXPENSE_AMOUNT)
	}

	if req.ProjectID != "" {
		if _, err := ct.storage.GetProjectById(ctx, req.ProjectID); err != nil {
			return Expense{}, err
		}
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	expense := Expense{
		ID:          uuid.New().String(),
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		MemberID:    req.MemberID,
		ProjectID:   req.ProjectID,
		Status:      ExpenseStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := ct.storage.SaveExpense(ctx, expense); err != nil {
		return Expense{}, err
	}

	ct.publish(TableExpenses, notify.OpInsert)
	return expense, nil
}

func (ct *ChamaTracker) GetFilteredExpenses(ctx context.Context, filters *ExpenseList) ([]Expense, error) {
	expenses, err := ct.storage.GetFilteredExpenses(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return expenses, nil
}

func (ct *ChamaTracker) setExpenseStatus(ctx context.Context, adminUserId string, expenseId string, status string) (Expense, error) {
	if err := ct.RequireAdmin(ctx, adminUserId); err != nil {
		return Expense{}, err
	}
	if expenseId == "" {
		return Expense{}, appErrors.New(appErrors.ErrInvalidInput, "Expense id is required.")
	}

	approver, err := ct.storage.GetMemberByUserId(ctx, adminUserId)
	if err != nil {
		return Expense{}, err
	}

	expense, err := ct.storage.UpdateExpenseStatus(ctx, expenseId, status, approver.ID)
	if err != nil {
		return Expense{}, err
	}

	ct.publish(TableExpenses, notify.OpUpdate)
	return expense, nil
}

func (ct *ChamaTracker) ApproveExpense(ctx context.Context, adminUserId string, expenseId string) (Expense, error) {
	return ct.setExpenseStatus(ctx, adminUserId, expenseId, ExpenseStatusApproved)
}

func (ct *ChamaTracker) RejectExpense(ctx context.Context, adminUserId string, expenseId string) (Expense, error) {
	return ct.setExpenseStatus(ctx, adminUserId, expenseId, ExpenseStatusRejected)
}
