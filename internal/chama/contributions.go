package chama

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	appErrors "github.com/otieno-dev/chama_tracker/errors"
	"github.com/otieno-dev/chama_tracker/internal/notify"
	"github.com/otieno-dev/chama_tracker/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const pendingIdPrefix = "pending-"

// MonthRange expands an inclusive from/to range into one key per calendar
// month, stepping a cursor one month at a time. The result is contiguous and
// sorted; from > to is rejected.
func MonthRange(from MonthKey, to MonthKey) ([]MonthKey, error) {
	if from.Month < time.January || from.Month > time.December || to.Month < time.January || to.Month > time.December {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "Month must be between 1 and 12.")
	}
	if from.Index() > to.Index() {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "The from month cannot be after the to month.")
	}

	months := make([]MonthKey, 0, to.Index()-from.Index()+1)
	cursor := time.Date(from.Year, from.Month, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year, to.Month, 1, 0, 0, 0, 0, time.UTC)

	for !cursor.After(end) {
		months = append(months, MonthKey{Year: cursor.Year(), Month: cursor.Month()})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months, nil
}

// ContributionLedger is the in-memory view the UI reads. Optimistic
// placeholder rows are applied before the store confirms a write and are
// either replaced by an authoritative re-fetch or rolled back by their
// temporary ids. The ledger never merges: after a confirmed write its whole
// content is replaced by whatever the store returns.
type ContributionLedger struct {
	mu   sync.Mutex
	rows []Contribution
}

func NewContributionLedger() *ContributionLedger {
	return &ContributionLedger{}
}

// Rows returns a snapshot copy of the current view.
func (l *ContributionLedger) Rows() []Contribution {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]Contribution, len(l.rows))
	copy(snapshot, l.rows)
	return snapshot
}

func (l *ContributionLedger) applyPending(rows []Contribution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, rows...)
}

// rollback removes exactly the rows whose ids are in tempIds.
func (l *ContributionLedger) rollback(tempIds []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	drop := make(map[string]bool, len(tempIds))
	for _, id := range tempIds {
		drop[id] = true
	}

	kept := l.rows[:0]
	for _, row := range l.rows {
		if !drop[row.ID] {
			kept = append(kept, row)
		}
	}
	l.rows = kept
}

// ReplaceAll discards the local view in favor of authoritative rows.
func (l *ContributionLedger) ReplaceAll(rows []Contribution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = make([]Contribution, len(rows))
	copy(l.rows, rows)
}

func validateContributionRange(req AddContributionRangeRequest) error {
	if req.MemberID == "" {
		return appErrors.New(appErrors.ErrInvalidInput, "Member is required.")
	}
	if req.Amount <= 0 || IsFloatZero(req.Amount) {
		return appErrors.New(appErrors.ErrInvalidInput, "Contribution amount must be greater than zero.")
	}
	if req.Amount > MAX_CONTRIBUTION_AMOUNT {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Maximum allowed amount per month is: %.2f", MAX_CONTRIBUTION_AMOUNT)
	}
	if len(req.Type) > MAX_TYPE_TAG_LENGTH {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Type tag so long, maximum allowed length is: %d", MAX_TYPE_TAG_LENGTH)
	}
	return nil
}

// AddContributionRange creates one contribution row per calendar month in the
// inclusive from/to range. Placeholder rows go into the ledger first, then one
// batched upsert keyed on (member, year, month) makes re-submission
// idempotent. On failure exactly the placeholders are removed and the error
// surfaced; on success the ledger is replaced by a full re-fetch, never by a
// local merge.
func (ct *ChamaTracker) AddContributionRange(ctx context.Context, ledger *ContributionLedger, req AddContributionRangeRequest) ([]Contribution, error) {
	if err := validateContributionRange(req); err != nil {
		return nil, err
	}

	months, err := MonthRange(
		MonthKey{Year: req.FromYear, Month: req.FromMonth},
		MonthKey{Year: req.ToYear, Month: req.ToMonth},
	)
	if err != nil {
		return nil, err
	}

	if _, err := ct.storage.GetMemberById(ctx, req.MemberID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pending := make([]Contribution, 0, len(months))
	tempIds := make([]string, 0, len(months))

	for _, month := range months {
		tempId := pendingIdPrefix + uuid.New().String()
		tempIds = append(tempIds, tempId)
		pending = append(pending, Contribution{
			ID:         tempId,
			MemberID:   req.MemberID,
			Amount:     req.Amount,
			Month:      month.Month,
			Year:       month.Year,
			Paid:       true,
			Type:       req.Type,
			RecordedAt: now,
			Pending:    true,
		})
	}

	ledger.applyPending(pending)

	rows := make([]Contribution, len(pending))
	copy(rows, pending)
	for i := range rows {
		rows[i].ID = uuid.New().String()
		rows[i].Pending = false
	}

	if err := ct.storage.UpsertContributions(ctx, rows); err != nil {
		ledger.rollback(tempIds)
		return nil, err
	}

	ct.publish(TableContributions, notify.OpInsert)

	fresh, err := ct.storage.GetFilteredContributions(ctx, &ContributionList{IsAllNil: true})
	if err != nil {
		// The write landed; surface the stale-view problem but keep the
		// pending rows out of the caller's way on the next notification.
		logging.Logger.Warnf("contribution re-fetch after upsert failed: %v", err)
		ledger.rollback(tempIds)
		return nil, err
	}

	ledger.ReplaceAll(fresh)
	return fresh, nil
}

func (ct *ChamaTracker) GetFilteredContributions(ctx context.Context, filters *ContributionList) ([]Contribution, error) {
	rows, err := ct.storage.GetFilteredContributions(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get contributions: %w", err)
	}
	return rows, nil
}

// ImportContributionsCSV bulk-loads rows from a CSV stream with the header
// member_id,amount,month,year,type,paid. Malformed lines are counted as
// skipped, valid ones are written in one batched upsert.
func (ct *ChamaTracker) ImportContributionsCSV(ctx context.Context, adminUserId string, r io.Reader) (ImportResult, error) {
	if err := ct.RequireAdmin(ctx, adminUserId); err != nil {
		return ImportResult{}, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var result ImportResult
	var rows []Contribution
	now := time.Now().UTC()
	lineNo := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, appErrors.Newf(appErrors.ErrInvalidInput, "Malformed CSV: %v", err)
		}
		lineNo++

		// Header row.
		if lineNo == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "member_id") {
			continue
		}
		if len(record) < 4 {
			result.Skipped++
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil || amount.Sign() <= 0 {
			result.Skipped++
			continue
		}
		monthInt, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil || monthInt < 1 || monthInt > 12 {
			result.Skipped++
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[3]))
		if err != nil || year < 1900 {
			result.Skipped++
			continue
		}

		typeTag := ""
		if len(record) > 4 {
			typeTag = strings.TrimSpace(record[4])
		}
		paid := true
		if len(record) > 5 {
			if parsed, err := strconv.ParseBool(strings.TrimSpace(record[5])); err == nil {
				paid = parsed
			}
		}

		amountFloat, _ := amount.Float64()
		rows = append(rows, Contribution{
			ID:         uuid.New().String(),
			MemberID:   strings.TrimSpace(record[0]),
			Amount:     amountFloat,
			Month:      time.Month(monthInt),
			Year:       year,
			Paid:       paid,
			Type:       typeTag,
			RecordedAt: now,
		})
	}

	if len(rows) == 0 {
		return result, nil
	}

	if err := ct.storage.UpsertContributions(ctx, rows); err != nil {
		return result, err
	}
	result.Imported = len(rows)

	ct.publish(TableContributions, notify.OpInsert)
	return result, nil
}

// CleanupDuplicateContributions removes extra rows per (member, year, month),
// keeping the earliest recorded one.
func (ct *ChamaTracker) CleanupDuplicateContributions(ctx context.Context, adminUserId string) (int64, error) {
	if err := ct.RequireAdmin(ctx, adminUserId); err != nil {
		return 0, err
	}

	removed, err := ct.storage.DeleteDuplicateContributions(ctx)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		ct.publish(TableContributions, notify.OpDelete)
	}
	return removed, nil
}
