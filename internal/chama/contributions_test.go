package chama

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/stretchr/testify/require"
)

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name    string
		from    MonthKey
		to      MonthKey
		wantLen int
		wantErr bool
	}{
		{
			name:    "single month",
			from:    MonthKey{2025, time.March},
			to:      MonthKey{2025, time.March},
			wantLen: 1,
		},
		{
			name:    "within one year",
			from:    MonthKey{2025, time.January},
			to:      MonthKey{2025, time.December},
			wantLen: 12,
		},
		{
			name:    "across year boundary",
			from:    MonthKey{2024, time.November},
			to:      MonthKey{2025, time.February},
			wantLen: 4,
		},
		{
			name:    "multi year",
			from:    MonthKey{2023, time.June},
			to:      MonthKey{2025, time.June},
			wantLen: 25,
		},
		{
			name:    "from after to",
			from:    MonthKey{2025, time.April},
			to:      MonthKey{2025, time.March},
			wantErr: true,
		},
		{
			name:    "from after to across years",
			from:    MonthKey{2025, time.January},
			to:      MonthKey{2024, time.December},
			wantErr: true,
		},
		{
			name:    "invalid month",
			from:    MonthKey{2025, time.Month(0)},
			to:      MonthKey{2025, time.March},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			months, err := MonthRange(tt.from, tt.to)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got months: %v", months)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			// Length matches (toY*12+toM) - (fromY*12+fromM) + 1.
			expectedLen := tt.to.Index() - tt.from.Index() + 1
			if expectedLen != tt.wantLen {
				t.Fatalf("test fixture inconsistent: expectedLen=%d wantLen=%d", expectedLen, tt.wantLen)
			}
			if len(months) != tt.wantLen {
				t.Errorf("Length mismatch: got %d, want %d", len(months), tt.wantLen)
			}

			// Contiguous and sorted.
			for i := 1; i < len(months); i++ {
				if months[i].Index() != months[i-1].Index()+1 {
					t.Errorf("Months not contiguous at %d: %v -> %v", i, months[i-1], months[i])
				}
			}
			if len(months) > 0 {
				if months[0] != tt.from {
					t.Errorf("First month mismatch: got %v, want %v", months[0], tt.from)
				}
				if months[len(months)-1] != tt.to {
					t.Errorf("Last month mismatch: got %v, want %v", months[len(months)-1], tt.to)
				}
			}
		})
	}
}

func TestAddContributionRangeSuccess(t *testing.T) {
	store := &MockStorage{}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ledger := NewContributionLedger()
	ctx := context.Background()

	rows, err := ct.AddContributionRange(ctx, ledger, AddContributionRangeRequest{
		MemberID:  member.ID,
		Amount:    1000,
		Type:      "monthly",
		FromMonth: time.January,
		FromYear:  2025,
		ToMonth:   time.April,
		ToYear:    2025,
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// The ledger holds the authoritative rows, none of them pending.
	view := ledger.Rows()
	require.Len(t, view, 4)
	for _, row := range view {
		require.False(t, row.Pending)
		require.False(t, strings.HasPrefix(row.ID, "pending-"))
		require.True(t, row.Paid)
		require.Equal(t, member.ID, row.MemberID)
	}
}

func TestAddContributionRangeIdempotentResubmit(t *testing.T) {
	store := &MockStorage{}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ledger := NewContributionLedger()
	ctx := context.Background()

	req := AddContributionRangeRequest{
		MemberID:  member.ID,
		Amount:    1000,
		FromMonth: time.January,
		FromYear:  2025,
		ToMonth:   time.March,
		ToYear:    2025,
	}

	_, err := ct.AddContributionRange(ctx, ledger, req)
	require.NoError(t, err)

	// Double submit, as a double-clicked form would. The (member, month)
	// upsert key keeps the row count stable.
	req.Amount = 1200
	_, err = ct.AddContributionRange(ctx, ledger, req)
	require.NoError(t, err)

	require.Len(t, store.contributions, 3)
	for _, c := range store.contributions {
		require.InDelta(t, 1200, c.Amount, 1e-9)
	}
}

func TestAddContributionRangeRollbackOnFailure(t *testing.T) {
	store := &MockStorage{}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ledger := NewContributionLedger()
	ctx := context.Background()

	// Pre-existing confirmed rows in the view.
	seedReq := AddContributionRangeRequest{
		MemberID:  member.ID,
		Amount:    500,
		FromMonth: time.January,
		FromYear:  2024,
		ToMonth:   time.February,
		ToYear:    2024,
	}
	_, err := ct.AddContributionRange(ctx, ledger, seedReq)
	require.NoError(t, err)
	before := ledger.Rows()

	store.failUpsert = true

	_, err = ct.AddContributionRange(ctx, ledger, AddContributionRangeRequest{
		MemberID:  member.ID,
		Amount:    1000,
		FromMonth: time.March,
		FromYear:  2024,
		ToMonth:   time.June,
		ToYear:    2024,
	})
	require.Error(t, err)

	// The view returned to exactly its pre-submission contents.
	after := ledger.Rows()
	require.Equal(t, before, after)

	// And the store was not half-written.
	require.Len(t, store.contributions, 2)
}

func TestAddContributionRangeValidation(t *testing.T) {
	store := &MockStorage{}
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ctx := context.Background()

	tests := []struct {
		name        string
		req         AddContributionRangeRequest
		expectedMsg string
	}{
		{
			name: "Fail - from after to, zero writes",
			req: AddContributionRangeRequest{
				MemberID: member.ID, Amount: 100,
				FromMonth: time.May, FromYear: 2025,
				ToMonth: time.April, ToYear: 2025,
			},
			expectedMsg: "cannot be after",
		},
		{
			name: "Fail - zero amount",
			req: AddContributionRangeRequest{
				MemberID: member.ID, Amount: 0,
				FromMonth: time.January, FromYear: 2025,
				ToMonth: time.January, ToYear: 2025,
			},
			expectedMsg: "greater than zero",
		},
		{
			name: "Fail - negative amount",
			req: AddContributionRangeRequest{
				MemberID: member.ID, Amount: -50,
				FromMonth: time.January, FromYear: 2025,
				ToMonth: time.January, ToYear: 2025,
			},
			expectedMsg: "greater than zero",
		},
		{
			name: "Fail - missing member",
			req: AddContributionRangeRequest{
				Amount:    100,
				FromMonth: time.January, FromYear: 2025,
				ToMonth: time.January, ToYear: 2025,
			},
			expectedMsg: "Member is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewContributionLedger()
			_, err := ct.AddContributionRange(ctx, ledger, tt.req)

			if err == nil {
				t.Fatalf("Expected error containing %q, but got nil", tt.expectedMsg)
			}
			if !strings.Contains(err.Error(), tt.expectedMsg) {
				t.Errorf("Error message mismatch:\n got:  %q\n want to contain: %q", err.Error(), tt.expectedMsg)
			}

			// Rejected before any write was issued.
			if len(store.contributions) != 0 {
				t.Errorf("Expected zero writes, found %d rows", len(store.contributions))
			}
			if len(ledger.Rows()) != 0 {
				t.Errorf("Expected empty ledger, found %d rows", len(ledger.Rows()))
			}
		})
	}
}

func TestImportContributionsCSV(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	member := seedMember(store, auth.RoleMember)
	ct := newTestTracker(store)
	ctx := context.Background()

	csvData := "member_id,amount,month,year,type,paid\n" +
		member.ID + ",1000,1,2025,monthly,true\n" +
		member.ID + ",1000,2,2025,monthly,true\n" +
		member.ID + ",not-a-number,3,2025,monthly,true\n" +
		member.ID + ",1000,13,2025,monthly,true\n"

	result, err := ct.ImportContributionsCSV(ctx, admin.UserID, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Equal(t, 2, result.Skipped)
	require.Len(t, store.contributions, 2)
}

func TestCleanupDuplicateContributions(t *testing.T) {
	store := &MockStorage{}
	admin := seedMember(store, auth.RoleAdmin)
	ct := newTestTracker(store)
	ctx := context.Background()

	now := time.Now().UTC()
	store.contributions = []Contribution{
		{ID: "c-1", MemberID: "m-1", Amount: 1000, Month: time.March, Year: 2025, RecordedAt: now.AddDate(0, 0, -2)},
		{ID: "c-2", MemberID: "m-1", Amount: 1000, Month: time.March, Year: 2025, RecordedAt: now},
		{ID: "c-3", MemberID: "m-1", Amount: 1000, Month: time.April, Year: 2025, RecordedAt: now},
	}

	removed, err := ct.CleanupDuplicateContributions(ctx, admin.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Len(t, store.contributions, 2)
}

func TestLedgerRowsIsASnapshot(t *testing.T) {
	ledger := NewContributionLedger()
	ledger.ReplaceAll([]Contribution{{ID: "c-1", Amount: 100}})

	snapshot := ledger.Rows()
	snapshot[0].Amount = 999

	require.InDelta(t, 100, ledger.Rows()[0].Amount, 1e-9)
}
