package chama

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySummary reduces contribution and expense rows into twelve fixed
// Jan..Dec buckets. year == 0 means no year filter. Sums are carried as
// decimals internally so that many small amounts do not drift, and the net
// is clamped at zero when expenses exceed collections.
func MonthlySummary(contributions []Contribution, expenses []Expense, year int) MonthlySummaryResponse {
	var collected [12]decimal.Decimal
	var spent [12]decimal.Decimal

	for _, c := range contributions {
		if year != 0 && c.Year != year {
			continue
		}
		if c.Month < time.January || c.Month > time.December {
			continue
		}
		idx := int(c.Month) - 1
		collected[idx] = collected[idx].Add(decimal.NewFromFloat(c.Amount))
	}

	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		if year != 0 && e.Date.Year() != year {
			continue
		}
		idx := int(e.Date.Month()) - 1
		spent[idx] = spent[idx].Add(decimal.NewFromFloat(e.Amount))
	}

	resp := MonthlySummaryResponse{Year: year}
	for i := 0; i < 12; i++ {
		net := collected[i].Sub(spent[i])
		if net.Sign() < 0 {
			net = decimal.Zero
		}

		collectedFloat, _ := collected[i].Float64()
		spentFloat, _ := spent[i].Float64()
		netFloat, _ := net.Float64()

		resp.Buckets[i] = MonthlyBucket{
			Month:     time.Month(i + 1),
			Collected: collectedFloat,
			Spent:     spentFloat,
			Net:       netFloat,
		}
	}
	return resp
}

func (ct *ChamaTracker) GetMonthlySummary(ctx context.Context, year int) (MonthlySummaryResponse, error) {
	contributions, err := ct.storage.GetFilteredContributions(ctx, &ContributionList{IsAllNil: true})
	if err != nil {
		return MonthlySummaryResponse{}, err
	}

	expenses, err := ct.storage.GetFilteredExpenses(ctx, &ExpenseList{IsAllNil: true})
	if err != nil {
		return MonthlySummaryResponse{}, err
	}

	// Only approved spending counts against collections.
	approved := expenses[:0]
	for _, e := range expenses {
		if e.Status == ExpenseStatusApproved {
			approved = append(approved, e)
		}
	}

	return MonthlySummary(contributions, approved, year), nil
}

// GetMemberStatement collects one member's contribution rows sorted by
// calendar month with a decimal-accurate total.
func (ct *ChamaTracker) GetMemberStatement(ctx context.Context, memberId string) (MemberStatement, error) {
	member, err := ct.storage.GetMemberById(ctx, memberId)
	if err != nil {
		return MemberStatement{}, err
	}

	contributions, err := ct.storage.GetFilteredContributions(ctx, &ContributionList{MemberIDs: []string{memberId}})
	if err != nil {
		return MemberStatement{}, err
	}

	sort.Slice(contributions, func(i, j int) bool {
		ki := MonthKey{Year: contributions[i].Year, Month: contributions[i].Month}
		kj := MonthKey{Year: contributions[j].Year, Month: contributions[j].Month}
		return ki.Index() < kj.Index()
	})

	statement := MemberStatement{Member: member}
	total := decimal.Zero
	for _, c := range contributions {
		statement.Rows = append(statement.Rows, StatementRow{
			Month:  c.Month,
			Year:   c.Year,
			Amount: c.Amount,
			Type:   c.Type,
			Paid:   c.Paid,
		})
		total = total.Add(decimal.NewFromFloat(c.Amount))
	}
	statement.Total, _ = total.Float64()

	return statement, nil
}
