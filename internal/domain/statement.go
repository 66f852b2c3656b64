package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StatementDay aggregates one calendar day of activity.
type StatementDay struct {
	Date     string          `json:"date"`
	Received decimal.Decimal `json:"received"`
	Sent     decimal.Decimal `json:"sent"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}

// Statement is a per-day summary of an account's records.
type Statement struct {
	Days          []StatementDay  `json:"days"`
	TotalReceived decimal.Decimal `json:"total_received"`
	TotalSent     decimal.Decimal `json:"total_sent"`
	Net           decimal.Decimal `json:"net"`
	AccountID     int64           `json:"account_id"`
}

// BuildStatement buckets records by calendar day in loc, days ascending.
// System credits count as received unless they are debit adjustments.
func BuildStatement(accountID int64, records []*Transaction, loc *time.Location) *Statement {
	if loc == nil {
		loc = time.UTC
	}

	st := &Statement{
		AccountID:     accountID,
		Days:          []StatementDay{},
		TotalReceived: decimal.Zero,
		TotalSent:     decimal.Zero,
		Net:           decimal.Zero,
	}

	byDay := make(map[string]*StatementDay)
	for _, rec := range records {
		key := rec.CreatedAt.In(loc).Format(time.DateOnly)
		day, ok := byDay[key]
		if !ok {
			day = &StatementDay{Date: key, Received: decimal.Zero, Sent: decimal.Zero, Net: decimal.Zero}
			byDay[key] = day
		}

		day.Count++
		if rec.IsDebit(accountID) {
			day.Sent = day.Sent.Add(rec.Amount)
			st.TotalSent = st.TotalSent.Add(rec.Amount)
		} else {
			day.Received = day.Received.Add(rec.Amount)
			st.TotalReceived = st.TotalReceived.Add(rec.Amount)
		}
		day.Net = day.Received.Sub(day.Sent)
	}

	for _, day := range byDay {
		st.Days = append(st.Days, *day)
	}
	sort.Slice(st.Days, func(i, j int) bool { return st.Days[i].Date < st.Days[j].Date })

	st.Net = st.TotalReceived.Sub(st.TotalSent)
	return st
}
