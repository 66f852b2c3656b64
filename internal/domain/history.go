package domain

import (
	"strings"
	"time"
)

// Direction filters history records relative to the viewing account.
type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
	DirectionTopUp    Direction = "topup"
)

// ParseDirection maps a query value to a Direction. Empty means all.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DirectionAll, nil
	case DirectionAll, DirectionSent, DirectionReceived, DirectionTopUp:
		return d, nil
	case "top-up", "top_up":
		return DirectionTopUp, nil
	}
	return "", ErrInvalidFilter
}

// HistoryFilter selects records for one account.
// From is inclusive and To is exclusive.
type HistoryFilter struct {
	From      *time.Time
	To        *time.Time
	Search    string
	Direction Direction
	AccountID int64
	Limit     int
	Offset    int
}

// Validate checks the filter's shape.
func (f *HistoryFilter) Validate() error {
	if f.AccountID <= 0 {
		return ErrInvalidFilter
	}
	if f.Direction == "" {
		f.Direction = DirectionAll
	}
	if _, err := ParseDirection(string(f.Direction)); err != nil {
		return err
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return ErrInvalidFilter
	}
	f.Search = strings.TrimSpace(f.Search)
	return nil
}
