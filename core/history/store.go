// Package history persists dispatch decisions for later audit: which
// drivers were offered a cargo, with what scores, and how the posting
// resolved.
package history

import (
	"context"
	"time"
)

// Record captures one matching round and its outcome.
type Record struct {
	Timestamp      time.Time          `json:"timestamp"`
	CargoID        string             `json:"cargo_id"`
	AuthorID       string             `json:"author_id"`
	Candidates     []string           `json:"candidates"`
	Scores         map[string]float64 `json:"scores"`
	AcceptedDriver string             `json:"accepted_driver,omitempty"`
	Outcome        string             `json:"outcome"`
	Reverted       bool               `json:"reverted,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start    time.Time
	End      time.Time
	CargoID  string
	DriverID string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (r Record) matches(q Query) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.CargoID != "" && r.CargoID != q.CargoID {
		return false
	}
	if q.DriverID != "" {
		if r.AcceptedDriver == q.DriverID {
			return true
		}
		for _, id := range r.Candidates {
			if id == q.DriverID {
				return true
			}
		}
		return false
	}
	return true
}
