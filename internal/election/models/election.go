// Package models holds the election aggregate. Rosters and dates are
// immutable after creation; status is derived from the clock, never stored.
package models

import (
	"strings"
	"time"

	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
)

// Status is the temporal state of an election relative to a given instant.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Election is an immutable contest definition.
type Election struct {
	ID         id.ElectionID `json:"id"`
	Title      string        `json:"title"`
	Candidates []string      `json:"candidates"`
	StartDate  time.Time     `json:"start_date"`
	EndDate    time.Time     `json:"end_date"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewElection validates and constructs an election. The candidate roster is
// trimmed and must be non-empty with unique names; the window must have
// end strictly after start.
func NewElection(electionID id.ElectionID, title string, candidates []string, start, end, now time.Time) (*Election, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeValidation, "end date must be after start date")
	}

	roster := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if seen[strings.ToLower(candidate)] {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate candidate %q", candidate)
		}
		seen[strings.ToLower(candidate)] = true
		roster = append(roster, candidate)
	}
	if len(roster) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "candidate list must not be empty")
	}

	return &Election{
		ID:         electionID,
		Title:      title,
		Candidates: roster,
		StartDate:  start,
		EndDate:    end,
		CreatedAt:  now,
	}, nil
}

// StatusAt derives the temporal status. The window is inclusive on both
// ends: a ballot cast exactly at the end instant still counts.
func (e *Election) StatusAt(now time.Time) Status {
	switch {
	case now.Before(e.StartDate):
		return StatusUpcoming
	case now.After(e.EndDate):
		return StatusCompleted
	default:
		return StatusActive
	}
}

// HasCandidate reports whether name is on the roster, exact match.
func (e *Election) HasCandidate(name string) bool {
	for _, candidate := range e.Candidates {
		if candidate == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so memory stores never hand out shared slices.
func (e *Election) Clone() *Election {
	clone := *e
	clone.Candidates = append([]string(nil), e.Candidates...)
	return &clone
}
