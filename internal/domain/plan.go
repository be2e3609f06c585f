package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultStartTime = "09:00"
	MaxNotesLength   = 200
)

// TransportMode selects the speed used for travel-time estimates.
type TransportMode string

const (
	Walking       TransportMode = "walking"
	Cycling       TransportMode = "cycling"
	Driving       TransportMode = "driving"
	PublicTransit TransportMode = "public-transit"
)

// ParseTransportMode accepts the canonical names plus the legacy "public" alias.
func ParseTransportMode(s string) (TransportMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walking":
		return Walking, true
	case "cycling":
		return Cycling, true
	case "driving":
		return Driving, true
	case "public-transit", "public":
		return PublicTransit, true
	}
	return "", false
}

// Plan is an ordered itinerary of stops plus its scheduling parameters.
// Stop order is significant; Order fields are kept contiguous 1..N.
type Plan struct {
	Cafes         []Stop        `json:"cafes" validate:"dive"`
	StartTime     string        `json:"startTime" validate:"clock"`
	TransportMode TransportMode `json:"transportMode"`
}

// NewPlan returns the empty default plan.
func NewPlan() Plan {
	return Plan{
		Cafes:         []Stop{},
		StartTime:     DefaultStartTime,
		TransportMode: Walking,
	}
}

// IsEmpty reports whether the plan has no stops.
func (p Plan) IsEmpty() bool { return len(p.Cafes) == 0 }

// Clone deep-copies the plan.
func (p Plan) Clone() Plan {
	out := p
	out.Cafes = cloneStops(p.Cafes)
	return out
}

// IndexOf returns the position of the stop with the given id, or -1.
func (p Plan) IndexOf(id StopID) int {
	for i, s := range p.Cafes {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Scheduled reports whether every stop has a derived time slot.
func (p Plan) Scheduled() bool {
	if len(p.Cafes) == 0 {
		return false
	}
	for _, s := range p.Cafes {
		if s.TimeSlot == "" {
			return false
		}
	}
	return true
}

// Renumber sets every Order to its 1-based position.
func (p *Plan) Renumber() {
	for i := range p.Cafes {
		p.Cafes[i].Order = i + 1
	}
}

// AddStop appends a stop with empty notes and time slot.
func (p *Plan) AddStop(s Stop) error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return NewValidationError("id", "stop id must be non-empty")
	}
	if p.IndexOf(s.ID) >= 0 {
		return NewValidationError("id", fmt.Sprintf("stop %q is already in the plan", string(s.ID)))
	}

	s = s.Clone()
	s.Order = len(p.Cafes) + 1
	s.Notes = ""
	s.TimeSlot = ""
	p.Cafes = append(p.Cafes, s)
	return nil
}

// MoveStop splice-moves the stop at position from to position to (0-based) and renumbers.
func (p *Plan) MoveStop(from, to int) error {
	n := len(p.Cafes)
	if from < 0 || from >= n {
		return NewValidationError("from", fmt.Sprintf("position %d out of range [0,%d)", from, n))
	}
	if to < 0 || to >= n {
		return NewValidationError("to", fmt.Sprintf("position %d out of range [0,%d)", to, n))
	}

	moved := p.Cafes[from]
	rest := append(p.Cafes[:from:from], p.Cafes[from+1:]...)
	out := make([]Stop, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	p.Cafes = out
	p.Renumber()
	return nil
}

// RemoveStop drops the stop with the given id and renumbers the rest.
func (p *Plan) RemoveStop(id StopID) error {
	idx := p.IndexOf(id)
	if idx < 0 {
		return &NotFoundError{Kind: "stop", ID: string(id)}
	}

	out := make([]Stop, 0, len(p.Cafes)-1)
	out = append(out, p.Cafes[:idx]...)
	out = append(out, p.Cafes[idx+1:]...)
	p.Cafes = out
	p.Renumber()
	return nil
}

// Annotate sets the notes of a stop. Notes longer than MaxNotesLength characters are rejected.
func (p *Plan) Annotate(id StopID, notes string) error {
	if n := utf8.RuneCountInString(notes); n > MaxNotesLength {
		return NewValidationError("notes", fmt.Sprintf("%d characters exceeds the %d character limit", n, MaxNotesLength))
	}

	idx := p.IndexOf(id)
	if idx < 0 {
		return &NotFoundError{Kind: "stop", ID: string(id)}
	}
	p.Cafes[idx].Notes = notes
	return nil
}

// ArchivedPlan is a finalized plan. Only Completed may change after archival.
type ArchivedPlan struct {
	Plan
	ID        string    `json:"id" validate:"required"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// Clone deep-copies the archived plan.
func (a ArchivedPlan) Clone() ArchivedPlan {
	out := a
	out.Plan = a.Plan.Clone()
	return out
}
