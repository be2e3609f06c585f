package services

import (
	"encoding/json"
	"strings"

	"cafe-route-service/internal/domain"
)

// normalizePlan fills defaults left out by older records and renumbers stops by position.
func normalizePlan(p *domain.Plan) {
	if p.Cafes == nil {
		p.Cafes = []domain.Stop{}
	}
	if strings.TrimSpace(p.StartTime) == "" {
		p.StartTime = domain.DefaultStartTime
	}
	if p.TransportMode == "" {
		p.TransportMode = domain.Walking
	} else if m, ok := domain.ParseTransportMode(string(p.TransportMode)); ok {
		p.TransportMode = m
	}
	p.Renumber()
}

func decodePlan(raw []byte) (domain.Plan, error) {
	var p domain.Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Plan{}, domain.NewValidationError("plan", "malformed plan record: "+err.Error())
	}
	normalizePlan(&p)
	if err := domain.ValidatePlan(p); err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}

func decodeArchivedPlan(raw []byte) (domain.ArchivedPlan, error) {
	var a domain.ArchivedPlan
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.ArchivedPlan{}, domain.NewValidationError("archive", "malformed archive entry: "+err.Error())
	}
	normalizePlan(&a.Plan)
	if err := domain.ValidateArchivedPlan(a); err != nil {
		return domain.ArchivedPlan{}, err
	}
	return a, nil
}
