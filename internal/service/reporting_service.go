package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PatientFilter string

const (
	FilterAll      PatientFilter = "all"
	FilterActive   PatientFilter = "active"   // at least one active complex
	FilterInactive PatientFilter = "inactive" // no active complex
)

type PatientSort string

const (
	SortLastActivity PatientSort = "lastActivity"
	SortPain         PatientSort = "pain"
	SortName         PatientSort = "name"
)

// PatientSummary is one row of the instructor's patient list.
type PatientSummary struct {
	domain.Patient
	ActiveComplexCount int        `json:"activeComplexCount"`
	TotalSessions      int        `json:"totalSessions"`
	TrainingDays       int        `json:"trainingDays"`
	LastActivity       *time.Time `json:"lastActivity"`
	AvgPain            *float64   `json:"avgPain"`
}

type ReportingService interface {
	ListPatientsWithProgress(ctx context.Context, instructorID primitive.ObjectID, filter PatientFilter, order PatientSort) ([]PatientSummary, error)
}

type reportingService struct {
	store repository.Store
	loc   *time.Location
	log   *logger.Logger
}

func NewReportingService(store repository.Store, loc *time.Location, log *logger.Logger) ReportingService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportingService{store: store, loc: loc, log: log.With("service", "reporting")}
}

// ListPatientsWithProgress summarizes the instructor's ACTIVE patients with
// three bulk reads. Filtering and sorting happen in memory.
func (s *reportingService) ListPatientsWithProgress(ctx context.Context, instructorID primitive.ObjectID, filter PatientFilter, order PatientSort) ([]PatientSummary, error) {
	if filter == "" {
		filter = FilterAll
	}
	if order == "" {
		order = SortLastActivity
	}
	switch filter {
	case FilterAll, FilterActive, FilterInactive:
	default:
		return nil, apperr.Validation("filter must be one of all, active, inactive")
	}
	switch order {
	case SortLastActivity, SortPain, SortName:
	default:
		return nil, apperr.Validation("sort must be one of lastActivity, pain, name")
	}

	active := true
	patients, err := s.store.Patients.ListByInstructor(ctx, instructorID, &active)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	patientIDs := make([]primitive.ObjectID, len(patients))
	for i, p := range patients {
		patientIDs[i] = p.ID
	}

	complexes, err := s.store.Complexes.ListByPatientIDs(ctx, patientIDs)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	complexIDs := make([]primitive.ObjectID, len(complexes))
	activeCount := map[primitive.ObjectID]int{}
	for i, c := range complexes {
		complexIDs[i] = c.ID
		if c.IsActive {
			activeCount[c.PatientID]++
		}
	}

	logs, err := s.store.Progress.ListByComplexIDs(ctx, complexIDs)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	byPatient := map[primitive.ObjectID][]domain.ProgressLog{}
	for _, l := range logs {
		byPatient[l.PatientID] = append(byPatient[l.PatientID], l)
	}

	out := make([]PatientSummary, 0, len(patients))
	for _, p := range patients {
		row := s.summarize(p, byPatient[p.ID])
		row.ActiveComplexCount = activeCount[p.ID]
		switch {
		case filter == FilterActive && row.ActiveComplexCount == 0:
			continue
		case filter == FilterInactive && row.ActiveComplexCount > 0:
			continue
		}
		out = append(out, row)
	}
	sortSummaries(out, order)
	return out, nil
}

func (s *reportingService) summarize(p domain.Patient, logs []domain.ProgressLog) PatientSummary {
	row := PatientSummary{Patient: p}
	sessions := map[string]bool{}
	days := map[string]bool{}
	pain := make([]*int, 0, len(logs))
	for i, l := range logs {
		sessions[l.SessionID] = true
		days[l.CompletedAt.In(s.loc).Format(domain.DateLayout)] = true
		pain = append(pain, l.PainLevel)
		if row.LastActivity == nil || l.CompletedAt.After(*row.LastActivity) {
			row.LastActivity = &logs[i].CompletedAt
		}
	}
	row.TotalSessions = len(sessions)
	row.TrainingDays = len(days)
	row.AvgPain = mean(pain)
	return row
}

// sortSummaries orders rows; missing aggregates sort as the neutral value
// (no activity last, no pain as 0). Ties fall back to the name.
func sortSummaries(rows []PatientSummary, order PatientSort) {
	byName := func(a, b PatientSummary) bool {
		return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch order {
		case SortPain:
			pa, pb := orZero(a.AvgPain), orZero(b.AvgPain)
			if pa != pb {
				return pa > pb
			}
		case SortLastActivity:
			switch {
			case a.LastActivity == nil && b.LastActivity == nil:
			case a.LastActivity == nil:
				return false
			case b.LastActivity == nil:
				return true
			case !a.LastActivity.Equal(*b.LastActivity):
				return a.LastActivity.After(*b.LastActivity)
			}
		}
		return byName(a, b)
	})
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
