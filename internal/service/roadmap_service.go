package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// RoadmapPhase is a catalog entry as shown to one viewer. Locked entries
// carry only the teaser fields.
type RoadmapPhase struct {
	domain.RehabPhase
	Locked  bool `json:"locked"`
	Current bool `json:"current"`
}

// Roadmap pairs the catalog with the program's explicit phase pointer.
// ElapsedPercentage is a display hint only and never moves CurrentPhase.
type Roadmap struct {
	Phases            []RoadmapPhase `json:"phases"`
	CurrentPhase      int            `json:"currentPhase"`
	ElapsedWeeks      *float64       `json:"elapsedWeeks"`
	ElapsedPercentage *float64       `json:"elapsedPercentage"`
}

type ChecklistState struct {
	Criteria       []string `json:"criteria"`
	Checked        []int    `json:"checked"`
	ReadyToDiscuss bool     `json:"readyToDiscuss"`
}

type ProgramInput struct {
	PatientID    primitive.ObjectID
	SurgeryDate  *time.Time
	CurrentPhase int // 0 means the first phase of the catalog
	Notes        string
}

// ProgramView is the instructor's view: everything unlocked.
type ProgramView struct {
	Program   domain.RehabProgram `json:"program"`
	Roadmap   Roadmap             `json:"roadmap"`
	Checklist ChecklistState      `json:"checklist"`
}

type ComplexLink struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title,omitempty"`
	AccessToken string             `json:"accessToken"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Dashboard is the patient's home bundle. Building it never writes.
type Dashboard struct {
	Patient      domain.Patient       `json:"patient"`
	Program      *domain.RehabProgram `json:"program"`
	CurrentPhase *domain.RehabPhase   `json:"currentPhase"`
	Roadmap      Roadmap              `json:"roadmap"`
	Streak       Streak               `json:"streak"`
	TodayEntry   *domain.DiaryEntry   `json:"todayEntry"`
	Checklist    ChecklistState       `json:"checklist"`
	Complexes    []ComplexLink        `json:"complexes"`
}

type RoadmapService interface {
	ListPhases(ctx context.Context) ([]domain.RehabPhase, error)
	SeedPhases(ctx context.Context, phases []domain.RehabPhase) error
	// MyRoadmap is the patient's locked view.
	MyRoadmap(ctx context.Context, userID primitive.ObjectID) (*Roadmap, error)
	Dashboard(ctx context.Context, userID primitive.ObjectID) (*Dashboard, error)
	UpdateChecklist(ctx context.Context, userID primitive.ObjectID, checked []int) (*ChecklistState, error)

	CreateProgram(ctx context.Context, instructorID primitive.ObjectID, in ProgramInput) (*ProgramView, error)
	GetProgram(ctx context.Context, instructorID, patientID primitive.ObjectID) (*ProgramView, error)
	// SetPhase is the only way current_phase changes.
	SetPhase(ctx context.Context, instructorID, patientID primitive.ObjectID, phase int) (*ProgramView, error)
	SetSurgeryDate(ctx context.Context, instructorID, patientID primitive.ObjectID, date *time.Time) (*ProgramView, error)
}

type roadmapService struct {
	store  repository.Store
	access access
	now    Clock
	loc    *time.Location
	log    *logger.Logger
}

func NewRoadmapService(store repository.Store, now Clock, loc *time.Location, log *logger.Logger) RoadmapService {
	if loc == nil {
		loc = time.UTC
	}
	return &roadmapService{
		store:  store,
		access: newAccess(store),
		now:    now.orDefault(),
		loc:    loc,
		log:    log.With("service", "roadmap"),
	}
}

func (s *roadmapService) ListPhases(ctx context.Context) ([]domain.RehabPhase, error) {
	phases, err := s.store.Rehab.ListPhases(ctx)
	return phases, storeErr(err, nil)
}

// SeedPhases upserts the catalog by phase number.
func (s *roadmapService) SeedPhases(ctx context.Context, phases []domain.RehabPhase) error {
	seen := map[int]bool{}
	for _, p := range phases {
		if p.PhaseNumber <= 0 || p.Title == "" {
			return apperr.Validation("phase %d: number and title are required", p.PhaseNumber)
		}
		if p.DurationWeeks < 0 || p.WeekEnd < p.WeekStart {
			return apperr.Validation("phase %d: invalid week range", p.PhaseNumber)
		}
		if seen[p.PhaseNumber] {
			return apperr.Validation("phase %d appears twice", p.PhaseNumber)
		}
		seen[p.PhaseNumber] = true
	}
	for i := range phases {
		if err := s.store.Rehab.UpsertPhase(ctx, &phases[i]); err != nil {
			return storeErr(err, nil)
		}
	}
	s.log.Info("phase catalog seeded", "phases", len(phases))
	return nil
}

func (s *roadmapService) MyRoadmap(ctx context.Context, userID primitive.ObjectID) (*Roadmap, error) {
	patient, err := s.access.linkedPatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	phases, err := s.store.Rehab.ListPhases(ctx)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	program, err := s.optionalProgram(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	roadmap := s.roadmap(phases, program, true)
	return &roadmap, nil
}

// Dashboard fans the independent reads out concurrently within the request.
func (s *roadmapService) Dashboard(ctx context.Context, userID primitive.ObjectID) (*Dashboard, error) {
	patient, err := s.access.linkedPatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	today := now.Format(domain.DateLayout)

	var (
		phases    []domain.RehabPhase
		program   *domain.RehabProgram
		dates     []string
		todays    *domain.DiaryEntry
		complexes []domain.Complex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		phases, err = s.store.Rehab.ListPhases(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		program, err = s.optionalProgram(gctx, patient.ID)
		return err
	})
	g.Go(func() error {
		var err error
		dates, err = s.store.Diary.ListDates(gctx, patient.ID)
		return err
	})
	g.Go(func() error {
		entry, err := s.store.Diary.GetByDate(gctx, patient.ID, today)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		todays = entry
		return err
	})
	g.Go(func() error {
		var err error
		complexes, err = s.store.Complexes.ListByPatient(gctx, patient.ID)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, storeErr(err, nil)
	}

	d := &Dashboard{
		Patient:    *patient,
		Program:    program,
		Roadmap:    s.roadmap(phases, program, true),
		Streak:     CalculateStreak(dates, now),
		TodayEntry: todays,
		Checklist:  ChecklistState{Criteria: []string{}, Checked: []int{}},
		Complexes:  make([]ComplexLink, 0, len(complexes)),
	}
	if program != nil {
		if phase := findPhase(phases, program.CurrentPhase); phase != nil {
			d.CurrentPhase = phase
			d.Checklist = checklist(phase, program.CheckedCriteria)
		}
	}
	for _, c := range complexes {
		if c.IsActive {
			d.Complexes = append(d.Complexes, ComplexLink{ID: c.ID, Title: c.Title, AccessToken: c.AccessToken, CreatedAt: c.CreatedAt})
		}
	}
	return d, nil
}

// UpdateChecklist stores ticked criteria of the current phase. It never
// changes the phase itself.
func (s *roadmapService) UpdateChecklist(ctx context.Context, userID primitive.ObjectID, checked []int) (*ChecklistState, error) {
	patient, err := s.access.linkedPatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	program, err := s.store.Rehab.GetProgram(ctx, patient.ID)
	if err != nil {
		return nil, storeErr(err, ErrProgramNotFound)
	}
	phase, err := s.store.Rehab.GetPhase(ctx, program.CurrentPhase)
	if err != nil {
		return nil, storeErr(err, ErrPhaseNotFound)
	}

	normalized, err := normalizeChecked(checked, len(phase.TransitionCriteria))
	if err != nil {
		return nil, err
	}
	program.CheckedCriteria = normalized
	if err = s.store.Rehab.UpdateProgram(ctx, program); err != nil {
		return nil, storeErr(err, ErrProgramNotFound)
	}

	state := checklist(phase, program.CheckedCriteria)
	if state.ReadyToDiscuss {
		s.log.Info("patient ready to discuss phase transition", "patientId", patient.ID.Hex(), "phase", phase.PhaseNumber)
	}
	return &state, nil
}

func (s *roadmapService) CreateProgram(ctx context.Context, instructorID primitive.ObjectID, in ProgramInput) (*ProgramView, error) {
	patient, err := s.access.patient(ctx, instructorID, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, apperr.Validation("patient is in the trash")
	}
	phases, err := s.store.Rehab.ListPhases(ctx)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	if len(phases) == 0 {
		return nil, apperr.Validation("the phase catalog is empty")
	}

	current := in.CurrentPhase
	if current == 0 {
		current = phases[0].PhaseNumber
	}
	if findPhase(phases, current) == nil {
		return nil, apperr.Validation("phase %d does not exist", current)
	}

	now := s.now().UTC()
	program := &domain.RehabProgram{
		PatientID:       patient.ID,
		InstructorID:    instructorID,
		CurrentPhase:    current,
		SurgeryDate:     in.SurgeryDate,
		Notes:           in.Notes,
		CheckedCriteria: []int{},
		PhaseChangedAt:  &now,
	}
	if _, err = s.store.Rehab.CreateProgram(ctx, program); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("patient already has a rehab program")
		}
		return nil, storeErr(err, nil)
	}
	s.log.Info("rehab program created", "patientId", patient.ID.Hex(), "phase", current)
	return s.programView(program, phases), nil
}

func (s *roadmapService) GetProgram(ctx context.Context, instructorID, patientID primitive.ObjectID) (*ProgramView, error) {
	program, phases, err := s.ownedProgram(ctx, instructorID, patientID)
	if err != nil {
		return nil, err
	}
	return s.programView(program, phases), nil
}

func (s *roadmapService) SetPhase(ctx context.Context, instructorID, patientID primitive.ObjectID, phase int) (*ProgramView, error) {
	program, phases, err := s.ownedProgram(ctx, instructorID, patientID)
	if err != nil {
		return nil, err
	}
	if findPhase(phases, phase) == nil {
		return nil, apperr.Validation("phase %d does not exist", phase)
	}

	previous := program.CurrentPhase
	if phase != previous {
		now := s.now().UTC()
		program.CurrentPhase = phase
		program.CheckedCriteria = []int{}
		program.PhaseChangedAt = &now
		if err = s.store.Rehab.UpdateProgram(ctx, program); err != nil {
			return nil, storeErr(err, ErrProgramNotFound)
		}
		s.log.Info("rehab phase changed", "patientId", patientID.Hex(), "from", previous, "to", phase)
	}
	return s.programView(program, phases), nil
}

func (s *roadmapService) SetSurgeryDate(ctx context.Context, instructorID, patientID primitive.ObjectID, date *time.Time) (*ProgramView, error) {
	program, phases, err := s.ownedProgram(ctx, instructorID, patientID)
	if err != nil {
		return nil, err
	}
	program.SurgeryDate = date
	if err = s.store.Rehab.UpdateProgram(ctx, program); err != nil {
		return nil, storeErr(err, ErrProgramNotFound)
	}
	return s.programView(program, phases), nil
}

func (s *roadmapService) ownedProgram(ctx context.Context, instructorID, patientID primitive.ObjectID) (*domain.RehabProgram, []domain.RehabPhase, error) {
	if _, err := s.access.patient(ctx, instructorID, patientID); err != nil {
		return nil, nil, err
	}
	program, err := s.store.Rehab.GetProgram(ctx, patientID)
	if err != nil {
		return nil, nil, storeErr(err, ErrProgramNotFound)
	}
	phases, err := s.store.Rehab.ListPhases(ctx)
	if err != nil {
		return nil, nil, storeErr(err, nil)
	}
	return program, phases, nil
}

func (s *roadmapService) optionalProgram(ctx context.Context, patientID primitive.ObjectID) (*domain.RehabProgram, error) {
	program, err := s.store.Rehab.GetProgram(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return program, nil
}

func (s *roadmapService) programView(program *domain.RehabProgram, phases []domain.RehabPhase) *ProgramView {
	view := &ProgramView{
		Program:   *program,
		Roadmap:   s.roadmap(phases, program, false),
		Checklist: ChecklistState{Criteria: []string{}, Checked: []int{}},
	}
	if phase := findPhase(phases, program.CurrentPhase); phase != nil {
		view.Checklist = checklist(phase, program.CheckedCriteria)
	}
	return view
}

// roadmap builds the viewer's catalog. With lock set, phases after the
// current one are reduced to teasers; without a program every phase is
// locked.
func (s *roadmapService) roadmap(phases []domain.RehabPhase, program *domain.RehabProgram, lock bool) Roadmap {
	r := Roadmap{Phases: make([]RoadmapPhase, 0, len(phases))}
	if program != nil {
		r.CurrentPhase = program.CurrentPhase
	}
	for _, p := range phases {
		rp := RoadmapPhase{RehabPhase: p, Current: p.PhaseNumber == r.CurrentPhase}
		if lock && (program == nil || p.PhaseNumber > r.CurrentPhase) {
			rp.RehabPhase = teaser(p)
			rp.Locked = true
		}
		r.Phases = append(r.Phases, rp)
	}

	if program != nil && program.SurgeryDate != nil {
		weeks := ElapsedWeeks(*program.SurgeryDate, s.now())
		r.ElapsedWeeks = &weeks
		if phase := findPhase(phases, program.CurrentPhase); phase != nil {
			if pct, ok := ElapsedPercentage(weeks, phase.DurationWeeks); ok {
				r.ElapsedPercentage = &pct
			}
		}
	}
	return r
}

// ElapsedWeeks since surgery, never negative.
func ElapsedWeeks(surgery, now time.Time) float64 {
	weeks := now.Sub(surgery).Hours() / (24 * 7)
	if weeks < 0 {
		return 0
	}
	return weeks
}

// ElapsedPercentage is min(100, elapsed/duration*100). It reports false
// when the phase has no duration.
func ElapsedPercentage(elapsedWeeks float64, durationWeeks int) (float64, bool) {
	if durationWeeks <= 0 {
		return 0, false
	}
	pct := elapsedWeeks / float64(durationWeeks) * 100
	return math.Max(0, math.Min(100, pct)), true
}

func teaser(p domain.RehabPhase) domain.RehabPhase {
	return domain.RehabPhase{
		ID:            p.ID,
		PhaseNumber:   p.PhaseNumber,
		Title:         p.Title,
		Subtitle:      p.Subtitle,
		WeekStart:     p.WeekStart,
		WeekEnd:       p.WeekEnd,
		DurationWeeks: p.DurationWeeks,
		Color:         p.Color,
		Icon:          p.Icon,
	}
}

func findPhase(phases []domain.RehabPhase, number int) *domain.RehabPhase {
	for i := range phases {
		if phases[i].PhaseNumber == number {
			return &phases[i]
		}
	}
	return nil
}

// checklist reports ready only when the phase has criteria and every one
// of them is ticked.
func checklist(phase *domain.RehabPhase, checked []int) ChecklistState {
	total := len(phase.TransitionCriteria)
	state := ChecklistState{Criteria: phase.TransitionCriteria, Checked: []int{}}
	if state.Criteria == nil {
		state.Criteria = []string{}
	}
	ticked := map[int]bool{}
	for _, i := range checked {
		if i >= 0 && i < total && !ticked[i] {
			ticked[i] = true
			state.Checked = append(state.Checked, i)
		}
	}
	sort.Ints(state.Checked)
	state.ReadyToDiscuss = total > 0 && len(ticked) == total
	return state
}

func normalizeChecked(checked []int, total int) ([]int, error) {
	seen := map[int]bool{}
	out := make([]int, 0, len(checked))
	for _, i := range checked {
		if i < 0 || i >= total {
			return nil, apperr.Validation("criterion %d does not exist in the current phase", i)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out, nil
}
