package memory

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type diaryRepo struct{ s *Store }

func (r *diaryRepo) Upsert(ctx context.Context, entry *domain.DiaryEntry) (*domain.DiaryEntry, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("diary.Upsert"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	stored := *entry
	stored.UpdatedAt = now
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = now
	for id, existing := range r.s.data.diary {
		if existing.PatientID == entry.PatientID && existing.EntryDate == entry.EntryDate {
			stored.ID = id
			stored.CreatedAt = existing.CreatedAt
			break
		}
	}
	r.s.data.diary[stored.ID] = stored
	return &stored, nil
}

func (r *diaryRepo) GetByDate(ctx context.Context, patientID primitive.ObjectID, date string) (*domain.DiaryEntry, error) {
	defer r.s.read(ctx)()
	for _, e := range r.s.data.diary {
		if e.PatientID == patientID && e.EntryDate == date {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *diaryRepo) ListByPatient(ctx context.Context, patientID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error) {
	defer r.s.read(ctx)()
	out := make([]domain.DiaryEntry, 0)
	for _, e := range r.s.data.diary {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	// YYYY-MM-DD sorts lexically.
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate > out[j].EntryDate })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *diaryRepo) ListDates(ctx context.Context, patientID primitive.ObjectID) ([]string, error) {
	entries, err := r.ListByPatient(ctx, patientID, 0)
	if err != nil {
		return nil, err
	}
	dates := make([]string, len(entries))
	for i, e := range entries {
		dates[i] = e.EntryDate
	}
	return dates, nil
}

func (r *diaryRepo) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("diary.DeleteByPatient"); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range r.s.data.diary {
		if e.PatientID == patientID {
			delete(r.s.data.diary, id)
			n++
		}
	}
	return n, nil
}

type progressRepo struct{ s *Store }

func (r *progressRepo) Create(ctx context.Context, log *domain.ProgressLog) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("progress.Create"); err != nil {
		return primitive.NilObjectID, err
	}
	log.ID = primitive.NewObjectID()
	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now().UTC()
	}
	r.s.data.progress[log.ID] = *log
	return log.ID, nil
}

func (r *progressRepo) ListByComplex(ctx context.Context, complexID primitive.ObjectID) ([]domain.ProgressLog, error) {
	return r.ListByComplexIDs(ctx, []primitive.ObjectID{complexID})
}

func (r *progressRepo) ListByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) ([]domain.ProgressLog, error) {
	defer r.s.read(ctx)()
	set := idSet(complexIDs)
	out := make([]domain.ProgressLog, 0)
	for _, l := range r.s.data.progress {
		if set[l.ComplexID] {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (r *progressRepo) DeleteByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) (int64, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("progress.DeleteByComplexIDs"); err != nil {
		return 0, err
	}
	set := idSet(complexIDs)
	var n int64
	for id, l := range r.s.data.progress {
		if set[l.ComplexID] {
			delete(r.s.data.progress, id)
			n++
		}
	}
	return n, nil
}

type rehabRepo struct{ s *Store }

func (r *rehabRepo) ListPhases(ctx context.Context) ([]domain.RehabPhase, error) {
	defer r.s.read(ctx)()
	out := make([]domain.RehabPhase, 0, len(r.s.data.phases))
	for _, p := range r.s.data.phases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out, nil
}

func (r *rehabRepo) GetPhase(ctx context.Context, number int) (*domain.RehabPhase, error) {
	defer r.s.read(ctx)()
	p, ok := r.s.data.phases[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *rehabRepo) UpsertPhase(ctx context.Context, phase *domain.RehabPhase) error {
	defer r.s.write(ctx)()
	if existing, ok := r.s.data.phases[phase.PhaseNumber]; ok {
		phase.ID = existing.ID
	} else {
		phase.ID = primitive.NewObjectID()
	}
	r.s.data.phases[phase.PhaseNumber] = *phase
	return nil
}

func (r *rehabRepo) CreateProgram(ctx context.Context, program *domain.RehabProgram) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	if _, ok := r.s.data.programs[program.PatientID]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	program.ID = primitive.NewObjectID()
	program.CreatedAt = time.Now().UTC()
	program.UpdatedAt = program.CreatedAt
	r.s.data.programs[program.PatientID] = cloneProgram(*program)
	return program.ID, nil
}

func (r *rehabRepo) GetProgram(ctx context.Context, patientID primitive.ObjectID) (*domain.RehabProgram, error) {
	defer r.s.read(ctx)()
	p, ok := r.s.data.programs[patientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = cloneProgram(p)
	return &p, nil
}

func (r *rehabRepo) UpdateProgram(ctx context.Context, program *domain.RehabProgram) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("rehab.UpdateProgram"); err != nil {
		return err
	}
	existing, ok := r.s.data.programs[program.PatientID]
	if !ok {
		return repository.ErrNotFound
	}
	program.ID = existing.ID
	program.CreatedAt = existing.CreatedAt
	program.UpdatedAt = time.Now().UTC()
	r.s.data.programs[program.PatientID] = cloneProgram(*program)
	return nil
}

func (r *rehabRepo) DeleteProgram(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("rehab.DeleteProgram"); err != nil {
		return 0, err
	}
	if _, ok := r.s.data.programs[patientID]; !ok {
		return 0, nil
	}
	delete(r.s.data.programs, patientID)
	return 1, nil
}
