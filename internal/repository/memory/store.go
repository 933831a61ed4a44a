// Package memory is an in-process implementation of every repository
// interface. It backs the "memory" database driver and the service tests.
package memory

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tables struct {
	users             map[primitive.ObjectID]domain.User
	patients          map[primitive.ObjectID]domain.Patient
	exercises         map[primitive.ObjectID]domain.Exercise
	diagnoses         map[primitive.ObjectID]domain.Diagnosis
	complexes         map[primitive.ObjectID]domain.Complex
	complexExercises  map[primitive.ObjectID]domain.ComplexExercise
	templates         map[primitive.ObjectID]domain.Template
	templateExercises map[primitive.ObjectID]domain.TemplateExercise
	diary             map[primitive.ObjectID]domain.DiaryEntry
	progress          map[primitive.ObjectID]domain.ProgressLog
	phases            map[int]domain.RehabPhase
	programs          map[primitive.ObjectID]domain.RehabProgram // keyed by patient
}

func newTables() *tables {
	return &tables{
		users:             map[primitive.ObjectID]domain.User{},
		patients:          map[primitive.ObjectID]domain.Patient{},
		exercises:         map[primitive.ObjectID]domain.Exercise{},
		diagnoses:         map[primitive.ObjectID]domain.Diagnosis{},
		complexes:         map[primitive.ObjectID]domain.Complex{},
		complexExercises:  map[primitive.ObjectID]domain.ComplexExercise{},
		templates:         map[primitive.ObjectID]domain.Template{},
		templateExercises: map[primitive.ObjectID]domain.TemplateExercise{},
		diary:             map[primitive.ObjectID]domain.DiaryEntry{},
		progress:          map[primitive.ObjectID]domain.ProgressLog{},
		phases:            map[int]domain.RehabPhase{},
		programs:          map[primitive.ObjectID]domain.RehabProgram{},
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	copyMap(c.users, t.users)
	copyMap(c.patients, t.patients)
	copyMap(c.exercises, t.exercises)
	copyMap(c.diagnoses, t.diagnoses)
	copyMap(c.complexes, t.complexes)
	copyMap(c.complexExercises, t.complexExercises)
	copyMap(c.templates, t.templates)
	copyMap(c.templateExercises, t.templateExercises)
	copyMap(c.diary, t.diary)
	copyMap(c.progress, t.progress)
	copyMap(c.phases, t.phases)
	for k, v := range t.programs {
		c.programs[k] = cloneProgram(v)
	}
	return c
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

type txKey struct{}

// Store holds all collections behind one lock. A transaction holds the write
// lock for its whole duration, so other callers never see its partial
// writes, and restores a snapshot if it fails.
type Store struct {
	mu     sync.RWMutex
	data   *tables
	faultM sync.Mutex
	faults map[string]error
}

func NewStore() *Store {
	return &Store{data: newTables(), faults: map[string]error{}}
}

// Repositories returns the repository bundle backed by this store.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Tx:        s,
		Users:     &userRepo{s},
		Patients:  &patientRepo{s},
		Exercises: &exerciseRepo{s},
		Diagnoses: &diagnosisRepo{s},
		Complexes: &complexRepo{s},
		Templates: &templateRepo{s},
		Diary:     &diaryRepo{s},
		Progress:  &progressRepo{s},
		Rehab:     &rehabRepo{s},
	}
}

// WithTransaction implements repository.Transactor. Nested calls with a
// transaction ctx join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// InjectFault makes the named operation (e.g. "complexes.Delete") fail with
// err until ClearFaults is called.
func (s *Store) InjectFault(op string, err error) {
	s.faultM.Lock()
	defer s.faultM.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.faultM.Lock()
	defer s.faultM.Unlock()
	s.faults = map[string]error{}
}

func (s *Store) fault(op string) error {
	s.faultM.Lock()
	defer s.faultM.Unlock()
	return s.faults[op]
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) read(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func cloneProgram(p domain.RehabProgram) domain.RehabProgram {
	if p.CheckedCriteria != nil {
		p.CheckedCriteria = append([]int(nil), p.CheckedCriteria...)
	}
	return p
}
