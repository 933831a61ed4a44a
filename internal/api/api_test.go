package api

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository/memory"
	"azarean/rehab-app/internal/service"
	"azarean/rehab-app/internal/storage"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	svc    Services
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore().Repositories()
	log := logger.NewNop()
	now := service.Clock(func() time.Time { return testNow })

	svc := Services{
		Auth:        service.NewAuthService(store.Users, testSecret, time.Hour, log),
		Patients:    service.NewPatientService(store, log),
		Exercises:   service.NewExerciseService(store, storage.Disabled(), log),
		Diagnoses:   service.NewDiagnosisService(store),
		Composition: service.NewCompositionService(store, log),
		Lifecycle:   service.NewLifecycleService(store, log),
		Progress:    service.NewProgressService(store, now, time.UTC, log),
		Roadmap:     service.NewRoadmapService(store, now, time.UTC, log),
		Reporting:   service.NewReportingService(store, time.UTC, log),
	}
	router := gin.New()
	router.Use(RequestLogger(log))
	SetupRoutes(router, testSecret, svc)
	return &harness{t: t, svc: svc, router: router}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code apperr.Kind) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var body ErrorBody
	decode(t, rec, &body)
	assert.Equal(t, string(code), body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)
}

// signup registers and logs in, returning the bearer token.
func (h *harness) signup(email string, role domain.Role) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Name: "User " + email, Email: email, Password: "password123", Role: role,
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: email, Password: "password123"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	decode(h.t, rec, &resp)
	require.NotEmpty(h.t, resp.Token)
	return resp.Token
}

type idBody struct {
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

func (h *harness) createPatient(token, name string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/patients", token, PatientRequest{FullName: name})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p idBody
	decode(h.t, rec, &p)
	return p.ID
}

func (h *harness) createExercise(token, title string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/exercises", token, ExerciseRequest{Title: title})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var e idBody
	decode(h.t, rec, &e)
	return e.ID
}

func (h *harness) createComplex(token, patientID string, exerciseIDs ...string) idBody {
	h.t.Helper()
	reps := 10
	req := ComplexRequest{PatientID: patientID, Title: "Knee"}
	for _, id := range exerciseIDs {
		req.Exercises = append(req.Exercises, ExerciseEntryRequest{ExerciseID: id, Sets: 3, Reps: &reps})
	}
	rec := h.do(http.MethodPost, "/api/v1/complexes", token, req)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var c idBody
	decode(h.t, rec, &c)
	require.NotEmpty(h.t, c.AccessToken)
	return c
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	h := newHarness(t)
	instructor := h.signup("coach@example.com", domain.RoleInstructor)
	patient := h.signup("pat@example.com", domain.RolePatient)

	t.Run("duplicate email", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
			Name: "Again", Email: "coach@example.com", Password: "password123", Role: domain.RoleInstructor,
		})
		assertError(t, rec, http.StatusConflict, apperr.KindConflict)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
			Name: "X", Email: "x@example.com", Password: "password123", Role: "admin",
		})
		assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "coach@example.com", Password: "nope-nope"})
		assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/patients", "", nil)
		assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/patients", "not.a.jwt", nil)
		assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)
	})

	t.Run("patient cannot reach instructor routes", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/patients", patient, nil)
		assertError(t, rec, http.StatusForbidden, codeForbidden)
	})

	t.Run("instructor cannot reach patient routes", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/rehab/my/dashboard", instructor, nil)
		assertError(t, rec, http.StatusForbidden, codeForbidden)
	})

	t.Run("me", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/me", instructor, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var me map[string]string
		decode(t, rec, &me)
		assert.Equal(t, string(domain.RoleInstructor), me["role"])
	})
}

func TestMalformedPathIDIsNotFound(t *testing.T) {
	h := newHarness(t)
	instructor := h.signup("coach@example.com", domain.RoleInstructor)

	rec := h.do(http.MethodGet, "/api/v1/patients/not-an-id", instructor, nil)
	assertError(t, rec, http.StatusNotFound, apperr.KindNotFound)
}

func TestComplexAndProgressFlow(t *testing.T) {
	h := newHarness(t)
	instructor := h.signup("coach@example.com", domain.RoleInstructor)
	patientID := h.createPatient(instructor, "Anna")
	squat := h.createExercise(instructor, "Squat")
	bridge := h.createExercise(instructor, "Bridge")
	cx := h.createComplex(instructor, patientID, squat, bridge)

	// Public read by token, no JWT.
	rec := h.do(http.MethodGet, "/api/v1/complexes/token/"+cx.AccessToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view struct {
		Exercises []struct {
			OrderNumber int    `json:"orderNumber"`
			ExerciseID  string `json:"exerciseId"`
		} `json:"exercises"`
	}
	decode(t, rec, &view)
	require.Len(t, view.Exercises, 2)
	assert.Equal(t, 1, view.Exercises[0].OrderNumber)
	assert.Equal(t, squat, view.Exercises[0].ExerciseID)
	assert.Equal(t, 2, view.Exercises[1].OrderNumber)

	pain := 4
	rec = h.do(http.MethodPost, "/api/v1/progress", "", CompletionRequest{
		Token: cx.AccessToken, ExerciseID: squat, SessionID: "s1", Completed: true, PainLevel: &pain,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	outOfRange := 11
	rec = h.do(http.MethodPost, "/api/v1/progress", "", CompletionRequest{
		Token: cx.AccessToken, ExerciseID: squat, SessionID: "s1", Completed: true, PainLevel: &outOfRange,
	})
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = h.do(http.MethodGet, "/api/v1/progress/complex/"+cx.ID, instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress service.ComplexProgress
	decode(t, rec, &progress)
	assert.Equal(t, 1, progress.Stats.CompletedCount)
	assert.Equal(t, 2, progress.Stats.TotalExercises)
	require.NotNil(t, progress.Stats.AvgPain)
	assert.InDelta(t, 4.0, *progress.Stats.AvgPain, 1e-9)
	assert.Len(t, progress.Logs, 1)
}

func TestCreateComplex_InvalidExerciseID(t *testing.T) {
	h := newHarness(t)
	instructor := h.signup("coach@example.com", domain.RoleInstructor)
	patientID := h.createPatient(instructor, "Anna")

	rec := h.do(http.MethodPost, "/api/v1/complexes", instructor, ComplexRequest{
		PatientID: patientID,
		Exercises: []ExerciseEntryRequest{{ExerciseID: "zzz", Sets: 3}},
	})
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)
}

func TestPatientLifecycle(t *testing.T) {
	h := newHarness(t)
	instructor := h.signup("coach@example.com", domain.RoleInstructor)
	patientID := h.createPatient(instructor, "Anna")
	cx := h.createComplex(instructor, patientID, h.createExercise(instructor, "Squat"))

	rec := h.do(http.MethodDelete, "/api/v1/patients/"+patientID+"/permanent", instructor, nil)
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = h.do(http.MethodDelete, "/api/v1/patients/"+patientID, instructor, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// A trashed patient's complexes are not reachable by token.
	rec = h.do(http.MethodGet, "/api/v1/complexes/token/"+cx.AccessToken, "", nil)
	assertError(t, rec, http.StatusNotFound, apperr.KindNotFound)

	rec = h.do(http.MethodGet, "/api/v1/patients/trash", instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trash []idBody
	decode(t, rec, &trash)
	require.Len(t, trash, 1)
	assert.Equal(t, patientID, trash[0].ID)

	rec = h.do(http.MethodPatch, "/api/v1/patients/"+patientID+"/restore", instructor, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPatch, "/api/v1/patients/"+patientID+"/restore", instructor, nil)
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)
	rec = h.do(http.MethodDelete, "/api/v1/patients/"+patientID, instructor, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = h.do(http.MethodDelete, "/api/v1/patients/"+patientID+"/permanent", instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var purged service.PurgeResult
	decode(t, rec, &purged)
	assert.EqualValues(t, 1, purged.Complexes)
	assert.EqualValues(t, 1, purged.ComplexExercises)

	rec = h.do(http.MethodGet, "/api/v1/patients/"+patientID, instructor, nil)
	assertError(t, rec, http.StatusNotFound, apperr.KindNotFound)
}

func TestPatientRehabFlow(t *testing.T) {
	h := newHarness(t)
	instructor := h.signup("coach@example.com", domain.RoleInstructor)
	patient := h.signup("pat@example.com", domain.RolePatient)
	patientID := h.createPatient(instructor, "Anna")

	require.NoError(t, h.svc.Roadmap.SeedPhases(context.Background(), []domain.RehabPhase{
		{PhaseNumber: 1, Title: "Protection", WeekStart: 0, WeekEnd: 2, DurationWeeks: 2, TransitionCriteria: []string{"Extension", "Leg raise"}},
		{PhaseNumber: 2, Title: "Strength", WeekStart: 2, WeekEnd: 6, DurationWeeks: 4, RedFlags: []string{"Giving way"}},
	}))

	// Not linked yet.
	rec := h.do(http.MethodGet, "/api/v1/rehab/my/dashboard", patient, nil)
	assertError(t, rec, http.StatusNotFound, apperr.KindNotFound)

	rec = h.do(http.MethodPost, "/api/v1/patients/"+patientID+"/link-account", instructor, LinkAccountRequest{Email: "pat@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	surgery := "2024-05-01"
	rec = h.do(http.MethodPost, "/api/v1/rehab/programs", instructor, ProgramRequest{PatientID: patientID, SurgeryDate: &surgery})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/rehab/programs", instructor, ProgramRequest{PatientID: patientID})
	assertError(t, rec, http.StatusConflict, apperr.KindConflict)

	pain := 3
	rec = h.do(http.MethodPost, "/api/v1/rehab/my/diary", patient, DiaryRequest{PainLevel: &pain, Swelling: "none"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/rehab/my/diary/2024-05-15", patient, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/rehab/my/diary", patient, DiaryRequest{Date: "2024-06-01"})
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = h.do(http.MethodPut, "/api/v1/rehab/my/checklist", patient, ChecklistRequest{Checked: []int{1, 0}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var checklist service.ChecklistState
	decode(t, rec, &checklist)
	assert.True(t, checklist.ReadyToDiscuss)
	assert.Equal(t, []int{0, 1}, checklist.Checked)

	rec = h.do(http.MethodGet, "/api/v1/rehab/my/dashboard", patient, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dash service.Dashboard
	decode(t, rec, &dash)
	assert.Equal(t, 1, dash.Roadmap.CurrentPhase)
	require.Len(t, dash.Roadmap.Phases, 2)
	assert.False(t, dash.Roadmap.Phases[0].Locked)
	assert.True(t, dash.Roadmap.Phases[1].Locked)
	assert.Empty(t, dash.Roadmap.Phases[1].RedFlags)
	require.NotNil(t, dash.TodayEntry)
	assert.Nil(t, dash.TodayEntry.Swelling)
	assert.Equal(t, 1, dash.Streak.Current)
	assert.True(t, dash.Checklist.ReadyToDiscuss)
	// Two weeks since surgery against a two week phase.
	require.NotNil(t, dash.Roadmap.ElapsedPercentage)
	assert.InDelta(t, 100.0, *dash.Roadmap.ElapsedPercentage, 1e-9)

	// The percentage never advances the phase; only the instructor does.
	rec = h.do(http.MethodPatch, "/api/v1/rehab/programs/"+patientID+"/phase", instructor, PhaseRequest{Phase: 3})
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = h.do(http.MethodPatch, "/api/v1/rehab/programs/"+patientID+"/phase", instructor, PhaseRequest{Phase: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var program service.ProgramView
	decode(t, rec, &program)
	assert.Equal(t, 2, program.Program.CurrentPhase)
	assert.Empty(t, program.Checklist.Checked)
	assert.False(t, program.Roadmap.Phases[1].Locked)
}

func TestRespondError_HidesInternalMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	respondError(c, apperr.Internal(errors.New("connection refused to 10.0.0.3")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	decode(t, rec, &body)
	assert.Equal(t, string(apperr.KindInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Len(t, c.Errors, 1)
}

func TestStatusOf(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:     http.StatusBadRequest,
		apperr.KindNotFound:       http.StatusNotFound,
		apperr.KindConflict:       http.StatusConflict,
		apperr.KindUnauthorized:   http.StatusUnauthorized,
		apperr.KindCascadeFailure: http.StatusInternalServerError,
		apperr.KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusOf(kind), string(kind))
	}
}
