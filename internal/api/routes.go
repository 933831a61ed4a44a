package api

import (
	"azarean/rehab-app/internal/config"
	"azarean/rehab-app/internal/domain" // Needed for RoleMiddleware
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth        service.AuthService
	Patients    service.PatientService
	Exercises   service.ExerciseService
	Diagnoses   service.DiagnosisService
	Composition service.CompositionService
	Lifecycle   service.LifecycleService
	Progress    service.ProgressService
	Roadmap     service.RoadmapService
	Reporting   service.ReportingService
}

// NewRouter builds the engine with the middleware stack and all routes.
func NewRouter(cfg config.Config, svc Services, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		name := cfg.Tracing.ServiceName
		if name == "" {
			name = "rehab-app"
		}
		router.Use(otelgin.Middleware(name))
	}
	router.Use(RequestLogger(log))
	router.Use(CORSMiddleware(cfg.Server.CORSOrigins))

	SetupRoutes(router, cfg.JWT.Secret, svc)
	return router
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	exerciseHandler := NewExerciseHandler(svc.Exercises)
	diagnosisHandler := NewDiagnosisHandler(svc.Diagnoses)
	patientHandler := NewPatientHandler(svc.Patients, svc.Lifecycle, svc.Reporting, svc.Progress)
	complexHandler := NewComplexHandler(svc.Composition, svc.Lifecycle, svc.Progress)
	templateHandler := NewTemplateHandler(svc.Composition)
	progressHandler := NewProgressHandler(svc.Progress)
	rehabHandler := NewRehabHandler(svc.Roadmap, svc.Progress)

	authMiddleware := AuthMiddleware(jwtSecret)
	instructorOnly := RoleMiddleware(domain.RoleInstructor)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// --- Token-scoped patient access (no JWT) ---
		apiV1.GET("/complexes/token/:token", complexHandler.GetByToken)
		apiV1.POST("/progress", progressHandler.RecordCompletion)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		// --- Shared catalogs ---
		diagnosisGroup := protected.Group("/diagnoses")
		{
			diagnosisGroup.GET("", diagnosisHandler.ListDiagnoses)
			diagnosisGroup.GET("/:id", diagnosisHandler.GetDiagnosis)
			diagnosisGroup.POST("", instructorOnly, diagnosisHandler.CreateDiagnosis)
		}

		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.POST("", instructorOnly, exerciseHandler.CreateExercise)
			exerciseGroup.PUT("/:id", instructorOnly, exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:id", instructorOnly, exerciseHandler.DeleteExercise)
			exerciseGroup.POST("/:id/media/upload-url", instructorOnly, exerciseHandler.RequestMediaUpload)
			exerciseGroup.PUT("/:id/media", instructorOnly, exerciseHandler.ConfirmMedia)
		}

		// --- Instructor: patients ---
		patientGroup := protected.Group("/patients")
		patientGroup.Use(instructorOnly)
		{
			patientGroup.GET("", patientHandler.ListPatients)
			patientGroup.GET("/trash", patientHandler.ListTrash)
			patientGroup.POST("", patientHandler.CreatePatient)
			patientGroup.GET("/:id", patientHandler.GetPatient)
			patientGroup.PUT("/:id", patientHandler.UpdatePatient)
			patientGroup.POST("/:id/link-account", patientHandler.LinkAccount)
			patientGroup.GET("/:id/diary", patientHandler.GetDiary)

			patientGroup.DELETE("/:id", patientHandler.SoftDelete)
			patientGroup.PATCH("/:id/restore", patientHandler.Restore)
			patientGroup.DELETE("/:id/permanent", patientHandler.Purge)
		}

		// --- Instructor: complexes and templates ---
		complexGroup := protected.Group("/complexes")
		complexGroup.Use(instructorOnly)
		{
			complexGroup.POST("", complexHandler.CreateComplex)
			complexGroup.POST("/from-template", complexHandler.CreateFromTemplate)
			complexGroup.GET("", complexHandler.ListComplexes)
			complexGroup.GET("/:id", complexHandler.GetComplex)
			complexGroup.PUT("/:id", complexHandler.ReplaceComplex)

			complexGroup.DELETE("/:id", complexHandler.SoftDelete)
			complexGroup.PATCH("/:id/restore", complexHandler.Restore)
			complexGroup.DELETE("/:id/permanent", complexHandler.Purge)
		}
		protected.GET("/progress/complex/:id", instructorOnly, complexHandler.GetProgress)

		templateGroup := protected.Group("/templates")
		templateGroup.Use(instructorOnly)
		{
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.PUT("/:id", templateHandler.ReplaceTemplate)
			templateGroup.DELETE("/:id", templateHandler.DeleteTemplate)
		}

		// --- Rehab roadmap ---
		rehabGroup := protected.Group("/rehab")
		{
			// Patients get their locked roadmap, instructors the full catalog.
			rehabGroup.GET("/phases", rehabHandler.Phases)

			myGroup := rehabGroup.Group("/my")
			myGroup.Use(RoleMiddleware(domain.RolePatient))
			{
				myGroup.GET("/dashboard", rehabHandler.Dashboard)
				myGroup.POST("/diary", rehabHandler.RecordDiary)
				myGroup.GET("/diary", rehabHandler.DiaryHistory)
				myGroup.GET("/diary/:date", rehabHandler.DiaryDay)
				myGroup.PUT("/checklist", rehabHandler.UpdateChecklist)
			}

			programGroup := rehabGroup.Group("/programs")
			programGroup.Use(instructorOnly)
			{
				programGroup.POST("", rehabHandler.CreateProgram)
				programGroup.GET("/:patientId", rehabHandler.GetProgram)
				programGroup.PATCH("/:patientId/phase", rehabHandler.SetPhase)
				programGroup.PATCH("/:patientId/surgery-date", rehabHandler.SetSurgeryDate)
			}
		}
	}
}
