package handlers

import (
	"github.com/gin-gonic/gin"

	"crc-quiz-server/auth"
	"crc-quiz-server/cases"
	"crc-quiz-server/config"
	"crc-quiz-server/db"
	"crc-quiz-server/middleware"
	"crc-quiz-server/results"
	"crc-quiz-server/session"
)

// Env is everything the handlers need.
type Env struct {
	Catalog *cases.Catalog
	Results *results.Store
	Exams   *session.Service
	Users   *auth.Directory
	Audit   db.AuditLogger
	Auth    config.AuthConfig
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(env *Env) *gin.Engine {
	if env.Audit == nil {
		env.Audit = db.Nop{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.HTMLRender = newRenderer()

	router.GET("/healthz", Health(env))

	authMiddleware := middleware.AuthMiddleware(env.Auth.JWTSigningKey, env.Auth.Issuer)

	router.POST("/api/v1/auth/login", Login(env))

	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		apiV1.POST("/auth/logout", Logout(env.Exams))
		apiV1.GET("/me", Me())

		apiV1.GET("/cases", ListCases(env.Catalog))
		apiV1.GET("/cases/phases", ListPhases(env.Catalog))
		apiV1.POST("/ask", Ask(env.Catalog))

		apiV1.POST("/exam", StartExam(env.Exams))
		apiV1.GET("/exam", GetExam(env.Exams))
		apiV1.PUT("/exam/answers/:index", RecordAnswer(env.Exams))
		apiV1.POST("/exam/submit", SubmitExam(env.Exams, env.Audit))
		apiV1.POST("/exam/retrain", RetrainExam(env.Exams))

		apiV1.GET("/history", GetHistory(env.Results))
		apiV1.GET("/history/:run_id", GetRun(env.Results))
	}

	pages := router.Group("/history")
	pages.Use(authMiddleware)
	{
		pages.GET("", HistoryPage(env.Results))
		pages.GET("/:run_id", RunPage(env.Results))
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware)
	admin.Use(middleware.RoleCheckMiddleware([]string{auth.RoleAdmin}))
	{
		admin.POST("/cases/reload", ReloadCases(env.Catalog, env.Audit))
		admin.POST("/results/rebuild", RebuildResults(env.Results, env.Audit))
		admin.GET("/events", AdminEvents(env.Audit))
	}

	return router
}
