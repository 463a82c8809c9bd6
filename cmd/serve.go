package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"crc-quiz-server/auth"
	"crc-quiz-server/cases"
	"crc-quiz-server/config"
	"crc-quiz-server/db"
	"crc-quiz-server/handlers"
	"crc-quiz-server/models"
	"crc-quiz-server/results"
	"crc-quiz-server/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Backend != config.SessionRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	rs, err := session.NewRedisStore(ctx, cfg.Session.RedisURL, cfg.Session.TTL)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Exam sessions stored in redis (ttl %s)", cfg.Session.TTL)
	return rs, func() { rs.Close() }, nil
}

func openAudit(ctx context.Context, cfg *config.Config) (db.AuditLogger, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, audit events only go to the log")
		return db.Nop{}, func() {}, nil
	}
	pool, err := db.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.CreateSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("error creating database schema: %w", err)
	}
	return db.NewPostgres(pool), pool.Close, nil
}

// watchCases reloads the workbook on a fixed interval until ctx ends.
func watchCases(ctx context.Context, catalog *cases.Catalog, audit db.AuditLogger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Println("Running scheduled case reload...")
			n, err := catalog.Reload()
			if err != nil {
				log.Printf("Error during scheduled case reload: %v", err)
				audit.LogError(ctx, models.ErrorLog{Source: "cases", ErrorMessage: err.Error()})
				continue
			}
			audit.LogAdminEvent(ctx, "system", db.ActionCasesReloaded, "", fmt.Sprintf("%d rows", n))
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := cases.NewCatalog(cfg.Data.CasesPath)
	if err != nil {
		return err
	}
	users, err := auth.LoadUsers(cfg.Data.UsersPath)
	if err != nil {
		return err
	}
	sessions, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()
	audit, closeAudit, err := openAudit(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	store := results.NewStore(cfg.Data.ResultsDir)
	router := handlers.NewRouter(&handlers.Env{
		Catalog: catalog,
		Results: store,
		Exams: &session.Service{
			Catalog:      catalog,
			Sessions:     sessions,
			Results:      store,
			DefaultCount: cfg.Exam.DefaultCount,
			RetrainCount: cfg.Exam.RetrainCount,
		},
		Users: users,
		Audit: audit,
		Auth:  cfg.Auth,
	})

	if cfg.Data.ReloadInterval > 0 {
		go watchCases(ctx, catalog, audit, cfg.Data.ReloadInterval)
	}

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("CRC quiz server starting on %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server startup error: %w", err)
	}
	log.Println("Server exited gracefully.")
	return nil
}
