package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clinicflow/clinicflow/internal/config"
	v1 "github.com/clinicflow/clinicflow/internal/handler/v1"
	"github.com/clinicflow/clinicflow/internal/repository/gormstore"
	"github.com/clinicflow/clinicflow/internal/service"
	"github.com/clinicflow/clinicflow/pkg/auth"
	"github.com/clinicflow/clinicflow/pkg/database"
	"github.com/clinicflow/clinicflow/pkg/lock"
	"github.com/clinicflow/clinicflow/pkg/logger"
	"github.com/clinicflow/clinicflow/pkg/metrics"
	"github.com/clinicflow/clinicflow/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	rdb, err := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		log.Fatal("tracer initialization failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	collector := metrics.NewCollector(cfg.App.Name)
	jwtManager := auth.NewJWTManager(cfg.JWT)

	queueRepo := gormstore.NewQueueRepository(db)
	visitRepo := gormstore.NewVisitRepository(db)
	patientRepo := gormstore.NewPatientRepository(db)
	staffRepo := gormstore.NewStaffRepository(db)
	appointmentRepo := gormstore.NewAppointmentRepository(db)
	auditRepo := gormstore.NewAuditRepository(db)
	txManager := gormstore.NewTxManager(db)

	locker := lock.NewRedisQueueLocker(rdb, cfg.Redis.LockTTL)

	auditSvc := service.NewAuditService(auditRepo, log)
	defer auditSvc.Shutdown()

	authSvc := service.NewAuthService(staffRepo, jwtManager, log)
	queueSvc := service.NewQueueService(
		queueRepo, visitRepo, patientRepo, staffRepo,
		txManager, locker, auditSvc, collector, log, cfg.Queue,
	)
	appointmentSvc := service.NewAppointmentService(
		appointmentRepo, patientRepo, staffRepo, visitRepo,
		txManager, auditSvc, collector, log, cfg.Scheduling,
	)

	router := v1.NewRouter(v1.RouterDeps{
		Auth:         v1.NewAuthHandler(authSvc),
		Queue:        v1.NewQueueHandler(queueSvc),
		Appointments: v1.NewAppointmentHandler(appointmentSvc),
		JWTManager:   jwtManager,
		Metrics:      collector,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
