package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/config"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/tx"
	appHTTP "github.com/cmlabs-hris/workforce-engine/internal/handler/http"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/database"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/workforce-engine/internal/repository/memory"
	"github.com/cmlabs-hris/workforce-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/workforce-engine/internal/repository/postgresql/migrations"
	attendanceService "github.com/cmlabs-hris/workforce-engine/internal/service/attendance"
	eventService "github.com/cmlabs-hris/workforce-engine/internal/service/event"
	leaveService "github.com/cmlabs-hris/workforce-engine/internal/service/leave"
	payrollService "github.com/cmlabs-hris/workforce-engine/internal/service/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/service/workforce"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	db           tx.Transactor
	attendance   attendance.AttendanceRepository
	leave        leave.LeaveRepository
	entitlements leave.EntitlementRepository
	payroll      payroll.PayrollRepository
	events       event.Repository
	close        func()
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.App.StorageDriver == config.StorageDriverMemory {
		slog.Warn("Using in-memory storage, data is lost on restart")
		return &repositories{
			db:           memory.NewTransactor(),
			attendance:   memory.NewAttendanceRepository(),
			leave:        memory.NewLeaveRepository(),
			entitlements: memory.NewEntitlementRepository(),
			payroll:      memory.NewPayrollRepository(),
			events:       memory.NewEventRepository(),
			close:        func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("error applying migrations: %w", err)
	}

	return &repositories{
		db:           postgresql.NewTransactor(db),
		attendance:   postgresql.NewAttendanceRepository(db),
		leave:        postgresql.NewLeaveRepository(db),
		entitlements: postgresql.NewEntitlementRepository(db),
		payroll:      postgresql.NewPayrollRepository(db),
		events:       postgresql.NewEventRepository(db),
		close:        db.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "workforce-engine"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	accessTTL, _ := time.ParseDuration(cfg.JWT.AccessExpiration)
	sseTTL, _ := time.ParseDuration(cfg.JWT.SSEExpiration)
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, accessTTL, sseTTL)

	clk := clock.New()
	hub := sse.NewHub()

	attendanceSvc := attendanceService.NewAttendanceService(repos.db, repos.attendance, clk, cfg.AttendancePolicy())
	leaveSvc := leaveService.NewLeaveService(repos.db, repos.leave, repos.entitlements, clk, cfg.LeavePolicy())
	payrollSvc := payrollService.NewPayrollService(repos.db, repos.payroll, attendanceSvc, clk, cfg.PayrollPolicy())

	dispatcher := eventService.NewDispatcher().
		Register("sse", eventService.NewHubSink(hub)).
		Register("store", eventService.NewStoreSink(repos.events)).
		Register("log", eventService.NewLogSink(logger))

	engine := workforce.NewService(attendanceSvc, leaveSvc, payrollSvc, dispatcher, clk)

	router := appHTTP.NewRouter(JWTService, cfg.App.CORSAllowedOrigins, logger, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(engine),
		Leave:      appHTTP.NewLeaveHandler(engine, clk),
		Payroll:    appHTTP.NewPayrollHandler(engine),
		Events:     appHTTP.NewEventHandler(hub, repos.events, JWTService),
	})

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(engine, clk, cfg.Location(), cfg.Cron.FinalizeInterval, cfg.Cron.FinalizeAfter).RegisterJobs(scheduler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// streams end when the process is signalled
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.App.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
