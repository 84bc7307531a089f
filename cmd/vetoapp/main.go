package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vetoapp23/vetoapp/internal/accounting"
	"github.com/vetoapp23/vetoapp/internal/app"
	"github.com/vetoapp23/vetoapp/internal/clinic"
	"github.com/vetoapp23/vetoapp/internal/protocol"
	"github.com/vetoapp23/vetoapp/internal/stock"
	"github.com/vetoapp23/vetoapp/internal/treatment"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	protocolSvc, err := protocol.NewService(ctx, store, logger)
	if err != nil {
		logger.Error("init protocol service", slog.Any("error", err))
		os.Exit(1)
	}
	stockSvc, err := stock.NewService(ctx, store, logger)
	if err != nil {
		logger.Error("init stock service", slog.Any("error", err))
		os.Exit(1)
	}
	treatmentSvc, err := treatment.NewService(ctx, store, logger, protocolSvc, stockSvc)
	if err != nil {
		logger.Error("init treatment service", slog.Any("error", err))
		os.Exit(1)
	}
	clinicSvc, err := clinic.NewService(ctx, store, logger, stockSvc)
	if err != nil {
		logger.Error("init clinic service", slog.Any("error", err))
		os.Exit(1)
	}
	accountingSvc, err := accounting.NewService(ctx, store, logger, clinicSvc, stockSvc, treatmentSvc)
	if err != nil {
		logger.Error("init accounting service", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		ProtocolHandler:      protocol.NewHandler(logger, protocolSvc),
		StockHandler:         stock.NewHandler(logger, stockSvc),
		VaccinationHandler:   treatment.NewHandler(logger, treatmentSvc, treatment.KindVaccination),
		AntiparasiticHandler: treatment.NewHandler(logger, treatmentSvc, treatment.KindAntiparasitic),
		ClinicHandler:        clinic.NewHandler(logger, clinicSvc),
		AccountingHandler:    accounting.NewHandler(logger, accountingSvc),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}
