// Package main запускает HTTP-сервер приёма заказов на этикетки.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/flexylabel-order/internal/config"
	"github.com/mmeshcher/flexylabel-order/internal/dispatch"
	"github.com/mmeshcher/flexylabel-order/internal/document"
	"github.com/mmeshcher/flexylabel-order/internal/handler"
	"github.com/mmeshcher/flexylabel-order/internal/mailer"
	"github.com/mmeshcher/flexylabel-order/internal/metrics"
	"github.com/mmeshcher/flexylabel-order/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	transport := mailer.NewSMTPTransport(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		TLS:      mailer.TLSMode(cfg.SMTPTLS),
		Timeout:  cfg.SMTPTimeout,
	}, logger)

	m := metrics.New()

	svc := service.NewService(
		document.NewRenderer(cfg.CompanyName, nil),
		dispatch.NewDispatcher(transport, cfg.CompanyName),
		service.Options{
			ShopAddress:    cfg.ShopAddress,
			NotifyCustomer: cfg.NotifyCustomer,
			RequireDesign:  cfg.RequireDesign,
			LeadDays:       cfg.DeliveryLeadDays,
		},
		logger,
		m,
	)

	h := handler.NewHandler(svc, logger, m, cfg.MaxUploadBytes)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting order intake server",
			"addr", cfg.RunAddress,
			"smtp", fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
			"shop", cfg.ShopAddress,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
