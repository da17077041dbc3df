package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rebanho/backend/internal/api"
	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/config"
	"rebanho/backend/internal/database"
	"rebanho/backend/internal/digest"
	"rebanho/backend/internal/dispatch"
	"rebanho/backend/internal/messaging"
	"rebanho/backend/internal/report"
)

func main() {
	_ = godotenv.Load(".env", "backend/.env")

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer migrateCancel()
	if err := database.EnsureSchema(migrateCtx, pool, cfg.SchemaPath); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.AppTimezone))
		location = time.UTC
	}
	localNow := func() time.Time { return time.Now().In(location) }

	probe := database.NewSchemaProbe(pool)
	renderer := chart.NewPNG()
	builder := report.NewBuilder(pool, probe, renderer, logger).WithNow(localNow)
	composer := digest.NewComposer(builder, renderer, logger).WithNow(localNow)

	var mailer messaging.EmailSender
	if m := messaging.NewMailer(cfg); m != nil {
		mailer = m
	} else {
		logger.Warn("SMTP not configured, email channel disabled")
	}
	whatsapp := messaging.NewWhatsAppSender(cfg)
	if whatsapp == nil {
		logger.Warn("WhatsApp provider not configured, whatsapp channel disabled")
	}

	recipients := dispatch.NewRecipientRepo(pool)
	orchestrator := dispatch.NewOrchestrator(recipients, builder, composer, mailer, whatsapp, logger).
		WithNow(localNow).
		WithBaseURL(cfg.BaseURL)

	srv := api.NewServer(orchestrator, recipients, logger, cfg.JWTSecret, cfg.CORSAllowedOrigins)
	logger.Info("rebanho backend running", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, srv.Mux()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
