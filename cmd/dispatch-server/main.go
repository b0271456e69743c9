package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dispatch/db"
	"dispatch/db/migrations"
	"dispatch/internal/config"
	"dispatch/internal/engine"
	"dispatch/internal/handlers"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	if cfg.PostgresConn == "" {
		logger.Fatal("POSTGRES_CONN env variable is not set")
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		logger.Fatal("cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Run(dbConn.DB); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	store := db.NewStorage(dbConn)
	eng := engine.New(store, logger)

	sweeper := engine.NewSweeper(eng, logger)
	if err := sweeper.Start(cfg.SweepInterval); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	h := handlers.NewHandler(eng)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// directory (policy + roles the engine consults)
		r.Post("/companies/new", h.RegisterCompanyHandler)
		r.Post("/members/new", h.RegisterMemberHandler)
		// calls
		r.Post("/calls/new", h.CreateCallHandler)
		r.Get("/calls", h.GetCallsHandler)
		r.Get("/calls/{callId}", h.GetCallHandler)
		r.Get("/calls/{callId}/events", h.GetCallEventsHandler)
		r.Put("/calls/{callId}/cancel", h.CancelCallHandler)
		r.Post("/calls/{callId}/claim", h.ClaimCallHandler)
		r.Post("/calls/{callId}/share", h.ShareCallHandler)
		// bids
		r.Post("/bids/new", h.CreateBidHandler)
		r.Get("/bids/{callId}/list", h.GetBidsForCallHandler)
		r.Put("/bids/{bidId}/accept", h.AcceptBidHandler)
		r.Put("/bids/{bidId}/reject", h.RejectBidHandler)
		// marketplaces
		r.Post("/marketplaces/new", h.CreateMarketplaceHandler)
		r.Get("/marketplaces", h.GetMarketplacesHandler)
		r.Put("/marketplaces/{marketplaceId}/join", h.JoinMarketplaceHandler)
		r.Put("/marketplaces/{marketplaceId}/leave", h.LeaveMarketplaceHandler)
		r.Get("/marketplaces/{marketplaceId}/stats", h.GetMarketplaceStatsHandler)
		// stats + on-call
		r.Get("/stats", h.GetTenantStatsHandler)
		r.Get("/oncall", h.GetOnCallHandler)
		r.Put("/oncall", h.SetOnCallHandler)
		r.Delete("/oncall", h.ClearOnCallHandler)
	})

	logger.Info("starting server", zap.String("addr", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
