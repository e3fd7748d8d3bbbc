// Package server wires the service together: store, event bus, rule
// catalog, oracle client, conversation engine and HTTP router.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"brokerbot/internal/api"
	"brokerbot/internal/config"
	"brokerbot/internal/conversation"
	"brokerbot/internal/eligibility"
	"brokerbot/internal/events"
	"brokerbot/internal/nlu"
	"brokerbot/internal/notify"
	"brokerbot/internal/rules"
	"brokerbot/internal/store"
)

type Server struct {
	httpServer *http.Server
	bus        *events.Bus
	catalog    *rules.Catalog
	pg         *store.Postgres // nil with the in-memory store

	watchCancel context.CancelFunc
}

func New(cfg *config.Config) (*Server, error) {
	var st store.Store
	var pg *store.Postgres
	if cfg.DatabaseURL != "" {
		var err error
		pg, err = store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		st = pg
		zap.L().Info("using postgres store")
	} else {
		st = store.NewMemory()
		zap.L().Info("using in-memory store")
	}

	catalog, err := rules.NewCatalog(cfg.RuleCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading rule catalog: %w", err)
	}
	zap.L().Info("rule catalog loaded", zap.String("version", catalog.Version()))

	// The audit subscriber persists every event; the bus guarantees the
	// conversation never waits for it.
	bus := events.NewBus()
	bus.Subscribe("audit", func(ev events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.AppendEvent(ctx, ev); err != nil {
			zap.L().Error("persisting event failed",
				zap.String("event_type", ev.Type), zap.Error(err))
		}
	})

	var notifier notify.Notifier = notify.Noop{}
	if cfg.SMSConfigured() {
		notifier = notify.NewSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken,
			cfg.TwilioPhoneNumber, cfg.OperatorPhone)
		zap.L().Info("escalation sms enabled")
	}

	oracle := nlu.NewClient(cfg.OracleURL, cfg.OracleTimeout)
	engine := conversation.NewEngine(st, oracle, eligibility.New(catalog), bus, notifier,
		conversation.Options{
			ClarificationLimit: cfg.ClarificationLimit,
			OracleRetries:      cfg.OracleRetries,
		})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	go catalog.Watch(watchCtx, cfg.RuleReloadInterval)

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           api.NewRouter(engine, st, catalog, bus, upgrader),
			ReadHeaderTimeout: 10 * time.Second,
		},
		bus:         bus,
		catalog:     catalog,
		pg:          pg,
		watchCancel: watchCancel,
	}, nil
}

func (s *Server) Start() error {
	zap.L().Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.watchCancel()
	err := s.httpServer.Shutdown(ctx)
	s.bus.Close()
	if s.pg != nil {
		if cerr := s.pg.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
