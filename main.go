package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	agentsx "github.com/naruemon-s/glowdesk/agent/agents"
	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	"github.com/naruemon-s/glowdesk/agent/dispatch"
	llmx "github.com/naruemon-s/glowdesk/agent/llm"
	statex "github.com/naruemon-s/glowdesk/agent/state"
	"github.com/naruemon-s/glowdesk/db"
	configx "github.com/naruemon-s/glowdesk/pkg/config"
	_ "github.com/naruemon-s/glowdesk/pkg/logger/autoload"
	openrouterx "github.com/naruemon-s/glowdesk/pkg/openrouter"
	"github.com/naruemon-s/glowdesk/pkg/retrieval"
	"github.com/naruemon-s/glowdesk/pkg/storage"
	serverx "github.com/naruemon-s/glowdesk/server"
)

type AppConfig struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	SessionStore    string        `envconfig:"SESSION_STORE" split_words:"true" default:"memory"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" split_words:"true" default:"24h"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("GLOWDESK")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	dbCfg := configx.MustNew[db.Config]("DATABASE")
	store, err := db.Open(*dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("init database schema")
	}

	blobs := storage.MustNew(*configx.MustNew[storage.Config]("STORAGE"))
	retriever := retrieval.MustNew(*configx.MustNew[retrieval.Config]("RETRIEVAL"))

	vision, err := openrouterx.NewVisionClient(llmCfg.OpenRouterFor(contractx.AgentTypePortfolio))
	if err != nil {
		log.Fatal().Err(err).Msg("create vision client")
	}

	registry, err := agentsx.NewRegistry(ctx, *llmCfg, agentsx.Deps{
		BookingStore: store,
		Retriever:    retriever,
		Merchants:    store,
		Vision:       vision,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build agent registry")
	}

	sessions := newSessionStore(appCfg)

	dispatcher, err := dispatch.New(sessions, registry, dispatch.WithTranscripts(store))
	if err != nil {
		log.Fatal().Err(err).Msg("build dispatcher")
	}

	srv := &http.Server{
		Addr:              appCfg.Addr,
		Handler:           serverx.New(dispatcher, sessions, store, blobs, retriever).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", appCfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newSessionStore(cfg *AppConfig) statex.Store {
	switch cfg.SessionStore {
	case "redis":
		redisCfg := configx.MustNew[statex.UpstashRedisConfig]("REDIS")
		sessions, err := statex.NewUpstashRedisStore(*redisCfg, statex.WithTTL(cfg.SessionTTL))
		if err != nil {
			log.Fatal().Err(err).Msg("create redis session store")
		}
		return sessions
	default:
		return statex.NewMemoryStore(statex.WithMemoryTTL(cfg.SessionTTL))
	}
}
