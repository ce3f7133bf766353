// cmd/server is a minimal host demonstrating Runtime wiring: it deploys a
// sample flow, exposes a webhook delivery endpoint and a websocket
// lifecycle-event stream, and shuts down gracefully on SIGINT/SIGTERM. It
// is explicitly not a REST API surface (spec §1 excludes that); the
// graceful-shutdown/flag-parsing idiom is grounded on the teacher's own
// cmd/server/main.go, stripped of its REST/auth layer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/flowcore/flowcore/internal/config"
	"github.com/flowcore/flowcore/internal/domain"
	"github.com/flowcore/flowcore/internal/executor"
	"github.com/flowcore/flowcore/internal/nodes"
	"github.com/flowcore/flowcore/internal/registry"
	"github.com/flowcore/flowcore/internal/runtime"
	"github.com/flowcore/flowcore/internal/secrets"
	"github.com/flowcore/flowcore/internal/storage"
	"github.com/flowcore/flowcore/pkg/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.Log)

	reg := registry.New()
	if err := nodes.RegisterBuiltins(reg, os.Getenv("OPENAI_API_KEY")); err != nil {
		log.Fatal().Err(err).Msg("failed to register builtin nodes")
	}

	flowStore, execStore, closeStorage := buildStorage(cfg.Storage)
	defer closeStorage()

	rt := runtime.New(runtime.Config{
		Registry:         reg,
		FlowStorage:      flowStore,
		ExecutionStorage: execStore,
		Secrets:          secrets.NewMemoryProvider(),
		ExecutorOptions:  executor.Options{MaxConcurrentNodes: cfg.Executor.MaxConcurrentNodes},
		TickInterval:     cfg.Scheduler.TickInterval(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.Start(ctx)
	defer rt.Stop()

	deploySampleFlow(ctx, rt)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/", webhookHandler(rt))
	mux.HandleFunc("/events", eventsHandler(rt))

	srv := &http.Server{Addr: portAddr(cfg.Server.Port), Handler: mux}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("demo host listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}
}

func portAddr(port int) string {
	if port <= 0 {
		port = 8080
	}
	return ":" + strconv.Itoa(port)
}

func buildStorage(cfg config.StorageConfig) (domain.FlowStorage, domain.ExecutionStorage, func()) {
	switch cfg.Driver {
	case "postgres":
		store := storage.NewBunStore(cfg.DSN)
		if err := store.InitSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize postgres schema")
		}
		return store, storage.BunExecutionStorage{Store: store}, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close postgres store")
			}
		}
	default:
		return storage.NewMemoryFlowStorage(), storage.NewMemoryExecutionStorage(), func() {}
	}
}

// deploySampleFlow wires pkg/workflow's LinearPipeline preset as a
// concrete demonstration of Runtime.Deploy's validate-then-activate path.
func deploySampleFlow(ctx context.Context, rt *runtime.Runtime) {
	flow, err := workflow.LinearPipeline("sample-pipeline", "Sample Pipeline", "1.0.0", []workflow.Step{
		{ID: "fetch", NodeType: "static_data", Name: "Seed", Params: map[string]any{"value": map[string]any{"n": 1}}},
		{ID: "transform", NodeType: "field_map", Name: "Project", Params: map[string]any{
			"mapping": map[string]any{"count": "n"},
			"data":    "{{ $nodes.fetch.out }}",
		}},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build sample flow")
		return
	}
	if err := rt.Deploy(ctx, flow); err != nil {
		log.Error().Err(err).Msg("failed to deploy sample flow")
	}
}

func webhookHandler(rt *runtime.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/webhooks")
		if secret := os.Getenv("WEBHOOK_JWT_SECRET"); secret != "" {
			if err := verifyWebhookToken(r, secret); err != nil {
				http.Error(w, "invalid webhook token", http.StatusUnauthorized)
				return
			}
		}
		var body any
		_ = json.NewDecoder(r.Body).Decode(&body)

		exec, ok, err := rt.DeliverWebhook(r.Context(), path, r.Method, body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "no trigger registered for this path", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(exec)
	}
}

// verifyWebhookToken validates an HS256 JWT passed in the Authorization
// header, demonstrating golang-jwt/jwt/v5 usage for signed webhook
// delivery — an ambient-security concern the core itself stays silent on
// (§1 excludes auth/authz) but a host wiring webhooks in production needs.
func verifyWebhookToken(r *http.Request, secret string) error {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return errors.New("missing bearer token")
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	return err
}

// eventsHandler upgrades to a websocket and streams every lifecycle event
// the runtime publishes, demonstrating gorilla/websocket as the transport
// for the §6 event stream.
func eventsHandler(rt *runtime.Runtime) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		sub := rt.Events()
		defer sub.Close()

		for event := range sub.Events() {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
