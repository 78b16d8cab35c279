/*
Copyright 2025 The Glimpse Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// glimpse-demo is a small host application showing the diagnostics runtime
// embedded into a chi-routed HTTP server. It wires the built-in tabs, the
// client and snapshot resources, and a storage backend selected by flag.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/llenroc/Glimpse/pkg/collector"
	"github.com/llenroc/Glimpse/pkg/config"
	"github.com/llenroc/Glimpse/pkg/middleware"
	"github.com/llenroc/Glimpse/pkg/persistence"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/resource"
	"github.com/llenroc/Glimpse/pkg/runtime"
	"github.com/llenroc/Glimpse/pkg/script"
	"github.com/llenroc/Glimpse/pkg/tabs"
	"github.com/llenroc/Glimpse/pkg/telemetry"
	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
	"github.com/llenroc/Glimpse/version"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		verbosity  = flag.Int("v", logutil.DEFAULT, "log verbosity")
		configFile = flag.String("config", "", "optional YAML settings file")
		storage    = flag.String("storage", "memory", "snapshot storage backend: memory or redis")
		redisAddr  = flag.String("redis-addr", "localhost:6379", "redis address when -storage=redis")
	)
	flag.Parse()

	logger := logutil.NewLogger(*verbosity)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, "glimpse-demo", logger)
	if err != nil {
		logger.Error(err, "Tracing setup failed")
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	cfg := &config.Config{
		DefaultRuntimePolicy: policy.On,
		Tabs:                 []collector.Tab{tabs.RequestTab{}, tabs.NewEnvironmentTab()},
		Displays:             []collector.Display{tabs.TimelineDisplay{}},
		Policies:             []policy.Rule{localOnlyRule{}},
		Resources: []resource.Resource{
			resource.ClientScriptResource{},
			resource.SnapshotResource{},
		},
		ClientScripts: []script.ClientScript{
			script.DynamicScript{Resource: resource.ClientScriptResourceName, Ordering: 100},
		},
		Logger: logger,
	}

	if *configFile != "" {
		settings, err := config.LoadFile(*configFile)
		if err != nil {
			logger.Error(err, "Loading settings file failed", "path", *configFile)
			os.Exit(1)
		}
		if err := settings.Apply(cfg); err != nil {
			logger.Error(err, "Applying settings file failed", "path", *configFile)
			os.Exit(1)
		}
	}

	if err := wireStorage(cfg, *storage, *redisAddr); err != nil {
		logger.Error(err, "Storage setup failed", "backend", *storage)
		os.Exit(1)
	}

	rt := runtime.New()
	if err := rt.Initialize(ctx, cfg); err != nil {
		logger.Error(err, "Runtime initialization failed")
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Middleware(rt))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>glimpse demo</title></head>`+
			`<body><h1>Hello from the glimpse demo</h1></body></html>`)
	})

	banner(*addr)
	server := &http.Server{Addr: *addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Demo server listening", "addr", *addr, "version", version.Version)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(err, "Server failed")
		os.Exit(1)
	}
}

func wireStorage(cfg *config.Config, backend, redisAddr string) error {
	switch backend {
	case "memory", "":
		cfg.Storage = persistence.NewMemoryStore(0)
		return nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		store, err := persistence.NewRedisStore(client)
		if err != nil {
			return err
		}
		cfg.Storage = store
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", backend)
	}
}

// localOnlyRule keeps full diagnostics for loopback clients and disables the
// client panel for everyone else.
type localOnlyRule struct{}

func (localOnlyRule) Name() string {
	return "local-only"
}

func (localOnlyRule) AppliesOn() policy.RuntimeEvent {
	return policy.BeginRequest
}

func (localOnlyRule) Evaluate(_ context.Context, req policy.Request) (policy.Policy, error) {
	// Demo heuristic only; production rules inspect the remote address.
	if req.Signals.Cookie("glimpseDisabled") == "true" {
		return policy.Off, nil
	}
	return policy.On, nil
}

func banner(addr string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("glimpse demo")
	fmt.Printf("  app:       http://localhost%s/\n", addr)
	fmt.Printf("  endpoint:  http://localhost%s%s\n", addr, config.DefaultEndpointBaseURI)
	fmt.Printf("  metrics:   http://localhost%s/metrics\n", addr)
}
