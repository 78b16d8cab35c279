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

// Package runtime implements the request-lifecycle coordinator: it tracks
// in-flight requests, narrows the runtime policy at each lifecycle event,
// orchestrates collectors, dispatches resource calls, and persists the
// collected snapshot at end-of-request.
package runtime

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/collector"
	"github.com/llenroc/Glimpse/pkg/config"
	"github.com/llenroc/Glimpse/pkg/metrics"
	"github.com/llenroc/Glimpse/pkg/persistence"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/resource"
	"github.com/llenroc/Glimpse/pkg/script"
	"github.com/llenroc/Glimpse/pkg/state"
	errutil "github.com/llenroc/Glimpse/pkg/util/error"
	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

const (
	// RequestIDHeader is the response header carrying the request id when
	// the header-modification policy flag is active.
	RequestIDHeader = "X-Glimpse-RequestID"
	// ClientIDCookie is the cookie identifying a client across requests.
	ClientIDCookie = "glimpseClientId"
)

const (
	stateUninitialized int32 = iota
	stateInitializing
	stateInitialized
)

// Runtime is the top-level coordinator. Construct one per process with New,
// initialize it once, and drive it through the five lifecycle entry points
// in strict order per request: BeginRequest, the optional session-access
// pair, any number of ExecuteResource calls, and EndRequest exactly once.
type Runtime struct {
	mu    sync.Mutex
	state atomic.Int32

	cfg          *config.Config
	logger       logr.Logger
	registry     *Registry
	evaluator    *policy.Evaluator
	orchestrator *collector.Orchestrator
	dispatcher   *resource.Dispatcher
	generator    *script.Generator
}

// New constructs an uninitialized Runtime.
func New() *Runtime {
	return &Runtime{registry: NewRegistry()}
}

// Initialize wires the runtime from the configuration. Initialization
// happens at most once: a second call with the identical configuration
// object is a no-op, a call with a different configuration object fails.
// The uninitialized fast-path check is lock-free; the lock is taken only for
// the init transition.
func (r *Runtime) Initialize(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errutil.Error{Code: errutil.BadConfiguration, Msg: "configuration is required"}
	}
	if r.state.Load() == stateInitialized {
		return r.checkSameConfig(cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Load() == stateInitialized {
		return r.checkSameConfig(cfg)
	}

	r.state.Store(stateInitializing)
	if err := cfg.Validate(); err != nil {
		r.state.Store(stateUninitialized)
		return errutil.Error{Code: errutil.BadConfiguration, Msg: err.Error()}
	}

	r.cfg = cfg
	r.logger = cfg.Logger
	r.evaluator = policy.NewEvaluator(cfg.Policies)
	r.orchestrator = collector.NewOrchestrator(cfg.Tabs, cfg.Displays)
	r.dispatcher = resource.NewDispatcher(cfg.Resources, cfg.DefaultResource)
	r.generator = &script.Generator{
		BaseURI:  cfg.EndpointBaseURI,
		Template: cfg.EndpointTemplate,
		Version:  cfg.Version,
		Hash:     cfg.Hash,
		Scripts:  cfg.ClientScripts,
		Encoder:  cfg.HTMLEncoder,
	}

	metrics.Register(nil)
	ctx = logutil.IntoContext(ctx, r.logger)
	r.setupCollectors(ctx)
	r.persistMetadata(ctx)

	r.state.Store(stateInitialized)
	r.logger.V(logutil.DEFAULT).Info("Diagnostics runtime initialized",
		"version", cfg.Version, "hash", cfg.Hash, "endpoint", cfg.EndpointBaseURI,
		"tabs", len(cfg.Tabs), "displays", len(cfg.Displays), "resources", len(cfg.Resources))
	return nil
}

func (r *Runtime) checkSameConfig(cfg *config.Config) error {
	if r.cfg == cfg {
		return nil
	}
	return errutil.Error{
		Code: errutil.BadConfiguration,
		Msg:  "runtime already initialized with a different configuration",
	}
}

// BeginRequest starts the lifecycle for one inbound request. When admission
// policy evaluates to Off, the degenerate unavailable handle is returned and
// no request context is created.
func (r *Runtime) BeginRequest(ctx context.Context, a adapter.Adapter) (*Handle, error) {
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errutil.Error{Code: errutil.BadRequest, Msg: "adapter is required"}
	}
	ctx = r.loggerContext(ctx)

	if pol := r.evaluatePolicy(ctx, a, policy.BeginRequest, ""); pol == policy.Off {
		return newUnavailableHandle(), nil
	}

	rc := &RequestContext{ID: uuid.New(), Adapter: a, Mode: ModeRegular}
	if r.isResourceRequest(a.RequestMetadata().Path()) {
		rc.Mode = ModeResource
	}
	handle := r.registry.Register(rc)
	// The context must not outlive a failed begin: unregister before the
	// failure leaves this frame.
	defer func() {
		if rec := recover(); rec != nil {
			handle.Dispose()
			panic(rec)
		}
	}()

	metrics.RecordRequest(rc.Mode.String())
	if rc.Mode == ModeResource {
		// Resource calls get minimal overhead; all further setup is
		// deferred to ExecuteResource.
		return handle, nil
	}

	r.orchestrator.RunTabs(ctx, policy.BeginRequest, r.collectorContext(rc))
	startTimer(rc.Store())
	return handle, nil
}

// BeginSessionAccess narrows policy and runs the event's tabs once session
// state becomes readable. No-op for non-regular handles or when policy
// reached Off.
func (r *Runtime) BeginSessionAccess(ctx context.Context, h *Handle) error {
	return r.sessionAccess(ctx, h, policy.BeginSessionAccess)
}

// EndSessionAccess narrows policy and runs the event's tabs just before
// session state is released. No-op for non-regular handles or when policy
// reached Off.
func (r *Runtime) EndSessionAccess(ctx context.Context, h *Handle) error {
	return r.sessionAccess(ctx, h, policy.EndSessionAccess)
}

func (r *Runtime) sessionAccess(ctx context.Context, h *Handle, event policy.RuntimeEvent) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	if h == nil {
		return errutil.Error{Code: errutil.BadRequest, Msg: "request handle is required"}
	}
	if !h.Available() || h.Mode() != ModeRegular {
		return nil
	}
	rc, ok := r.registry.Lookup(h.RequestID())
	if !ok {
		return nil
	}
	ctx = r.loggerContext(ctx)
	if pol := r.evaluatePolicy(ctx, rc.Adapter, event, rc.ID.String()); pol == policy.Off {
		return nil
	}
	r.orchestrator.RunTabs(ctx, event, r.collectorContext(rc))
	return nil
}

// ExecuteResource runs the named resource under the active policy and
// renders the outcome into the response. Handles not aimed at the resource
// endpoint make this a no-op. The call itself fails only on caller-contract
// violations; resolution and execution outcomes are status results.
func (r *Runtime) ExecuteResource(ctx context.Context, h *Handle, name string, parameters map[string]string) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	if h == nil {
		return errutil.Error{Code: errutil.BadRequest, Msg: "request handle is required"}
	}
	if name == "" {
		return errutil.Error{Code: errutil.BadRequest, Msg: "resource name is required"}
	}
	if parameters == nil {
		return errutil.Error{Code: errutil.BadRequest, Msg: "resource parameters are required"}
	}
	if !h.Available() || h.Mode() != ModeResource {
		return nil
	}
	rc, ok := r.registry.Lookup(h.RequestID())
	if !ok {
		return nil
	}
	ctx = r.loggerContext(ctx)

	// The default diagnostic resource and its declared dependencies derive
	// policy from the configured default instead of the accumulated value,
	// so the diagnostics UI keeps working when the page-level policy
	// degraded to Off.
	var pol policy.Policy
	if r.dispatcher.BypassesPolicy(name) {
		pol = r.cfg.DefaultRuntimePolicy
	} else {
		pol = r.evaluatePolicy(ctx, rc.Adapter, policy.ExecuteResource, rc.ID.String())
	}

	r.dispatcher.Execute(ctx, &resource.Execution{
		RequestID:  rc.ID.String(),
		Adapter:    rc.Adapter,
		Config:     r.cfg,
		Policy:     pol,
		Name:       name,
		Parameters: parameters,
	})
	return nil
}

// EndRequest completes the lifecycle: it runs the end-request tabs and all
// displays, persists the snapshot, mutates the response per the final
// narrowed policy, and always disposes the handle.
func (r *Runtime) EndRequest(ctx context.Context, h *Handle) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	if h == nil {
		return errutil.Error{Code: errutil.BadRequest, Msg: "request handle is required"}
	}
	if !h.Available() {
		return nil
	}
	defer h.Dispose()
	if h.Mode() != ModeRegular {
		return nil
	}
	rc, ok := r.registry.Lookup(h.RequestID())
	if !ok {
		return nil
	}
	ctx = r.loggerContext(ctx)

	pol := r.evaluatePolicy(ctx, rc.Adapter, policy.EndRequest, rc.ID.String())
	if pol == policy.Off {
		return nil
	}

	tc := r.collectorContext(rc)
	r.orchestrator.RunTabs(ctx, policy.EndRequest, tc)
	r.orchestrator.RunDisplays(ctx, tc)
	elapsed := stopTimer(rc.Store())
	metrics.RecordRequestDuration(elapsed)

	if pol.Has(policy.PersistResults) {
		r.persistSnapshot(ctx, rc, elapsed)
	}
	if pol.Has(policy.ModifyResponseHeaders) {
		r.writeIdentifyingHeaders(rc)
	}
	if pol.Has(policy.DisplayGlimpseClient) {
		if markup := r.generateScriptTags(ctx, rc); markup != "" {
			rc.Adapter.InjectResponseBody(markup)
		}
	}
	return nil
}

// GenerateScriptTags renders the ordered client script markup for the
// request. Idempotent per request: the second invocation returns "".
func (r *Runtime) GenerateScriptTags(ctx context.Context, h *Handle) string {
	if r.state.Load() != stateInitialized || h == nil || !h.Available() {
		return ""
	}
	rc, ok := r.registry.Lookup(h.RequestID())
	if !ok {
		return ""
	}
	return r.generateScriptTags(r.loggerContext(ctx), rc)
}

// Registry exposes the request registry; hosts use it as a disposal safety
// net during their own request teardown.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

func (r *Runtime) requireInitialized() error {
	if r.state.Load() != stateInitialized {
		return errutil.Error{Code: errutil.NotInitialized, Msg: "runtime has not been initialized"}
	}
	return nil
}

func (r *Runtime) loggerContext(ctx context.Context) context.Context {
	if _, err := logr.FromContext(ctx); err != nil {
		return logutil.IntoContext(ctx, r.logger)
	}
	return ctx
}

// evaluatePolicy narrows the request's accumulated policy for the event and
// stores the result for subsequent events of the same request.
func (r *Runtime) evaluatePolicy(ctx context.Context, a adapter.Adapter, event policy.RuntimeEvent, requestID string) policy.Policy {
	store := a.RequestStore()
	current := r.cfg.DefaultRuntimePolicy
	if p, ok := state.Read[policy.Policy](store, state.KeyRuntimePolicy); ok {
		current = p
	}
	narrowed := r.evaluator.Evaluate(ctx, event, current, policy.Request{
		RequestID: requestID,
		Signals:   a.RequestMetadata(),
	})
	store.Set(state.KeyRuntimePolicy, narrowed)
	metrics.RecordPolicyDecision(event.String(), narrowed.String())
	return narrowed
}

func (r *Runtime) isResourceRequest(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), strings.ToLower(r.cfg.EndpointBaseURI))
}

func (r *Runtime) collectorContext(rc *RequestContext) *collector.Context {
	return &collector.Context{
		RequestID:    rc.ID.String(),
		Adapter:      rc.Adapter,
		RequestStore: rc.Store(),
		Logger:       r.logger,
	}
}

// persistSnapshot saves the consolidated snapshot. Save failures are logged
// and swallowed; the request completes normally without diagnostics saved.
func (r *Runtime) persistSnapshot(ctx context.Context, rc *RequestContext, elapsed time.Duration) {
	store := rc.Store()
	meta := rc.Adapter.RequestMetadata()
	snapshot := &persistence.Snapshot{
		RequestID: rc.ID.String(),
		Metadata: map[string]string{
			"path":     meta.Path(),
			"method":   meta.Method(),
			"clientId": meta.ClientID(),
		},
		TabResults:     resultPayloads(store, state.KeyTabResults),
		DisplayResults: resultPayloads(store, state.KeyDisplayResults),
		Elapsed:        elapsed,
	}
	if err := r.cfg.Storage.Save(ctx, snapshot); err != nil {
		metrics.RecordPersistenceFailure()
		logutil.FromContext(ctx).Error(err, "Saving diagnostics snapshot failed", "requestID", rc.ID)
	}
}

// resultPayloads flattens stored collector results into the snapshot's
// name-keyed payload map. Absent keys yield an empty, non-nil map so the
// serialized snapshot always carries both result objects.
func resultPayloads(store state.Store, key string) map[string]any {
	payloads := map[string]any{}
	results, ok := state.Read[map[string]collector.Result](store, key)
	if !ok {
		return payloads
	}
	for name, result := range results {
		payloads[name] = result.Data
	}
	return payloads
}

func (r *Runtime) writeIdentifyingHeaders(rc *RequestContext) {
	a := rc.Adapter
	a.SetResponseHeader(RequestIDHeader, rc.ID.String())
	if a.RequestMetadata().Cookie(ClientIDCookie) == "" {
		clientID := a.RequestMetadata().ClientID()
		if clientID == "" {
			clientID = uuid.NewString()
		}
		a.SetCookie(ClientIDCookie, clientID)
	}
}

func (r *Runtime) generateScriptTags(ctx context.Context, rc *RequestContext) string {
	store := rc.Store()
	if rendered, _ := state.Read[bool](store, state.KeyScriptsRendered); rendered {
		return ""
	}
	store.Set(state.KeyScriptsRendered, true)
	return r.generator.Generate(rc.ID.String(), logutil.FromContext(ctx))
}

// setupCollectors runs the one-time setup pass of collectors that declare
// it. A failing setup is logged and skipped; it does not abort init.
func (r *Runtime) setupCollectors(ctx context.Context) {
	run := func(name string, c any) {
		configurable, ok := c.(collector.Configurable)
		if !ok {
			return
		}
		if err := configurable.Setup(ctx, r.logger); err != nil {
			r.logger.Error(err, "Collector setup failed", "collector", name)
		}
	}
	for _, t := range r.cfg.Tabs {
		run(t.TypedName().String(), t)
	}
	for _, d := range r.cfg.Displays {
		run(d.TypedName().String(), d)
	}
}

// persistMetadata writes the process-wide metadata record once at init:
// version, configuration hash, per-tab documentation/layout, and the
// resolved URI template of every resource.
func (r *Runtime) persistMetadata(ctx context.Context) {
	metadata := &persistence.Metadata{
		Version:   r.cfg.Version,
		Hash:      r.cfg.Hash,
		Tabs:      make(map[string]persistence.TabMetadata, len(r.cfg.Tabs)),
		Resources: make(map[string]string, len(r.cfg.Resources)),
	}
	for _, t := range r.cfg.Tabs {
		tm := persistence.TabMetadata{}
		if documented, ok := t.(collector.Documented); ok {
			tm.Documentation = documented.Documentation()
		}
		if laidOut, ok := t.(collector.LaidOut); ok {
			tm.Layout = laidOut.Layout()
		}
		metadata.Tabs[t.TypedName().String()] = tm
	}
	for _, res := range r.cfg.Resources {
		metadata.Resources[res.Name()] = script.Resolve(r.cfg.EndpointTemplate, map[string]string{
			script.TokenBase:     r.cfg.EndpointBaseURI,
			script.TokenResource: res.Name(),
			script.TokenVersion:  r.cfg.Version,
			script.TokenHash:     r.cfg.Hash,
		})
	}
	if err := r.cfg.Storage.SaveMetadata(ctx, metadata); err != nil {
		metrics.RecordPersistenceFailure()
		r.logger.Error(err, "Saving process metadata failed")
	}
}
