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

package runtime

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/collector"
	"github.com/llenroc/Glimpse/pkg/config"
	"github.com/llenroc/Glimpse/pkg/persistence"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/resource"
	"github.com/llenroc/Glimpse/pkg/script"
	"github.com/llenroc/Glimpse/pkg/state"
	errutil "github.com/llenroc/Glimpse/pkg/util/error"
	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

// --- Mocks ---

type mockMetadata struct {
	path    string
	method  string
	cookies map[string]string
}

func (m *mockMetadata) Path() string   { return m.path }
func (m *mockMetadata) Method() string { return m.method }

func (m *mockMetadata) Cookie(name string) string { return m.cookies[name] }
func (m *mockMetadata) ClientID() string          { return m.cookies[ClientIDCookie] }

type mockAdapter struct {
	metadata       *mockMetadata
	store          state.Store
	headers        map[string]string
	cookies        map[string]string
	injected       string
	status         int
	responseBody   []byte
	headersBlocked bool
}

var _ adapter.Adapter = (*mockAdapter)(nil)

func newMockAdapter() *mockAdapter {
	return newMockAdapterForPath("/app")
}

func newMockAdapterForPath(path string) *mockAdapter {
	return &mockAdapter{
		metadata: &mockMetadata{path: path, method: http.MethodGet, cookies: map[string]string{}},
		store:    state.NewMemoryStore(),
		headers:  map[string]string{},
		cookies:  map[string]string{},
	}
}

func (m *mockAdapter) RequestMetadata() adapter.RequestMetadata { return m.metadata }
func (m *mockAdapter) RuntimeContext() any                      { return nil }
func (m *mockAdapter) RequestStore() state.Store                { return m.store }

func (m *mockAdapter) SetResponseHeader(name, value string) {
	if !m.headersBlocked {
		m.headers[name] = value
	}
}

func (m *mockAdapter) SetCookie(name, value string) {
	m.cookies[name] = value
}

func (m *mockAdapter) InjectResponseBody(content string) {
	m.injected += content
}

func (m *mockAdapter) PreventResponseHeaderWrites() {
	m.headersBlocked = true
}

func (m *mockAdapter) WriteResponse(status int, _ string, body []byte) error {
	m.status = status
	m.responseBody = body
	return nil
}

type mockRule struct {
	appliesOn policy.RuntimeEvent
	vote      policy.Policy
}

func (m *mockRule) Name() string                   { return "mock-rule" }
func (m *mockRule) AppliesOn() policy.RuntimeEvent { return m.appliesOn }

func (m *mockRule) Evaluate(context.Context, policy.Request) (policy.Policy, error) {
	return m.vote, nil
}

type mockTab struct {
	executeOn policy.RuntimeEvent
}

func (m *mockTab) TypedName() collector.TypedName {
	return collector.TypedName{Type: "tab", Name: "Mock"}
}

func (m *mockTab) ExecuteOn() policy.RuntimeEvent { return m.executeOn }

func (m *mockTab) Collect(_ context.Context, _ *collector.Context) (any, error) {
	return "collected", nil
}

func testConfig(opts ...func(*config.Config)) *config.Config {
	cfg := &config.Config{
		DefaultRuntimePolicy: policy.On,
		Resources: []resource.Resource{
			resource.ClientScriptResource{},
			resource.SnapshotResource{},
		},
		ClientScripts: []script.ClientScript{
			script.DynamicScript{Resource: resource.ClientScriptResourceName, Ordering: 1},
		},
		Storage: persistence.NewMemoryStore(0),
		Logger:  logutil.NewTestLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func initializedRuntime(t *testing.T, opts ...func(*config.Config)) (*Runtime, *config.Config) {
	t.Helper()
	rt := New()
	cfg := testConfig(opts...)
	require.NoError(t, rt.Initialize(context.Background(), cfg))
	return rt, cfg
}

// --- Initialization ---

func TestRuntime_Initialize(t *testing.T) {
	t.Parallel()
	rt := New()
	cfg := testConfig()

	require.NoError(t, rt.Initialize(context.Background(), cfg))
	require.NoError(t, rt.Initialize(context.Background(), cfg), "re-initializing with the identical configuration is a no-op")

	err := rt.Initialize(context.Background(), testConfig())
	require.Error(t, err)
	var e errutil.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errutil.BadConfiguration, e.Code)
}

func TestRuntime_InitializeNilConfig(t *testing.T) {
	t.Parallel()
	err := New().Initialize(context.Background(), nil)
	var e errutil.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errutil.BadConfiguration, e.Code)
}

func TestRuntime_LifecycleRequiresInitialization(t *testing.T) {
	t.Parallel()
	rt := New()
	ctx := context.Background()

	_, err := rt.BeginRequest(ctx, newMockAdapter())
	var e errutil.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errutil.NotInitialized, e.Code)

	assert.Error(t, rt.EndRequest(ctx, newUnavailableHandle()))
	assert.Error(t, rt.BeginSessionAccess(ctx, newUnavailableHandle()))
	assert.Empty(t, rt.GenerateScriptTags(ctx, newUnavailableHandle()))
}

func TestRuntime_InitializePersistsMetadata(t *testing.T) {
	t.Parallel()
	store := persistence.NewMemoryStore(0)
	_, cfg := initializedRuntime(t, func(c *config.Config) { c.Storage = store })

	meta := store.LoadMetadata()
	require.NotNil(t, meta)
	assert.Equal(t, cfg.Version, meta.Version)
	assert.Equal(t, cfg.Hash, meta.Hash)
	assert.Contains(t, meta.Resources, resource.ClientScriptResourceName)
	assert.Contains(t, meta.Resources[resource.ClientScriptResourceName], "n="+resource.ClientScriptResourceName)
}

// --- Begin request ---

func TestRuntime_BeginRequestAdmission(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Policies = []policy.Rule{&mockRule{appliesOn: policy.BeginRequest, vote: policy.Off}}
	})

	h, err := rt.BeginRequest(context.Background(), newMockAdapter())
	require.NoError(t, err)
	assert.False(t, h.Available(), "a request denied at admission gets the unavailable handle")
	assert.Zero(t, rt.Registry().Count())
}

func TestRuntime_BeginRequestModes(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	regular, err := rt.BeginRequest(context.Background(), newMockAdapterForPath("/orders"))
	require.NoError(t, err)
	assert.Equal(t, ModeRegular, regular.Mode())
	defer regular.Dispose()

	res, err := rt.BeginRequest(context.Background(), newMockAdapterForPath(config.DefaultEndpointBaseURI))
	require.NoError(t, err)
	assert.Equal(t, ModeResource, res.Mode())
	defer res.Dispose()

	assert.Equal(t, 2, rt.Registry().Count())
}

func TestRuntime_BeginRequestRunsTabs(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Tabs = []collector.Tab{&mockTab{executeOn: policy.BeginRequest}}
	})

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	results, ok := state.Read[map[string]collector.Result](a.store, state.KeyTabResults)
	require.True(t, ok)
	assert.Equal(t, "collected", results["mock"].Data)

	_, ok = state.Read[*ExecutionTimer](a.store, state.KeyRequestTimer)
	assert.True(t, ok, "begin-request starts the execution timer")
}

// --- Session access ---

func TestRuntime_SessionAccess(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Tabs = []collector.Tab{&mockTab{executeOn: policy.BeginSessionAccess | policy.EndSessionAccess}}
	})

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	require.NoError(t, rt.BeginSessionAccess(context.Background(), h))
	results, ok := state.Read[map[string]collector.Result](a.store, state.KeyTabResults)
	require.True(t, ok)
	assert.Equal(t, "collected", results["mock"].Data)

	require.NoError(t, rt.EndSessionAccess(context.Background(), h))
}

func TestRuntime_SessionAccessIgnoresResourceRequests(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Tabs = []collector.Tab{&mockTab{executeOn: policy.BeginSessionAccess}}
	})

	a := newMockAdapterForPath(config.DefaultEndpointBaseURI)
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	require.NoError(t, rt.BeginSessionAccess(context.Background(), h))
	_, ok := state.Read[map[string]collector.Result](a.store, state.KeyTabResults)
	assert.False(t, ok, "session access is a no-op for resource requests")
}

// --- Resource execution ---

func TestRuntime_ExecuteResource(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	a := newMockAdapterForPath(config.DefaultEndpointBaseURI)
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	require.NoError(t, rt.ExecuteResource(context.Background(), h, resource.ClientScriptResourceName, map[string]string{}))
	assert.Equal(t, http.StatusOK, a.status)
	assert.Contains(t, string(a.responseBody), "glimpse_snapshot", "the client bootstrap references its data resource")
}

func TestRuntime_ExecuteResourceContract(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	a := newMockAdapterForPath(config.DefaultEndpointBaseURI)
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	var e errutil.Error
	require.ErrorAs(t, rt.ExecuteResource(context.Background(), nil, "x", map[string]string{}), &e)
	assert.Equal(t, errutil.BadRequest, e.Code)

	require.ErrorAs(t, rt.ExecuteResource(context.Background(), h, "", map[string]string{}), &e)
	assert.Equal(t, errutil.BadRequest, e.Code)

	require.ErrorAs(t, rt.ExecuteResource(context.Background(), h, "x", nil), &e)
	assert.Equal(t, errutil.BadRequest, e.Code)
}

func TestRuntime_ExecuteResourceIgnoresRegularRequests(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	require.NoError(t, rt.ExecuteResource(context.Background(), h, resource.ClientScriptResourceName, map[string]string{}))
	assert.Zero(t, a.status, "resource execution is a no-op for regular requests")
}

func TestRuntime_DefaultResourceBypassesNarrowedPolicy(t *testing.T) {
	t.Parallel()
	// The rule turns diagnostics off for resource execution, but the default
	// resource and its dependencies derive policy from the configured default
	// so the client panel keeps working.
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Policies = []policy.Rule{&mockRule{appliesOn: policy.ExecuteResource, vote: policy.Off}}
		c.Resources = append(c.Resources, plainResource{name: "other"})
	})

	a := newMockAdapterForPath(config.DefaultEndpointBaseURI)
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	require.NoError(t, rt.ExecuteResource(context.Background(), h, resource.ClientScriptResourceName, map[string]string{}))
	assert.Equal(t, http.StatusOK, a.status)

	blocked := newMockAdapterForPath(config.DefaultEndpointBaseURI)
	hb, err := rt.BeginRequest(context.Background(), blocked)
	require.NoError(t, err)
	defer hb.Dispose()

	require.NoError(t, rt.ExecuteResource(context.Background(), hb, "other", map[string]string{}))
	assert.Equal(t, http.StatusForbidden, blocked.status, "non-default resources honor the narrowed policy")
}

type plainResource struct{ name string }

func (r plainResource) Name() string                     { return r.name }
func (r plainResource) Parameters() []resource.Parameter { return nil }

func (r plainResource) Execute(context.Context, *resource.Context) resource.Result {
	return &resource.ContentResult{Content: []byte("ok")}
}

// --- End request ---

func TestRuntime_EndRequestPersistsSnapshot(t *testing.T) {
	t.Parallel()
	store := persistence.NewMemoryStore(0)
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Storage = store
		c.Tabs = []collector.Tab{&mockTab{executeOn: policy.EndRequest}}
	})

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	id := h.RequestID()

	require.NoError(t, rt.EndRequest(context.Background(), h))

	snapshot, err := store.Load(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), snapshot.RequestID)
	wantMetadata := map[string]string{"path": "/app", "method": http.MethodGet, "clientId": ""}
	if diff := cmp.Diff(wantMetadata, snapshot.Metadata); diff != "" {
		t.Errorf("unexpected snapshot metadata (-want +got):\n%s", diff)
	}
	require.NotNil(t, snapshot.TabResults)
	require.NotNil(t, snapshot.DisplayResults)
	assert.Equal(t, "collected", snapshot.TabResults["mock"])
	assert.GreaterOrEqual(t, snapshot.Elapsed.Nanoseconds(), int64(0))

	assert.False(t, h.Available(), "end-request disposes the handle")
	assert.Zero(t, rt.Registry().Count())
}

func TestRuntime_EndRequestDecoratesResponse(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	id := h.RequestID()

	require.NoError(t, rt.EndRequest(context.Background(), h))

	assert.Equal(t, id.String(), a.headers[RequestIDHeader])
	assert.NotEmpty(t, a.cookies[ClientIDCookie], "a missing client id cookie is assigned at end-request")
	assert.Contains(t, a.injected, "<script", "the client script markup is injected")
	assert.Contains(t, a.injected, "requestId="+id.String())
}

func TestRuntime_EndRequestKeepsExistingClientID(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	a := newMockAdapter()
	a.metadata.cookies[ClientIDCookie] = "client-7"
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)

	require.NoError(t, rt.EndRequest(context.Background(), h))
	_, reissued := a.cookies[ClientIDCookie]
	assert.False(t, reissued, "an existing client id cookie is not reissued")
}

func TestRuntime_EndRequestHonorsNarrowedPolicy(t *testing.T) {
	t.Parallel()
	store := persistence.NewMemoryStore(0)
	rt, _ := initializedRuntime(t, func(c *config.Config) {
		c.Storage = store
		c.Policies = []policy.Rule{&mockRule{
			appliesOn: policy.EndRequest,
			vote:      policy.ModifyResponseHeaders,
		}}
	})

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	id := h.RequestID()

	require.NoError(t, rt.EndRequest(context.Background(), h))

	_, err = store.Load(context.Background(), id.String())
	assert.ErrorIs(t, err, persistence.ErrNotFound, "persistence requires the PersistResults flag")
	assert.Empty(t, a.injected, "script injection requires the DisplayGlimpseClient flag")
	assert.Equal(t, id.String(), a.headers[RequestIDHeader], "header modification stays allowed")
}

func TestRuntime_EndRequestIsIdempotent(t *testing.T) {
	t.Parallel()
	store := persistence.NewMemoryStore(0)
	rt, _ := initializedRuntime(t, func(c *config.Config) { c.Storage = store })

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)

	require.NoError(t, rt.EndRequest(context.Background(), h))
	require.NoError(t, rt.EndRequest(context.Background(), h), "a second end-request is a silent no-op")
	assert.Equal(t, 1, store.Len())
}

// --- Script generation ---

func TestRuntime_GenerateScriptTagsIsIdempotentPerRequest(t *testing.T) {
	t.Parallel()
	rt, _ := initializedRuntime(t)

	a := newMockAdapter()
	h, err := rt.BeginRequest(context.Background(), a)
	require.NoError(t, err)
	defer h.Dispose()

	first := rt.GenerateScriptTags(context.Background(), h)
	assert.Contains(t, first, "<script")
	assert.Empty(t, rt.GenerateScriptTags(context.Background(), h), "repeated generation for one request yields nothing")
}
