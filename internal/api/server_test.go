package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/metrics"
	"github.com/kaziapp/taggraph/internal/registry"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store/badgerdb"
	"github.com/kaziapp/taggraph/internal/validation"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api     humatest.TestAPI
	metrics *metrics.Metrics
}

// testEnvelope mirrors response.Envelope with raw data for typed decoding.
type testEnvelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
	Details map[string]any  `json:"details"`
}

// setupTestServer creates a server over an in-memory badger store with the
// project and client object types registered.
func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := badgerdb.Open(badgerdb.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg, err := registry.New(st, registry.Options{}, logger)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	require.NoError(t, reg.EnsureTypes(context.Background(), []string{"project", "client"}))

	index, err := search.NewTagIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	sseManager := sse.NewManager(logger)
	m := metrics.New(sseManager.ClientCount)

	v := validation.New()
	tags := service.NewTagService(st, v, sseManager, index, logger)
	assignments := service.NewAssignmentService(st, reg, tags, sseManager, logger)
	objects := service.NewObjectService(st, reg, v, sseManager, logger)

	services := &Services{
		Tags:        tags,
		Assignments: assignments,
		Objects:     objects,
		Types:       service.NewTypeService(reg, sseManager, logger),
		Queries:     service.NewQueryService(tags, assignments, objects, reg),
		Search:      index,
	}

	s := NewServer(st, services, sseManager, m, opts, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		metrics: m,
	}
}

// decodeEnvelope decodes the envelope and, when out is non-nil, its data.
func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder, out any) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (ts *testServer) createTag(t *testing.T, name string) *domain.Tag {
	t.Helper()
	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": name})
	require.Equal(t, 201, resp.Code, resp.Body.String())
	var tag domain.Tag
	decodeEnvelope(t, resp, &tag)
	return &tag
}

func (ts *testServer) createObject(t *testing.T, typeRef, name string) *domain.Object {
	t.Helper()
	resp := ts.api.Post("/api/v1/objects", map[string]any{
		"type_id":  typeRef,
		"owner_id": "user-1",
		"name":     name,
	})
	require.Equal(t, 201, resp.Code, resp.Body.String())
	var obj domain.Object
	decodeEnvelope(t, resp, &obj)
	return &obj
}
