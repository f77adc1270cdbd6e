package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/modelerd/internal/erd"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/metadata"
	"github.com/koustreak/modelerd/internal/mermaid"
)

type failingBuilder struct{ err error }

func (f failingBuilder) Build(context.Context) (*erd.Result, error) { return nil, f.err }

func blogGenerator() *erd.Generator {
	user := &metadata.Model{Name: "User", Table: "users",
		Columns:      []metadata.Column{{Name: "id", SQLType: "bigint"}},
		Associations: []*metadata.Association{{Kind: metadata.HasMany, Name: "posts"}},
	}
	post := &metadata.Model{Name: "Post", Table: "posts",
		Columns: []metadata.Column{{Name: "id", SQLType: "bigint"}, {Name: "user_id", SQLType: "bigint"}},
		Associations: []*metadata.Association{
			{Kind: metadata.BelongsTo, Name: "user"},
			{Kind: metadata.BelongsTo, Name: "editor"},
		},
	}
	return erd.NewGenerator(metadata.StaticSource{user, post}, nil, nil)
}

func serve(t *testing.T, b Builder, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	New(b, nil).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthz(t *testing.T) {
	rr := serve(t, failingBuilder{}, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestDiagram(t *testing.T) {
	rr := serve(t, blogGenerator(), "/erd")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, mermaid.ContentType, rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get(BuildIDHeader))

	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "erDiagram\n"))
	assert.Contains(t, body, `    posts }o--|| users : "posts.user_id FK → users.id PK"`)
}

func TestResultJSON(t *testing.T) {
	rr := serve(t, blogGenerator(), "/erd.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var res struct {
		BuildID       string              `json:"build_id"`
		Relationships []*erd.Relationship `json:"relationships"`
		Tables        map[string]any      `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, rr.Header().Get(BuildIDHeader), res.BuildID)
	assert.Len(t, res.Relationships, 2)
	assert.Contains(t, res.Tables, "users")
	assert.Contains(t, res.Tables, "posts")
}

func TestDiagnostics(t *testing.T) {
	rr := serve(t, blogGenerator(), "/erd/diagnostics")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		BuildID     string `json:"build_id"`
		Diagnostics struct {
			InvalidAssociations []struct {
				Model       string `json:"model"`
				Association string `json:"association"`
			} `json:"invalid_associations"`
			RegularAssociations []string `json:"regular_associations"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.BuildID)
	require.Len(t, body.Diagnostics.InvalidAssociations, 1)
	assert.Equal(t, "Post", body.Diagnostics.InvalidAssociations[0].Model)
	assert.Equal(t, "editor", body.Diagnostics.InvalidAssociations[0].Association)
	assert.ElementsMatch(t, []string{"User#posts", "Post#user", "Post#editor"}, body.Diagnostics.RegularAssociations)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"metadata unavailable", errs.New(errs.ErrKindMetadataSourceUnavailable, "manifest missing"), http.StatusServiceUnavailable, errs.ErrKindMetadataSourceUnavailable.String()},
		{"timeout", errs.New(errs.ErrKindTimeout, "slow"), http.StatusGatewayTimeout, errs.ErrKindTimeout.String()},
		{"unknown", assert.AnError, http.StatusInternalServerError, errs.ErrKindUnknown.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/erd", "/erd.json", "/erd/diagnostics"} {
				rr := serve(t, failingBuilder{err: tt.err}, path)
				assert.Equal(t, tt.status, rr.Code, path)

				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tt.kind, body["error"])
				assert.Equal(t, tt.err.Error(), body["message"])
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: &buf})

	rr := httptest.NewRecorder()
	New(blogGenerator(), log).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request", entry["message"])
	assert.Equal(t, "/healthz", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestNotFound(t *testing.T) {
	rr := serve(t, blogGenerator(), "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
