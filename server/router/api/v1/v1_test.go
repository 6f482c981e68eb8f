package v1

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/arcanaworks/grimoire/plugin/vectorstore"
	"github.com/arcanaworks/grimoire/plugin/websearch"
	"github.com/arcanaworks/grimoire/rag"
	"github.com/arcanaworks/grimoire/server/auth"
	"github.com/arcanaworks/grimoire/server/profile"
	"github.com/arcanaworks/grimoire/server/runner/ingest"
	"github.com/arcanaworks/grimoire/store"
	"github.com/arcanaworks/grimoire/store/db/sqlite"
)

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	key    *rsa.PrivateKey
}

// scriptedModel returns canned responses: the first call answers the intent
// check, later calls stream the final answer.
type scriptedModel struct {
	gateDecision string
	answer       string
	calls        int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	content := m.answer
	if m.calls == 1 {
		content = m.gateDecision
	} else {
		opts := llms.CallOptions{}
		for _, opt := range options {
			opt(&opts)
		}
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(content)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestEnv(t *testing.T, model llms.Model, corpusDir string) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	st := store.New(db)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	authenticator := auth.New("http://keycloak.test", "grimoire", auth.WithPublicKey(&key.PublicKey))

	index, err := vectorstore.New(t.TempDir(), testEmbedding)
	require.NoError(t, err)

	semantic := rag.NewSemanticSource(index, 5)
	web := rag.NewWebSource(stubWeb{}, 1)
	var pipeline *rag.Pipeline
	if model != nil {
		pipeline = rag.NewPipeline(
			rag.NewIntentGate(model),
			rag.NewEngine(model, rag.NewAggregator(semantic, web, time.Second)),
			st,
		)
	}

	api := NewAPIV1Service(
		&profile.Profile{Mode: "dev", AdminRole: "grimoire-admin"},
		st,
		authenticator,
		pipeline,
		ingest.NewRunner(index, corpusDir),
	)
	e := echo.New()
	api.RegisterRoutes(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, store: st, key: key}
}

type stubWeb struct{}

func (stubWeb) SearchAndScrape(context.Context, string, int) ([]websearch.Result, error) {
	return nil, nil
}

func (env *testEnv) token(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	roleList := make([]any, 0, len(roles))
	for _, r := range roles {
		roleList = append(roleList, r)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":                "http://keycloak.test/realms/grimoire",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"sub":                userID,
		"preferred_username": userID,
		"realm_access":       map[string]any{"roles": roleList},
	})
	signed, err := token.SignedString(env.key)
	require.NoError(t, err)
	return signed
}

func (env *testEnv) request(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
