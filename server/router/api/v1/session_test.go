package v1

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t, nil, t.TempDir())

	for _, route := range [][2]string{
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodPost, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/sessions/abc12345"},
		{http.MethodPatch, "/api/v1/sessions/abc12345"},
		{http.MethodDelete, "/api/v1/sessions/abc12345"},
		{http.MethodGet, "/api/v1/sessions/abc12345/messages"},
	} {
		resp := env.request(t, route[0], route[1], "", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route[0], route[1])
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, t.TempDir())
	token := env.token(t, "user-1")

	// Create.
	resp := env.request(t, http.MethodPost, "/api/v1/sessions", token, `{"title": "Rules questions"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[sessionResponse](t, resp)
	require.Len(t, created.UID, 8)
	require.Equal(t, "Rules questions", created.Title)
	require.NotZero(t, created.CreatedTs)

	// Get.
	resp = env.request(t, http.MethodGet, "/api/v1/sessions/"+created.UID, token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeJSON[sessionResponse](t, resp)
	require.Equal(t, created.UID, got.UID)

	// List.
	resp = env.request(t, http.MethodGet, "/api/v1/sessions", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeJSON[[]sessionResponse](t, resp)
	require.Len(t, list, 1)

	// Rename.
	resp = env.request(t, http.MethodPatch, "/api/v1/sessions/"+created.UID, token, `{"title": "Fireball"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renamed := decodeJSON[sessionResponse](t, resp)
	require.Equal(t, "Fireball", renamed.Title)

	// Delete.
	resp = env.request(t, http.MethodDelete, "/api/v1/sessions/"+created.UID, token, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/v1/sessions/"+created.UID, token, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionDefaultTitle(t *testing.T) {
	env := newTestEnv(t, nil, t.TempDir())
	token := env.token(t, "user-1")

	resp := env.request(t, http.MethodPost, "/api/v1/sessions", token, `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[sessionResponse](t, resp)
	require.Equal(t, "New Chat", created.Title)
}

func TestSessionRenameRequiresTitle(t *testing.T) {
	env := newTestEnv(t, nil, t.TempDir())
	token := env.token(t, "user-1")

	resp := env.request(t, http.MethodPost, "/api/v1/sessions", token, `{}`)
	created := decodeJSON[sessionResponse](t, resp)

	resp = env.request(t, http.MethodPatch, "/api/v1/sessions/"+created.UID, token, `{"title": ""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionOwnerIsolation(t *testing.T) {
	env := newTestEnv(t, nil, t.TempDir())
	owner := env.token(t, "user-1")
	other := env.token(t, "user-2")

	resp := env.request(t, http.MethodPost, "/api/v1/sessions", owner, `{"title": "Mine"}`)
	created := decodeJSON[sessionResponse](t, resp)
	path := "/api/v1/sessions/" + created.UID

	// Every access by another user answers as if the session did not exist.
	for _, probe := range []struct {
		method, path, body string
	}{
		{http.MethodGet, path, ""},
		{http.MethodPatch, path, `{"title": "Stolen"}`},
		{http.MethodDelete, path, ""},
		{http.MethodGet, path + "/messages", ""},
	} {
		resp := env.request(t, probe.method, probe.path, other, probe.body)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", probe.method, probe.path)
	}

	// The owner still sees it, and the other user's list stays empty.
	resp = env.request(t, http.MethodGet, path, owner, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.request(t, http.MethodGet, "/api/v1/sessions", other, "")
	list := decodeJSON[[]sessionResponse](t, resp)
	require.Empty(t, list)
}

func TestListSessionMessages(t *testing.T) {
	env := newTestEnv(t, nil, t.TempDir())
	token := env.token(t, "user-1")

	resp := env.request(t, http.MethodPost, "/api/v1/sessions", token, `{}`)
	created := decodeJSON[sessionResponse](t, resp)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/messages", created.UID), token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decodeJSON[[]messageResponse](t, resp)
	require.Empty(t, msgs)
}
