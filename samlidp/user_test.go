package samlidp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAPI(t *testing.T) {
	server, _ := testServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	put := func(id, body string) int {
		req, err := http.NewRequest("PUT", ts.URL+"/users/"+id, strings.NewReader(body))
		require.NoError(t, err)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, 204, put("alice@example.com", `{"password": "letmein", "roles": ["USER"]}`))

	resp, err := ts.Client().Get(ts.URL + "/users/alice@example.com")
	require.NoError(t, err)
	body := readBody(t, resp)
	resp.Body.Close()
	assert.Contains(t, body, `"alice@example.com"`)
	// Neither the password nor its hash leaves the store.
	assert.NotContains(t, body, "letmein")
	assert.NotContains(t, body, "hashed_password")

	identity, err := server.Verify("alice@example.com", "letmein")
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, identity.Roles)

	// Updating without a password keeps the existing credential.
	assert.Equal(t, 204, put("alice@example.com", `{"roles": ["USER", "AUDIT"]}`))
	identity, err = server.Verify("alice@example.com", "letmein")
	require.NoError(t, err)
	assert.Equal(t, []string{"USER", "AUDIT"}, identity.Roles)

	resp, err = ts.Client().Get(ts.URL + "/users/")
	require.NoError(t, err)
	listing := readBody(t, resp)
	resp.Body.Close()
	assert.Contains(t, listing, "alice@example.com")
	assert.Contains(t, listing, "test@example.com")

	req, err := http.NewRequest("DELETE", ts.URL+"/users/alice@example.com", nil)
	require.NoError(t, err)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = ts.Client().Get(ts.URL + "/users/alice@example.com")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestMemoryStore(t *testing.T) {
	store := &MemoryStore{}

	type record struct {
		Value string `json:"value"`
	}

	require.NoError(t, store.Put("/users/b", record{Value: "two"}))
	require.NoError(t, store.Put("/users/a", record{Value: "one"}))

	got := record{}
	require.NoError(t, store.Get("/users/a", &got))
	assert.Equal(t, "one", got.Value)

	keys, err := store.List("/users/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Delete("/users/a"))
	assert.ErrorIs(t, store.Get("/users/a", &got), ErrNotFound)
}
