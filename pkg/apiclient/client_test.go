package apiclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080/")
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL, "trailing slash is trimmed")
}

func TestSetToken(t *testing.T) {
	client := New("http://localhost:8080")
	client.SetToken("my-token")
	assert.Equal(t, "my-token", client.token)
}

func TestDoSendsAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL)
	client.SetToken("test-token")

	err := client.get("/list", nil)
	require.NoError(t, err)
}

func TestDoDecodesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"title":"permission denied","status":403,"detail":"nope"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.get("/files/secret", nil)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.True(t, apiErr.IsDenied())
}

func TestLoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"token":"abc","username":"alice","user_id":1,"expires_in":3600}`))
	}))
	defer server.Close()

	client := New(server.URL)
	resp, err := client.Login("alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Token)
	assert.Equal(t, "abc", client.token)
}

func TestPutFileAndGetFileRoundTrip(t *testing.T) {
	var stored []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "/files/docs/a.txt", r.URL.Path)
			assert.Equal(t, "644", r.URL.Query().Get("permissions"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			stored = body
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("File written successfully"))
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(stored)
		}
	}))
	defer server.Close()

	client := New(server.URL)
	require.NoError(t, client.PutFile("docs/a.txt", []byte("hello"), 0o644))

	got, err := client.GetFile("docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestMkdirEscapesPathSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mkdir/docs/sub%20dir", r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL)
	require.NoError(t, client.Mkdir("docs/sub dir", 0o755))
}
