package qbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kheopsian/Seederr/pkg/engine"
)

var testPaths = engine.TierPaths{
	CacheRoot:  "/cache/torrents",
	MasterRoot: "/master/torrents",
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		URL:      srv.URL,
		Username: "admin",
		Password: "secret",
	}, testPaths)
	require.NoError(t, err)
	return client, srv
}

func TestLogin(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/auth/login", r.URL.Path)
		require.NoError(t, r.ParseForm())
		if r.Form.Get("username") == "admin" && r.Form.Get("password") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "abc123"})
			_, _ = w.Write([]byte("Ok."))
			return
		}
		_, _ = w.Write([]byte("Fails."))
	}))

	assert.NoError(t, client.Login(context.Background()))
}

func TestLoginBadCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Fails."))
	}))

	err := client.Login(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "Fails.", apiErr.Message)
}

func TestListPayloads(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/torrents/info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"hash": "aaaa000000000000000000000000000000000000",
				"name": "hot",
				"category": "linux",
				"size": 1024,
				"num_complete": 3,
				"num_incomplete": 50,
				"upspeed": 2048.0,
				"uploaded": 9999,
				"save_path": "/cache/torrents/linux",
				"content_path": "/cache/torrents/linux/hot",
				"added_on": 1700000000
			},
			{
				"hash": "bbbb000000000000000000000000000000000000",
				"name": "cold",
				"size": 4096,
				"save_path": "/master/torrents",
				"content_path": "/master/torrents/cold"
			},
			{
				"hash": "",
				"name": "malformed",
				"save_path": "/master/torrents",
				"content_path": "/master/torrents/malformed"
			}
		]`))
	}))

	payloads, err := client.ListPayloads(context.Background())
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	hot := payloads[0]
	assert.Equal(t, "aaaa000000000000000000000000000000000000", hot.Hash)
	assert.Equal(t, 3, hot.Seeders)
	assert.Equal(t, 50, hot.Leechers)
	assert.Equal(t, 2048.0, hot.UploadRate)
	assert.Equal(t, engine.TierCache, hot.Tier)

	cold := payloads[1]
	assert.Equal(t, engine.TierMaster, cold.Tier)
}

func TestListPayloadsReloginOnExpiredSession(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			_, _ = w.Write([]byte("Ok."))
		case "/api/v2/torrents/info":
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(`[]`))
		}
	}))

	payloads, err := client.ListPayloads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payloads)
	assert.Equal(t, 2, calls)
}

func TestSetSaveLocation(t *testing.T) {
	var gotHash, gotLocation string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/torrents/setLocation", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotHash = r.Form.Get("hashes")
		gotLocation = r.Form.Get("location")
	}))

	err := client.SetSaveLocation(context.Background(), "cafe", "/master/torrents/linux")
	require.NoError(t, err)
	assert.Equal(t, "cafe", gotHash)
	assert.Equal(t, "/master/torrents/linux", gotLocation)
}

func TestSetSaveLocationFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("unable to set location"))
	}))

	err := client.SetSaveLocation(context.Background(), "cafe", "/nowhere")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestPauseResume(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	}))

	ctx := context.Background()
	require.NoError(t, client.Pause(ctx, "cafe"))
	require.NoError(t, client.Resume(ctx, "cafe"))
	assert.Equal(t, []string{"/api/v2/torrents/pause", "/api/v2/torrents/resume"}, paths)
}
