package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebrew/ttsgate/pkg/config"
	"github.com/voicebrew/ttsgate/pkg/store"
	"github.com/voicebrew/ttsgate/pkg/synth"
)

const testToken = "test-token"

type stubSynth struct {
	calls int
	err   error
}

func (s *stubSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("fake-mp3"), nil
}

type testEnv struct {
	srv   *httptest.Server
	store *store.Store
	synth *stubSynth
	cfg   *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Token = testToken
	cfg.FileLocation = t.TempDir()
	cfg.RatelimitTextLength = 500
	cfg.RatelimitBypassIDs = []int64{999}

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	syn := &stubSynth{}
	orch := synth.New(st, syn, synth.Options{
		CharLimit:   int64(cfg.RatelimitTextLength),
		Window:      time.Duration(cfg.RatelimitExpireSeconds) * time.Second,
		BypassIDs:   cfg.BypassSet(),
		StorageRoot: cfg.FileLocation,
	})

	srv := httptest.NewServer(NewServer(cfg, st, orch).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, synth: syn, cfg: cfg}
}

func (e *testEnv) get(t *testing.T, path string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest("GET", e.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && json.Valid(data) {
		require.NoError(t, json.Unmarshal(data, &body))
	}
	return resp, body
}

func authed(extra map[string]string) map[string]string {
	h := map[string]string{"Authorization": testToken}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func TestIndex(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/", nil)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "Success", body["name"])
	assert.Equal(t, "API is online, have some tea.", body["description"])
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/create", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing Authorization in headers", body["description"])

	resp, body = e.get(t, "/create", map[string]string{"Authorization": "wrong"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid token for Authorization", body["description"])
}

func TestCreate_Validation(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, "/create", authed(nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.get(t, "/create", authed(map[string]string{"user_id": "abc", "text": "hi"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "'user_id' must be int value", body["description"])

	resp, _ = e.get(t, "/create", authed(map[string]string{"user_id": "100"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreate_MissHitAndServe(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/create", authed(map[string]string{"user_id": "100", "text": "Hello world"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(200), body["code"])
	assert.Equal(t, false, body["cache"])
	audioID := body["response"].(string)
	require.NotEmpty(t, audioID)
	assert.Equal(t, 1, e.synth.calls)

	// Case-insensitive repeat is a cache hit with the same id.
	resp, body = e.get(t, "/create", authed(map[string]string{"user_id": "100", "text": "HELLO WORLD"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cache"])
	assert.Equal(t, audioID, body["response"])
	assert.Equal(t, 1, e.synth.calls)

	// The rendered file is served back.
	audioResp, err := http.Get(e.srv.URL + "/audios/" + audioID + ".mp3")
	require.NoError(t, err)
	defer audioResp.Body.Close()
	require.Equal(t, http.StatusOK, audioResp.StatusCode)
	data, err := io.ReadAll(audioResp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3"), data)
}

func TestAudios_NotFound(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, "/audios/missing.mp3", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.get(t, "/audios/..%2Fsecret.mp3", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreate_RateLimited(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.RatelimitTextLength = 500

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}

	resp, _ := e.get(t, "/create", authed(map[string]string{"user_id": "7", "text": string(long)}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := e.get(t, "/create", authed(map[string]string{"user_id": "7", "text": "more"}))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body["description"], "500/500")

	// Bypass user keeps going regardless of usage.
	resp, _ = e.get(t, "/create", authed(map[string]string{"user_id": "999", "text": string(long)}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.get(t, "/create", authed(map[string]string{"user_id": "999", "text": "more again"}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreate_ProviderFailure(t *testing.T) {
	e := newTestEnv(t)
	e.synth.err = errors.New("region unreachable")

	resp, body := e.get(t, "/create", authed(map[string]string{"user_id": "100", "text": "Hello"}))
	require.Equal(t, http.StatusOK, resp.StatusCode, "provider failure is a 200-with-error-body")
	assert.Equal(t, float64(404), body["code"])
	assert.Contains(t, body["error"], "region unreachable")

	// Nothing was persisted.
	_, err := e.store.UserSummary(context.Background(), 100, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, "/users/100", authed(nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.get(t, "/users/notanint", authed(nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, _ = e.get(t, "/create", authed(map[string]string{"user_id": "100", "text": "Hello world"}))

	resp, body := e.get(t, "/users/100", authed(nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100), body["user_id"])
	assert.Equal(t, float64(11), body["char_used_today"])
	assert.Equal(t, float64(11), body["char_used_total"])
	assert.NotEmpty(t, body["last_audio"])
}

func TestResetDB(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/create", authed(map[string]string{"user_id": "100", "text": "Hello world"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audioID := body["response"].(string)

	resp, _ = e.get(t, "/reset_db", authed(nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// User history is gone.
	resp, _ = e.get(t, "/users/100", authed(nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Audio file is gone.
	resp, _ = e.get(t, "/audios/"+audioID+".mp3", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Previously cached text is a miss again.
	resp, body = e.get(t, "/create", authed(map[string]string{"user_id": "100", "text": "Hello world"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["cache"])
	assert.Equal(t, 2, e.synth.calls)
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route not found", body["description"])
}
