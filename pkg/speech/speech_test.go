package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContentID_Format(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{14}-\d{10}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewContentID()
		assert.Regexp(t, re, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSaveAudio(t *testing.T) {
	root := t.TempDir()

	handle, err := SaveAudio([]byte("mp3bytes"), root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, handle.ID+".mp3"), handle.Location)

	data, err := os.ReadFile(handle.Location)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3bytes"), data)
}

func TestSaveAudio_MissingRoot(t *testing.T) {
	_, err := SaveAudio([]byte("x"), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestHTTPSynthesizer_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/speech", r.URL.Path)

		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Input)
		assert.Equal(t, "mp3", req.Format)

		w.Write([]byte("fake-mp3"))
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, "")
	data, err := s.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3"), data)
}

func TestHTTPSynthesizer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, "")
	_, err := s.Synthesize(context.Background(), "hello")
	assert.ErrorContains(t, err, "status 500")
}

func TestHTTPSynthesizer_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	s := NewHTTPSynthesizer(srv.URL, "")
	assert.True(t, s.IsAvailable())

	srv.Close()
	assert.False(t, s.IsAvailable())
}
