package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicebrew/ttsgate/pkg/logger"
)

// HTTPSynthesizer talks to an OpenAI-compatible /v1/audio/speech server
// (Kokoro and friends). It exists so the gateway can run against a local
// TTS box instead of Polly.
type HTTPSynthesizer struct {
	apiBase    string
	voice      string
	model      string
	httpClient *http.Client
}

type speechRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Voice  string `json:"voice"`
	Format string `json:"response_format,omitempty"`
}

// NewHTTPSynthesizer creates an OpenAI-compatible TTS client.
// voice defaults to "af_nova".
func NewHTTPSynthesizer(apiBase, voice string) *HTTPSynthesizer {
	if voice == "" {
		voice = "af_nova"
	}

	logger.InfoCF("speech", "Creating HTTP TTS synthesizer", map[string]any{
		"api_base": apiBase,
		"voice":    voice,
	})

	return &HTTPSynthesizer{
		apiBase: apiBase,
		voice:   voice,
		model:   "kokoro",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Synthesize converts text to mp3 and returns the full audio buffer.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody := speechRequest{
		Model:  s.model,
		Input:  text,
		Voice:  s.voice,
		Format: "mp3",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	url := s.apiBase + "/v1/audio/speech"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS server error (status %d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TTS audio: %w", err)
	}

	logger.DebugCF("speech", "HTTP synthesis complete", map[string]any{
		"text_length": len(text),
		"size_bytes":  len(data),
	})

	return data, nil
}

// IsAvailable checks whether the TTS server is reachable.
func (s *HTTPSynthesizer) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", s.apiBase+"/v1/models", nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
