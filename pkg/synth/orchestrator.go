// Package synth decides cache-hit vs cache-miss for each synthesis request,
// applies the daily character limit, and records usage.
package synth

import (
	"context"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voicebrew/ttsgate/pkg/logger"
	"github.com/voicebrew/ttsgate/pkg/metrics"
	"github.com/voicebrew/ttsgate/pkg/speech"
	"github.com/voicebrew/ttsgate/pkg/store"
)

// Options configures the orchestrator.
type Options struct {
	// CharLimit is the character budget per user inside the window.
	CharLimit int64

	// Window is the rate-limit lookback interval.
	Window time.Duration

	// BypassIDs are user ids exempt from the character limit.
	BypassIDs map[int64]struct{}

	// StorageRoot is where rendered audio files live.
	StorageRoot string

	// SynthTimeout bounds a single provider call. Zero means no extra bound
	// beyond the request context.
	SynthTimeout time.Duration
}

// Result is the outcome of one synthesis request.
type Result struct {
	Handle speech.ContentHandle
	Cached bool
}

// Orchestrator runs the synthesis flow: rate check, cache lookup, provider
// call on miss, usage bookkeeping.
type Orchestrator struct {
	store *store.Store
	synth speech.Synthesizer
	opts  Options
	now   func() time.Time
}

func New(st *store.Store, syn speech.Synthesizer, opts Options) *Orchestrator {
	return &Orchestrator{
		store: st,
		synth: syn,
		opts:  opts,
		now:   time.Now,
	}
}

// Create synthesizes text for userID, serving from the utterance cache when
// possible. The rate check runs before the cache lookup, so cached text
// still consumes the limit. Every successful call records a usage row; a
// failed provider call records nothing.
func (o *Orchestrator) Create(ctx context.Context, text string, userID int64) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	now := o.now()
	length := utf8.RuneCountInString(text)

	if _, bypass := o.opts.BypassIDs[userID]; !bypass {
		windowStart := now.Add(-o.opts.Window).Unix()
		used, err := o.store.UsageSince(ctx, userID, windowStart)
		if err != nil {
			return nil, err
		}
		if used >= o.opts.CharLimit {
			metrics.RateLimited.Inc()
			logger.InfoCF("synth", "Rate limit exceeded", map[string]any{
				"user_id": userID,
				"used":    used,
				"limit":   o.opts.CharLimit,
			})
			return nil, &RateLimitError{Used: used, Limit: o.opts.CharLimit}
		}
	}

	cached, err := o.store.LookupUtterance(ctx, text)
	if err != nil {
		return nil, err
	}

	if cached != nil {
		metrics.CacheHits.Inc()
		err := o.store.RecordUsage(ctx, store.Usage{
			TextLength: length,
			AudioID:    cached.AudioID,
			CreatedAt:  now.Unix(),
			UserID:     userID,
		})
		if err != nil {
			return nil, err
		}
		return &Result{
			Handle: speech.ContentHandle{
				ID:       cached.AudioID,
				Location: filepath.Join(o.opts.StorageRoot, cached.AudioID+".mp3"),
			},
			Cached: true,
		}, nil
	}

	metrics.CacheMisses.Inc()

	synthCtx := ctx
	if o.opts.SynthTimeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, o.opts.SynthTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := o.synth.Synthesize(synthCtx, text)
	metrics.SynthDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("provider").Inc()
		return nil, &ProviderError{Err: err}
	}

	handle, err := speech.SaveAudio(data, o.opts.StorageRoot)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("persist").Inc()
		return nil, &ProviderError{Err: err}
	}

	err = o.store.RecordSynthesis(ctx,
		store.Utterance{Text: text, AudioID: handle.ID, CreatedAt: now.Unix(), UserID: userID},
		store.Usage{TextLength: length, AudioID: handle.ID, CreatedAt: now.Unix(), UserID: userID},
	)
	if err != nil {
		return nil, err
	}

	logger.InfoCF("synth", "Synthesized new utterance", map[string]any{
		"user_id":     userID,
		"audio_id":    handle.ID,
		"text_length": length,
	})

	return &Result{Handle: *handle, Cached: false}, nil
}

// Usage returns the summary for one user, with the lookback window applied
// to the "today" figure.
func (o *Orchestrator) Usage(ctx context.Context, userID int64) (*store.UserSummary, error) {
	since := o.now().Add(-o.opts.Window).Unix()
	return o.store.UserSummary(ctx, userID, since)
}
