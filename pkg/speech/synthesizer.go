package speech

import "context"

// Synthesizer converts text to a raw mp3 byte stream via a remote
// text-to-speech provider.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
