package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/voicebrew/ttsgate/pkg/logger"
)

// PollySynthesizer renders speech through AWS Polly.
type PollySynthesizer struct {
	client *polly.Client
	voice  types.VoiceId
}

// NewPollySynthesizer creates a Polly client with static credentials.
// voice defaults to "Brian".
func NewPollySynthesizer(ctx context.Context, accessKey, secretKey, region, voice string) (*PollySynthesizer, error) {
	if voice == "" {
		voice = "Brian"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	logger.InfoCF("speech", "Creating Polly synthesizer", map[string]any{
		"region": region,
		"voice":  voice,
	})

	return &PollySynthesizer{
		client: polly.NewFromConfig(cfg),
		voice:  types.VoiceId(voice),
	}, nil
}

// Synthesize renders text as mp3 and returns the full audio buffer.
func (s *PollySynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      s.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read polly stream: %w", err)
	}

	logger.DebugCF("speech", "Polly synthesis complete", map[string]any{
		"text_length": len(text),
		"size_bytes":  len(data),
	})

	return data, nil
}
