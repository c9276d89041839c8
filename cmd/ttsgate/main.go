package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicebrew/ttsgate/pkg/config"
	"github.com/voicebrew/ttsgate/pkg/gateway"
	"github.com/voicebrew/ttsgate/pkg/logger"
	"github.com/voicebrew/ttsgate/pkg/speech"
	"github.com/voicebrew/ttsgate/pkg/store"
	"github.com/voicebrew/ttsgate/pkg/synth"
)

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config.json")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ttsgate %s\n", version)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevelName(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := logger.EnableFileLogging(cfg.LogFile); err != nil {
			logger.WarnCF("main", "File logging disabled", map[string]any{"error": err.Error()})
		}
	}

	if err := run(cfg); err != nil {
		logger.FatalCF("main", "ttsgate failed", map[string]any{"error": err.Error()})
	}
}

func defaultConfigPath() string {
	if path := os.Getenv("TTSGATE_CONFIG"); path != "" {
		return path
	}
	return "config.json"
}

func run(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.FileLocation, 0o755); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	synthesizer, err := buildSynthesizer(cfg)
	if err != nil {
		return err
	}

	orch := synth.New(st, synthesizer, synth.Options{
		CharLimit:    int64(cfg.RatelimitTextLength),
		Window:       time.Duration(cfg.RatelimitExpireSeconds) * time.Second,
		BypassIDs:    cfg.BypassSet(),
		StorageRoot:  cfg.FileLocation,
		SynthTimeout: time.Duration(cfg.SynthTimeoutSeconds) * time.Second,
	})

	gateway.SetVersion(version)
	srv := gateway.NewServer(cfg, st, orch)
	if err := srv.Start(); err != nil {
		return err
	}

	logger.InfoCF("main", "ttsgate started", map[string]any{
		"port":     cfg.Port,
		"provider": cfg.Provider,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.InfoCF("main", "Shutting down", map[string]any{"signal": sig.String()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func buildSynthesizer(cfg *config.Config) (speech.Synthesizer, error) {
	switch cfg.Provider {
	case "", "polly":
		return speech.NewPollySynthesizer(context.Background(),
			cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSRegion, cfg.VoiceID)
	case "http":
		if cfg.ProviderURL == "" {
			return nil, fmt.Errorf("provider_url must be set for the http provider")
		}
		s := speech.NewHTTPSynthesizer(cfg.ProviderURL, cfg.VoiceID)
		if !s.IsAvailable() {
			logger.WarnC("main", "TTS server is not reachable yet")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
