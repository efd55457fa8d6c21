package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ThibaultBee/streampack/internal/config"
	"github.com/ThibaultBee/streampack/internal/endpoint"
	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/pipeline"
	"github.com/ThibaultBee/streampack/internal/source"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Run the streaming pipeline",
	Long: `Start a pipeline driven by a synthetic audio/video source and fan it
out to one or more outputs.

Each --output is a URI selecting the output's sink and container:

  file:///tmp/out.flv   RTMP-style FLV container written to a file
  file:///tmp/out.ts    MPEG-TS container written to a file
  rtmp://host/app/key   RTMP push
  srt://host:port?streamid=...&passphrase=...   SRT push`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().StringArray("output", nil, "output URI (repeatable)")
	streamCmd.Flags().Float64("tone-hz", 440, "synthetic audio source tone frequency")
	streamCmd.Flags().Uint8("video-color", 0, "synthetic video source fill color")

	mustBindPFlag("stream.outputs", streamCmd.Flags().Lookup("output"))
	mustBindPFlag("stream.tone_hz", streamCmd.Flags().Lookup("tone-hz"))
	mustBindPFlag("stream.video_color", streamCmd.Flags().Lookup("video-color"))
}

func runStream(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.Default()

	outputURIs := viper.GetStringSlice("stream.outputs")
	if len(outputURIs) == 0 {
		return fmt.Errorf("at least one --output is required")
	}

	p := pipeline.New(pipeline.Config{
		WithAudio: cfg.Pipeline.WithAudio,
		WithVideo: cfg.Pipeline.WithVideo,
	})
	defer p.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := addOutputs(ctx, p, cfg, outputURIs, logger); err != nil {
		return err
	}

	if cfg.Pipeline.WithAudio {
		if err := p.SetAudioSource(ctx, source.SyntheticAudioFactory{ToneHz: viper.GetFloat64("stream.tone_hz")}); err != nil {
			return fmt.Errorf("setting audio source: %w", err)
		}
	}
	if cfg.Pipeline.WithVideo {
		color := byte(viper.GetUint("stream.video_color"))
		if err := p.SetVideoSource(ctx, source.SyntheticVideoFactory{Color: color}); err != nil {
			return fmt.Errorf("setting video source: %w", err)
		}
	}

	if err := p.StartStream(ctx); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	logger.Info("streaming", slog.Int("outputs", len(outputURIs)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	p.StopStream(context.Background())
	if err := p.Throwable().Get(); err != nil {
		return fmt.Errorf("pipeline error: %w", err)
	}
	return nil
}

// addOutputs builds and opens one output per URI, pinning each output's
// audio/video codec config from cfg.Pipeline before returning so the
// shared source is configured against the full set before streaming
// starts.
func addOutputs(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, uris []string, logger *slog.Logger) error {
	for _, uri := range uris {
		descriptor, err := media.ParseMediaDescriptor(uri)
		if err != nil {
			return fmt.Errorf("parsing output %q: %w", uri, err)
		}

		out := p.AddOutput(ctx, endpoint.NewDynamicEndpoint(nil))

		if cfg.Pipeline.WithAudio {
			if err := p.SetOutputAudioCodecConfig(ctx, out, cfg.Pipeline.AudioCodec.ToMedia()); err != nil {
				return fmt.Errorf("configuring audio for output %q: %w", uri, err)
			}
		}
		if cfg.Pipeline.WithVideo {
			if err := p.SetOutputVideoCodecConfig(ctx, out, cfg.Pipeline.VideoCodec.ToMedia()); err != nil {
				return fmt.Errorf("configuring video for output %q: %w", uri, err)
			}
		}

		if err := out.Open(ctx, descriptor); err != nil {
			return fmt.Errorf("opening output %q: %w", uri, err)
		}
		logger.Info("output configured", slog.String("uri", uri))
	}
	return nil
}
