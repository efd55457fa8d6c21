package pipeline

import (
	"context"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/source"
)

// SetAudioSource installs factory as the pipeline's audio source (spec
// §4.8 "set_audio_source"). Idempotent if an equivalent factory
// (source.Factory.Describes) is already installed. Otherwise a new source
// is built and configured with the pipeline's current source config; if
// the pipeline is streaming, the new source is started before the old one
// is stopped and released, so there is no gap except at the splice.
func (p *Pipeline) SetAudioSource(ctx context.Context, factory source.Factory) error {
	return p.setSource(ctx, factory, true)
}

// SetVideoSource is the video analogue of SetAudioSource. Spec §4.8 notes
// that camera hot-swaps release the previous camera before the new one is
// created, a platform constraint that does not apply here: this build has
// no camera source, only source.SyntheticVideoSource, so swaps follow the
// general (non-camera) ordering — new source up, then old source down.
func (p *Pipeline) SetVideoSource(ctx context.Context, factory source.Factory) error {
	return p.setSource(ctx, factory, false)
}

func (p *Pipeline) setSource(ctx context.Context, factory source.Factory, audio bool) error {
	p.mu.Lock()
	existing := p.audioFactory
	oldSrc := p.audioSource
	if !audio {
		existing = p.videoFactory
		oldSrc = p.videoSource
	}
	if existing != nil && existing.Describes(factory) {
		p.mu.Unlock()
		return nil
	}
	wasStreaming := p.sourcesStarted
	p.mu.Unlock()

	newSrc, err := factory.New()
	if err != nil {
		return err
	}

	acfg, vcfg := p.currentSourceConfigs()
	if err := newSrc.Configure(acfg, vcfg); err != nil {
		return err
	}
	if wasStreaming {
		if err := newSrc.StartStream(ctx); err != nil {
			return err
		}
	}

	p.mu.Lock()
	if audio {
		p.audioSource, p.audioFactory = newSrc, factory
	} else {
		p.videoSource, p.videoFactory = newSrc, factory
	}
	p.mu.Unlock()

	if oldSrc != nil {
		if wasStreaming {
			_ = oldSrc.StopStream(ctx)
		}
		_ = oldSrc.Release(ctx)
	}
	return nil
}

// currentSourceConfigs folds every registered output's pinned codec config
// into the union source config the shared sources must satisfy (spec
// §4.8 "the pipeline computes the union SourceConfig needed to feed all
// outputs' encoders"). Audio has no notion of a union beyond agreement,
// since SetOutputAudioCodecConfig already rejects a config that does not
// match its siblings' sample-rate/channels/format; it reports whichever
// pinned config it finds first.
func (p *Pipeline) currentSourceConfigs() (media.AudioSourceConfig, media.VideoSourceConfig) {
	p.mu.Lock()
	var audioCfg media.AudioSourceConfig
	haveAudio := false
	var videoCfgs []media.VideoCodecConfig
	for _, o := range p.outputs {
		if c, ok := o.AudioCodecConfig(); ok && !haveAudio {
			audioCfg = c.SourceConfig()
			haveAudio = true
		}
		if c, ok := o.VideoCodecConfig(); ok {
			videoCfgs = append(videoCfgs, c)
		}
	}
	p.mu.Unlock()

	return audioCfg, media.UnionVideoSourceConfig(videoCfgs)
}
