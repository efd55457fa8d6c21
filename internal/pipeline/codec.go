package pipeline

import (
	"context"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/output"
)

// SetOutputAudioCodecConfig pins out's audio codec config after validating
// it against every sibling output's already-pinned audio config (spec
// §4.8 "cross-output SourceConfig union"): all outputs' audio configs must
// agree on sample-rate, channels and byte-format, or the call fails with
// IncompatibleConfig and out is left unchanged. On success the pipeline's
// audio source is reconfigured to the resulting union.
func (p *Pipeline) SetOutputAudioCodecConfig(ctx context.Context, out *output.Output, cfg media.AudioCodecConfig) error {
	reference := p.siblingAudioReference(out)
	if err := out.SetAudioCodecConfig(cfg, reference); err != nil {
		return err
	}
	return p.reconfigureAudioSource(ctx)
}

// SetOutputVideoCodecConfig is the video analogue of
// SetOutputAudioCodecConfig: siblings must agree on fps and dynamic range;
// resolution may differ and is folded into the union as the max over every
// output (media.UnionVideoSourceConfig), with each output's encoder
// downscaling as needed.
func (p *Pipeline) SetOutputVideoCodecConfig(ctx context.Context, out *output.Output, cfg media.VideoCodecConfig) error {
	reference := p.siblingVideoReference(out)
	if err := out.SetVideoCodecConfig(cfg, reference); err != nil {
		return err
	}
	return p.reconfigureVideoSource(ctx)
}

// siblingAudioReference returns one other output's pinned audio config to
// validate cfg against. CompatibleSource is equality on sample-rate,
// channels and format, so this relation is transitive across every
// already-mutually-compatible sibling: any single one is a sufficient
// reference.
func (p *Pipeline) siblingAudioReference(out *output.Output) *media.AudioCodecConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.outputs {
		if o == out {
			continue
		}
		if c, ok := o.AudioCodecConfig(); ok {
			return &c
		}
	}
	return nil
}

func (p *Pipeline) siblingVideoReference(out *output.Output) *media.VideoCodecConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.outputs {
		if o == out {
			continue
		}
		if c, ok := o.VideoCodecConfig(); ok {
			return &c
		}
	}
	return nil
}

// reconfigureAudioSource recomputes the union source config across every
// output and reconfigures the audio source to match (spec §4.8 "after each
// compatible update the pipeline reconfigures its source to the union").
// If the source is already streaming, spec requires that a source config
// change be rejected rather than applied; since set_*_codec_config itself
// already fails while streaming (output.SetAudioCodecConfig returns
// InvalidState), the source is by construction never streaming here, so
// Configure cannot observe that case — this call is a plain reconfigure.
func (p *Pipeline) reconfigureAudioSource(_ context.Context) error {
	p.mu.Lock()
	src := p.audioSource
	p.mu.Unlock()
	if src == nil {
		return nil
	}
	acfg, vcfg := p.currentSourceConfigs()
	return src.Configure(acfg, vcfg)
}

func (p *Pipeline) reconfigureVideoSource(_ context.Context) error {
	p.mu.Lock()
	src := p.videoSource
	p.mu.Unlock()
	if src == nil {
		return nil
	}
	acfg, vcfg := p.currentSourceConfigs()
	return src.Configure(acfg, vcfg)
}
