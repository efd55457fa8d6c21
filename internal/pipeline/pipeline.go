// Package pipeline implements Pipeline (spec §4.8): the component that
// owns one optional audio source and one optional video source and fans
// them out to an ordered set of outputs, reconciling each output's codec
// config against the others so they can share a single capture source.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ThibaultBee/streampack/internal/endpoint"
	"github.com/ThibaultBee/streampack/internal/output"
	"github.com/ThibaultBee/streampack/internal/reactive"
	"github.com/ThibaultBee/streampack/internal/source"
)

// AudioOutputMode selects how the pipeline drives its outputs' audio
// encoders (spec §4.8).
type AudioOutputMode int

const (
	// AudioPush pumps frames from the audio source to every output's
	// audio encoder as they become available; the pump's blocking read
	// drives the cadence.
	AudioPush AudioOutputMode = iota
	// AudioPull lets each output's encoder pull frames on demand via its
	// own input-buffer callback instead. Kept for API completeness: which
	// output's callback should drive a shared pump when several outputs
	// pull at different rates is left unresolved by spec §9 Open
	// Question 2, so this build always runs the push pump regardless of
	// the configured mode (see pump.go).
	AudioPull
)

// Config configures a Pipeline at construction time (spec §4.8).
type Config struct {
	WithAudio       bool
	WithVideo       bool
	AudioOutputMode AudioOutputMode
}

const maxConcurrentOutputs = 8

// Pipeline fans out one audio source and one video source to N outputs.
// Its own state (sources, source config, output list) is guarded by mu;
// each output guards its own state independently (spec §5 "Shared-resource
// policy").
type Pipeline struct {
	ID uuid.UUID

	cfg Config

	mu           sync.Mutex
	audioSource  source.Source
	videoSource  source.Source
	audioFactory source.Factory
	videoFactory source.Factory

	outputs     map[uuid.UUID]*output.Output
	unsubscribe map[uuid.UUID]func()

	sourcesStarted bool
	stopPumps      chan struct{}
	pumpsWG        sync.WaitGroup

	isStreaming *reactive.State[bool]
	throwable   *reactive.State[error]
}

// New returns an empty Pipeline with no sources and no outputs.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		ID:          uuid.New(),
		cfg:         cfg,
		outputs:     make(map[uuid.UUID]*output.Output),
		unsubscribe: make(map[uuid.UUID]func()),
		isStreaming: reactive.New(false),
		throwable:   reactive.New[error](nil),
	}
}

func (p *Pipeline) IsStreaming() *reactive.State[bool] { return p.isStreaming }
func (p *Pipeline) Throwable() *reactive.State[error]  { return p.throwable }

// AddOutput builds a new Output driving ep, registers it with the
// pipeline, and returns it (spec §4.8 "add_output"). The pipeline
// subscribes to the output's is_streaming so the shared sources are
// started when the first output begins streaming and stopped when the
// last one stops, regardless of whether that output was started via this
// pipeline's StartStream or directly against the Output (scenario
// "output async start").
func (p *Pipeline) AddOutput(ctx context.Context, ep endpoint.Endpoint) *output.Output {
	out := output.New(ep)
	ch, unsub := out.IsStreaming().Subscribe()

	p.mu.Lock()
	p.outputs[out.ID] = out
	p.unsubscribe[out.ID] = unsub
	p.mu.Unlock()

	go p.watchOutputStreaming(ctx, ch)
	p.recomputeStreaming(ctx)
	return out
}

func (p *Pipeline) watchOutputStreaming(ctx context.Context, ch <-chan bool) {
	for range ch {
		p.recomputeStreaming(ctx)
	}
}

// RemoveOutput stops out and unregisters it. If out was the pipeline's
// only streaming output, pipeline.is_streaming flips to false and the
// shared sources stop (spec invariant 13).
func (p *Pipeline) RemoveOutput(ctx context.Context, out *output.Output) error {
	err := out.StopStream(ctx)

	p.mu.Lock()
	if unsub, ok := p.unsubscribe[out.ID]; ok {
		unsub()
		delete(p.unsubscribe, out.ID)
	}
	delete(p.outputs, out.ID)
	p.mu.Unlock()

	p.recomputeStreaming(ctx)
	return err
}

// recomputeStreaming folds every registered output's is_streaming with OR
// semantics (spec invariant 2) and starts or stops the shared sources to
// match (spec invariant 1).
func (p *Pipeline) recomputeStreaming(ctx context.Context) {
	p.mu.Lock()
	states := make([]*reactive.State[bool], 0, len(p.outputs))
	for _, o := range p.outputs {
		states = append(states, o.IsStreaming())
	}
	p.mu.Unlock()

	anyStreaming := reactive.CombineBool(states...)
	if anyStreaming {
		if err := p.startSources(ctx); err != nil {
			p.throwable.Set(err)
			return
		}
	} else {
		p.stopSources(ctx)
	}
	p.isStreaming.Set(anyStreaming)
}

// Release is terminal: stops streaming if needed, then releases every
// output and both sources (spec §4.8 "release").
func (p *Pipeline) Release(ctx context.Context) {
	p.StopStream(ctx)

	p.mu.Lock()
	outs := make([]*output.Output, 0, len(p.outputs))
	for _, o := range p.outputs {
		outs = append(outs, o)
	}
	for _, unsub := range p.unsubscribe {
		unsub()
	}
	p.outputs = make(map[uuid.UUID]*output.Output)
	p.unsubscribe = make(map[uuid.UUID]func())
	audioSrc, videoSrc := p.audioSource, p.videoSource
	p.audioSource, p.videoSource = nil, nil
	p.mu.Unlock()

	for _, o := range outs {
		_ = o.Release()
	}
	if audioSrc != nil {
		_ = audioSrc.Release(ctx)
	}
	if videoSrc != nil {
		_ = videoSrc.Release(ctx)
	}
}
