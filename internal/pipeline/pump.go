package pipeline

import (
	"context"
	"time"

	"github.com/ThibaultBee/streampack/internal/output"
	"github.com/ThibaultBee/streampack/internal/source"
)

const (
	audioBufferSize = 4096
	videoBufferSize = 1 << 20

	// sourceSwapPollInterval bounds how long a pump waits with no source
	// installed (e.g. between Release and a subsequent SetAudioSource)
	// before checking again.
	sourceSwapPollInterval = 10 * time.Millisecond
)

func (p *Pipeline) currentAudioSource() source.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioSource
}

func (p *Pipeline) currentVideoSource() source.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoSource
}

func (p *Pipeline) currentOutputs() []*output.Output {
	p.mu.Lock()
	defer p.mu.Unlock()
	outs := make([]*output.Output, 0, len(p.outputs))
	for _, o := range p.outputs {
		outs = append(outs, o)
	}
	return outs
}

// runAudioPump is the audio pump thread (spec §4.8, §5 "Audio pump
// thread"): it blocks on the currently installed audio source's
// ReadFrame, then dispatches the frame to every registered output's audio
// encoder. It re-reads p.audioSource on every iteration via
// currentAudioSource rather than capturing it once at goroutine start, so
// a mid-stream SetAudioSource hot-swap takes effect on the very next
// frame instead of the pump staying pinned to the stale source.
func (p *Pipeline) runAudioPump(stop <-chan struct{}) {
	defer p.pumpsWG.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		src := p.currentAudioSource()
		fs, ok := src.(source.FrameSource)
		if !ok {
			select {
			case <-time.After(sourceSwapPollInterval):
				continue
			case <-stop:
				return
			}
		}

		// A fresh buffer per frame: the frame handed to every output is
		// read concurrently by each one's encoder, so reusing a single
		// buffer across iterations would race with still-in-flight reads.
		buf := make([]byte, audioBufferSize)
		frame, err := fs.ReadFrame(ctx, buf)
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			p.throwable.Set(err)
			continue
		}

		for _, o := range p.currentOutputs() {
			if err := o.PushAudioFrame(ctx, frame); err != nil {
				p.throwable.Set(err)
			}
		}
	}
}

// runVideoCompositor stands in for the dedicated compositor thread spec
// §4.8/§5 describe: in a full implementation it owns the video source's
// SurfaceSource output target and renders a downscaled, orientation
// correct copy into each output encoder's input surface. This build only
// has FrameSource-kind video sources (source.SyntheticVideoSource), so
// compositing reduces to reading one raw frame and forwarding it verbatim
// to every output's video encoder; each encoder is responsible for
// whatever scaling its own configured resolution needs.
func (p *Pipeline) runVideoCompositor(stop <-chan struct{}) {
	defer p.pumpsWG.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		src := p.currentVideoSource()
		fs, ok := src.(source.FrameSource)
		if !ok {
			select {
			case <-time.After(sourceSwapPollInterval):
				continue
			case <-stop:
				return
			}
		}

		buf := make([]byte, videoBufferSize)
		frame, err := fs.ReadFrame(ctx, buf)
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			p.throwable.Set(err)
			continue
		}

		for _, o := range p.currentOutputs() {
			if err := o.PushVideoFrame(ctx, frame); err != nil {
				p.throwable.Set(err)
			}
		}
	}
}
