package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ThibaultBee/streampack/internal/output"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// StartStream starts the shared sources, then every registered output
// concurrently (spec §4.8 "start_stream"). Fails with NoOutput if none
// are registered. Fails fast: the first output (or source) error aborts
// the whole call (spec §7 "start_stream fails fast with a thrown error
// describing the first failure").
func (p *Pipeline) StartStream(ctx context.Context) error {
	p.mu.Lock()
	outs := make([]*output.Output, 0, len(p.outputs))
	for _, o := range p.outputs {
		outs = append(outs, o)
	}
	p.mu.Unlock()

	if len(outs) == 0 {
		return streamerrors.New(streamerrors.KindNoOutput, "pipeline.Pipeline", "StartStream", nil)
	}

	if err := p.startSources(ctx); err != nil {
		return err
	}

	sem := semaphore.NewWeighted(maxConcurrentOutputs)
	g, gctx := errgroup.WithContext(ctx)
	for _, o := range outs {
		o := o
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return o.StartStream(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		p.stopSources(ctx)
		return err
	}

	p.isStreaming.Set(true)
	return nil
}

// StopStream stops every output, then the shared sources, on a
// best-effort basis. Per spec §7, stop_stream never throws: the first
// per-output failure is set on Throwable instead of being returned.
func (p *Pipeline) StopStream(ctx context.Context) {
	p.mu.Lock()
	outs := make([]*output.Output, 0, len(p.outputs))
	for _, o := range p.outputs {
		outs = append(outs, o)
	}
	p.mu.Unlock()

	sem := semaphore.NewWeighted(maxConcurrentOutputs)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, o := range outs {
		o := o
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sem.Acquire(ctx, 1)
			defer sem.Release(1)
			if err := o.StopStream(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p.stopSources(ctx)
	p.isStreaming.Set(false)
	if firstErr != nil {
		p.throwable.Set(firstErr)
	}
}

// startSources starts the configured sources and their pump/compositor
// goroutines, idempotently (both AddOutput/RemoveOutput's reactive
// recompute and a direct StartStream call reach this).
func (p *Pipeline) startSources(ctx context.Context) error {
	p.mu.Lock()
	if p.sourcesStarted {
		p.mu.Unlock()
		return nil
	}
	audioSrc, videoSrc := p.audioSource, p.videoSource
	p.mu.Unlock()

	if p.cfg.WithAudio && audioSrc != nil {
		if err := audioSrc.StartStream(ctx); err != nil {
			return err
		}
	}
	if p.cfg.WithVideo && videoSrc != nil {
		if err := videoSrc.StartStream(ctx); err != nil {
			if p.cfg.WithAudio && audioSrc != nil {
				_ = audioSrc.StopStream(ctx)
			}
			return err
		}
	}

	p.mu.Lock()
	p.sourcesStarted = true
	p.stopPumps = make(chan struct{})
	stop := p.stopPumps
	p.mu.Unlock()

	if p.cfg.WithAudio {
		p.pumpsWG.Add(1)
		go p.runAudioPump(stop)
	}
	if p.cfg.WithVideo {
		p.pumpsWG.Add(1)
		go p.runVideoCompositor(stop)
	}
	return nil
}

// stopSources joins the pump/compositor goroutines and stops the
// configured sources. Idempotent.
func (p *Pipeline) stopSources(ctx context.Context) {
	p.mu.Lock()
	if !p.sourcesStarted {
		p.mu.Unlock()
		return
	}
	close(p.stopPumps)
	audioSrc, videoSrc := p.audioSource, p.videoSource
	p.sourcesStarted = false
	p.mu.Unlock()

	p.pumpsWG.Wait()

	if audioSrc != nil {
		_ = audioSrc.StopStream(ctx)
	}
	if videoSrc != nil {
		_ = videoSrc.StopStream(ctx)
	}
}
