package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrDispatcherClosed is returned for calls made after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

type job struct {
	ctx  context.Context
	path string
	resp chan jobResult
}

type jobResult struct {
	text string
	err  error
}

// Dispatcher runs blocking Provider calls on a bounded worker pool so the
// event sync loop stays responsive while transcriptions are in flight.
type Dispatcher struct {
	provider Provider
	jobs     chan job
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	log      *slog.Logger

	completed atomic.Int64
	failed    atomic.Int64
}

// NewDispatcher starts the worker goroutines immediately.
func NewDispatcher(provider Provider, workers, queueSize int, log *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = slog.Default()
	}

	d := &Dispatcher{
		provider: provider,
		jobs:     make(chan job, queueSize),
		done:     make(chan struct{}),
		log:      log.With("component", "transcribe.dispatcher"),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Debug("Dispatcher started", "provider", provider.Name(), "workers", workers, "queue_size", queueSize)

	return d
}

// Transcribe enqueues one transcription and waits for its result. Any
// backend fault comes back wrapped in ErrTranscriptionFailed.
func (d *Dispatcher) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp := make(chan jobResult, 1)

	select {
	case <-d.done:
		return "", ErrDispatcherClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case d.jobs <- job{ctx: ctx, path: audioPath, resp: resp}:
	}

	select {
	case <-d.done:
		return "", ErrDispatcherClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-resp:
		return result.text, result.err
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
		d.log.Info("Dispatcher stopped", "completed", d.completed.Load(), "failed", d.failed.Load())
	})
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case j := <-d.jobs:
			if err := j.ctx.Err(); err != nil {
				j.resp <- jobResult{err: err}
				continue
			}

			text, err := d.run(j.ctx, j.path)
			if err != nil {
				d.failed.Add(1)
			} else {
				d.completed.Add(1)
			}
			j.resp <- jobResult{text: text, err: err}
		}
	}
}

// run converts backend faults, including panics out of the cgo bindings,
// into ErrTranscriptionFailed results.
func (d *Dispatcher) run(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Transcription backend panicked", "panic", r)
			text = ""
			err = fmt.Errorf("%w: panic: %v", ErrTranscriptionFailed, r)
		}
	}()

	text, err = d.provider.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	return text, nil
}
