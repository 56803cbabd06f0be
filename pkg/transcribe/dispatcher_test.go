package transcribe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubProvider struct {
	mu    sync.Mutex
	paths []string

	text  string
	err   error
	panic bool
	delay time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Transcribe(_ context.Context, audioPath string) (string, error) {
	current := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		max := p.maxInFlight.Load()
		if current <= max || p.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}

	p.mu.Lock()
	p.paths = append(p.paths, audioPath)
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panic {
		panic("backend blew up")
	}
	return p.text, p.err
}

func (p *stubProvider) Close() error { return nil }

func TestDispatcherPassesThroughText(t *testing.T) {
	provider := &stubProvider{text: "Hola mundo"}
	d := NewDispatcher(provider, 1, 4, nil)
	defer d.Close()

	text, err := d.Transcribe(context.Background(), "/tmp/audio.ogg")
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "Hola mundo" {
		t.Fatalf("text = %q, want %q", text, "Hola mundo")
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.paths) != 1 || provider.paths[0] != "/tmp/audio.ogg" {
		t.Fatalf("provider paths = %v", provider.paths)
	}
}

func TestDispatcherWrapsBackendError(t *testing.T) {
	provider := &stubProvider{err: errors.New("model exploded")}
	d := NewDispatcher(provider, 1, 4, nil)
	defer d.Close()

	_, err := d.Transcribe(context.Background(), "/tmp/audio.ogg")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want ErrTranscriptionFailed", err)
	}
}

func TestDispatcherRecoversPanic(t *testing.T) {
	provider := &stubProvider{panic: true}
	d := NewDispatcher(provider, 1, 4, nil)
	defer d.Close()

	_, err := d.Transcribe(context.Background(), "/tmp/audio.ogg")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want ErrTranscriptionFailed", err)
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	provider := &stubProvider{text: "ok", delay: 20 * time.Millisecond}
	d := NewDispatcher(provider, 1, 8, nil)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Transcribe(context.Background(), "/tmp/audio.ogg"); err != nil {
				t.Errorf("Transcribe error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := provider.maxInFlight.Load(); got != 1 {
		t.Fatalf("max in-flight = %d, want 1", got)
	}
}

func TestDispatcherCanceledContext(t *testing.T) {
	provider := &stubProvider{text: "ok"}
	d := NewDispatcher(provider, 1, 0, nil)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Transcribe(ctx, "/tmp/audio.ogg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDispatcherClosedRejectsWork(t *testing.T) {
	provider := &stubProvider{text: "ok"}
	d := NewDispatcher(provider, 1, 0, nil)
	d.Close()

	if _, err := d.Transcribe(context.Background(), "/tmp/audio.ogg"); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("err = %v, want ErrDispatcherClosed", err)
	}
}
