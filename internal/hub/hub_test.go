package hub

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNextBeforeFirstPublish(t *testing.T) {
	h := New()
	start := time.Now()
	f, err := h.Next(50 * time.Millisecond)
	if !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got frame=%v err=%v", f, err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Next blocked far past its timeout")
	}
}

func TestNextReturnsHandedOffFrame(t *testing.T) {
	h := New()
	h.Publish(Frame("f1"))
	f, err := h.Next(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !bytes.Equal(f, []byte("f1")) {
		t.Errorf("expected f1, got %q", f)
	}
}

func TestNewPublishWinsOverPending(t *testing.T) {
	h := New()
	h.Publish(Frame("f1"))
	h.Publish(Frame("f2"))
	h.Publish(Frame("f3"))

	f, err := h.Next(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !bytes.Equal(f, []byte("f3")) {
		t.Errorf("pending slot should hold the newest frame, got %q", f)
	}
}

func TestTimeoutFallsBackToLatest(t *testing.T) {
	h := New()
	h.Publish(Frame("f1"))

	// First pull drains the handoff slot.
	if _, err := h.Next(50 * time.Millisecond); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	// Second pull finds the slot empty and repeats the latest frame.
	f, err := h.Next(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if !bytes.Equal(f, []byte("f1")) {
		t.Errorf("expected keep-alive repeat of f1, got %q", f)
	}
}

func TestNeverReturnsEarlierFrame(t *testing.T) {
	h := New()
	for i := byte(0); i < 10; i++ {
		h.Publish(Frame{i})
	}
	f, err := h.Next(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f[0] != 9 {
		t.Errorf("expected frame 9, got %d", f[0])
	}
}

func TestPublishNeverBlocksWithoutConsumers(t *testing.T) {
	h := New()
	doneCh := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Publish(Frame("x"))
		}
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no consumers")
	}
}

func TestConcurrentConsumers(t *testing.T) {
	h := New()
	h.Publish(Frame("seed"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				f, err := h.Next(5 * time.Millisecond)
				if err != nil {
					t.Errorf("Next: %v", err)
					return
				}
				if len(f) == 0 {
					t.Error("observed empty frame")
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		h.Publish(Frame("frame"))
	}
	wg.Wait()
}

func TestCloseUnblocksNext(t *testing.T) {
	h := New()
	errCh := make(chan error, 1)
	go func() {
		_, err := h.Next(0) // no timeout: waits for a handoff
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	h.Close()
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next still blocked after Close")
	}
}
