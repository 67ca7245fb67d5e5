package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-moodcam/pkg/camera"
	"github.com/teslashibe/go-moodcam/pkg/frame"
)

func TestNeedsReopen(t *testing.T) {
	base := camera.DefaultConfig()

	tests := []struct {
		name   string
		modify func(*camera.Config)
		want   bool
	}{
		{"unchanged", func(c *camera.Config) {}, false},
		{"facing only", func(c *camera.Config) { c.Facing = camera.FacingBack }, false},
		{"resolution", func(c *camera.Config) { c.Width = 1280 }, true},
		{"device", func(c *camera.Config) { c.Device = "1" }, true},
		{"rotation", func(c *camera.Config) { c.Rotation = 90 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.modify(&next)
			if got := needsReopen(base, next); got != tt.want {
				t.Errorf("needsReopen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSwitchWriter(t *testing.T) {
	var sw switchWriter
	if n, err := sw.Write([]byte("dropped")); n != 7 || err != nil {
		t.Errorf("Write without target = %d, %v", n, err)
	}

	var buf bytes.Buffer
	sw.Set(&buf)
	sw.Write([]byte("kept"))
	sw.Set(nil)
	sw.Write([]byte("dropped"))

	if buf.String() != "kept" {
		t.Errorf("target got %q", buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"live", "still", "watch", "models"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}

type fakeSource struct{}

func (fakeSource) Run(ctx context.Context, deliver camera.Deliver) error {
	<-ctx.Done()
	return nil
}

func (fakeSource) Close() error { return nil }

type sourceOpener struct {
	mu     sync.Mutex
	opened []camera.Config
	fail   map[string]bool
}

func (o *sourceOpener) open(cfg camera.Config) (camera.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, cfg)
	if o.fail[cfg.Device] {
		return nil, camera.ErrNoImages
	}
	return fakeSource{}, nil
}

func (o *sourceOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

func (o *sourceOpener) waitOpens(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for o.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d opens, got %d", n, o.count())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunSources_FirstOpenFails(t *testing.T) {
	o := &sourceOpener{fail: map[string]bool{"0": true}}
	err := runSources(context.Background(), camera.DefaultConfig(), o.open, nil, nil, nil, nil)
	if !errors.Is(err, camera.ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestRunSources_ReopenFailureRestores(t *testing.T) {
	base := camera.DefaultConfig()
	bad := base
	bad.Source, bad.Device = camera.SourceReplay, "empty"

	o := &sourceOpener{fail: map[string]bool{"empty": true}}
	restart := make(chan camera.Config, 1)
	restored := make(chan camera.Config, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runSources(ctx, base, o.open, func(*frame.RawFrame) {}, restart, nil,
			func(prev camera.Config) { restored <- prev })
	}()

	o.waitOpens(t, 1)
	restart <- bad

	select {
	case prev := <-restored:
		if prev != base {
			t.Errorf("restored %+v, want %+v", prev, base)
		}
	case err := <-done:
		t.Fatalf("live loop exited on reopen failure: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("config never restored")
	}

	// bad, then the previous config again.
	o.waitOpens(t, 3)
	o.mu.Lock()
	if got := o.opened[2]; got != base {
		t.Errorf("reopened %+v, want %+v", got, base)
	}
	o.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runSources returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runSources did not stop on cancel")
	}
}

func TestRunSources_NoSourceWaitsForChange(t *testing.T) {
	base := camera.DefaultConfig()
	bad := base
	bad.Device = "gone"
	good := base
	good.Device = "1"

	// The previous device disappears together with the new one.
	o := &sourceOpener{fail: map[string]bool{"gone": true}}
	restart := make(chan camera.Config, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runSources(ctx, base, o.open, func(*frame.RawFrame) {}, restart, nil, func(camera.Config) {
			o.mu.Lock()
			o.fail["0"] = true
			o.mu.Unlock()
		})
	}()

	o.waitOpens(t, 1)
	restart <- bad
	o.waitOpens(t, 3)

	restart <- good
	o.waitOpens(t, 4)
	o.mu.Lock()
	if got := o.opened[3]; got != good {
		t.Errorf("opened %+v, want %+v", got, good)
	}
	o.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runSources returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runSources did not stop on cancel")
	}
}
