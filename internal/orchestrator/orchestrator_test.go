package orchestrator

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/create2gpu/miner/internal/config"
	"github.com/create2gpu/miner/internal/device"
	"github.com/create2gpu/miner/internal/sink"
)

type fakeSession struct {
	runErr  error
	closed  chan struct{}
	blockOn <-chan struct{}
}

func newFakeSession(runErr error) *fakeSession {
	return &fakeSession{runErr: runErr, closed: make(chan struct{})}
}

func (f *fakeSession) Run(deadline <-chan struct{}) error {
	select {
	case <-deadline:
		return nil
	case <-f.closed:
		return f.runErr
	}
}

func (f *fakeSession) Close() {
	select {
	case <-f.closed: // already closed: run closes every session on return
	default:
		close(f.closed)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Deployer:   [20]byte{0x4e},
		OutputFile: filepath.Join(t.TempDir(), "results.csv"),
	}
}

func TestRunReturnsErrNoDevicesWhenSelectorFindsNothing(t *testing.T) {
	cfg := testConfig(t)
	sk := sink.New(cfg.OutputFile)

	empty := func(config.Config) ([]device.Info, error) { return nil, nil }
	never := func(device.Info, device.Deps) (device.Session, error) { return nil, errors.New("should not be called") }

	err := run(make(chan struct{}), cfg, sk, empty, never)
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("expected ErrNoDevices, got %v", err)
	}
}

func TestRunPropagatesOpenError(t *testing.T) {
	cfg := testConfig(t)
	sk := sink.New(cfg.OutputFile)
	wantErr := errors.New("boom")

	one := func(config.Config) ([]device.Info, error) {
		return []device.Info{{PlatformID: 0, DeviceID: 0}}, nil
	}
	failOpen := func(device.Info, device.Deps) (device.Session, error) { return nil, wantErr }

	err := run(make(chan struct{}), cfg, sk, one, failOpen)
	if err == nil || !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped %v, got %v", wantErr, err)
	}
}

func TestRunStopsOnStopChannel(t *testing.T) {
	cfg := testConfig(t)
	sk := sink.New(cfg.OutputFile)

	one := func(config.Config) ([]device.Info, error) {
		return []device.Info{{PlatformID: 0, DeviceID: 0}}, nil
	}
	sessions := []*fakeSession{}
	open := func(device.Info, device.Deps) (device.Session, error) {
		s := newFakeSession(nil)
		sessions = append(sessions, s)
		return s, nil
	}

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- run(stop, cfg, sk, one, open) }()

	close(stop)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after stop was closed")
	}
}

func TestRunReturnsFirstSessionError(t *testing.T) {
	cfg := testConfig(t)
	sk := sink.New(cfg.OutputFile)
	wantErr := errors.New("dispatch failed")

	one := func(config.Config) ([]device.Info, error) {
		return []device.Info{{PlatformID: 0, DeviceID: 0}}, nil
	}
	var sess *fakeSession
	open := func(device.Info, device.Deps) (device.Session, error) {
		sess = newFakeSession(wantErr)
		return sess, nil
	}

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- run(stop, cfg, sk, one, open) }()

	time.Sleep(50 * time.Millisecond)
	sess.Close()

	select {
	case err := <-done:
		if !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after session failure")
	}
}
