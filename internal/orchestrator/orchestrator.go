// Package orchestrator enumerates devices per config.DeviceMode, spawns one
// Device Session per selected device with a startup stagger, and waits for
// the first worker to finish without cancelling its siblings. Grounded on
// original_source main.rs's per-GPU thread::spawn loop (one OS thread per
// selected device, `base_config.clone()` per thread, staggered start via
// gpu.rs's `thread::sleep(100ms * gpu_device)`).
package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/create2gpu/miner/internal/config"
	"github.com/create2gpu/miner/internal/device"
	"github.com/create2gpu/miner/internal/sink"
	"github.com/create2gpu/miner/internal/status"
)

// ErrNoDevices is returned when device selection yields no device. Only
// ModeAllGPUs enumeration can come back empty: single-device mode always
// selects its configured device, and an unusable one falls back to the CPU
// Session instead of returning ErrNoDevices.
var ErrNoDevices = errors.New("orchestrator: no devices available")

// startupStagger is the per-device-index launch delay from
// original_source's 100ms * gpu_device sleep, generalized to every
// selected device's position rather than only its raw device id.
const startupStagger = 100 * time.Millisecond

// sinkAdapter satisfies device.BestScoreSource and device.HitRecorder on top
// of *sink.Sink, converting a device.HitRecord to the sink.Hit shape at the
// package boundary so internal/device never needs to import internal/sink.
type sinkAdapter struct {
	sk *sink.Sink
}

func (a sinkAdapter) BestScore() uint32 { return a.sk.BestScore() }

func (a sinkAdapter) Append(h device.HitRecord) error {
	return a.sk.Append(sink.Hit{
		Address:      h.Address,
		Salt:         h.Salt,
		Score:        h.Score,
		LeadingOnes:  h.LeadingOnes,
		TrailingOnes: h.TrailingOnes,
		PlatformID:   h.PlatformID,
		DeviceID:     h.DeviceID,
		UnixSeconds:  h.UnixSeconds,
	})
}

// Run selects devices per cfg.Mode, opens one Session each, and blocks
// until the first Session's Run returns or stop is closed (a Hit does not
// end a Session — only process termination, a dispatch failure, or closing
// stop does).
func Run(stop <-chan struct{}, cfg config.Config, sk *sink.Sink) error {
	return run(stop, cfg, sk, selectDevices, openSession)
}

type opener func(info device.Info, deps device.Deps) (device.Session, error)
type selector func(cfg config.Config) ([]device.Info, error)

func run(stop <-chan struct{}, cfg config.Config, sk *sink.Sink, selectFn selector, openFn opener) error {
	selected, err := selectFn(cfg)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return ErrNoDevices
	}

	renderer := status.New(len(selected))

	errCh := make(chan error, len(selected))
	sessions := make([]device.Session, len(selected))

	for i, info := range selected {
		perDevice := cfg
		perDevice.PlatformID = info.PlatformID
		perDevice.GPUDevice = info.DeviceID

		deps := device.Deps{
			Cfg:      perDevice,
			Sink:     sinkAdapter{sk: sk},
			Renderer: renderer,
			RowIndex: i,
		}

		sess, err := openFn(info, deps)
		if err != nil {
			return fmt.Errorf("opening P%d-D%d: %w", info.PlatformID, info.DeviceID, err)
		}
		sessions[i] = sess

		idx := i
		s := sess
		go func() {
			time.Sleep(time.Duration(idx) * startupStagger)
			errCh <- s.Run(stop)
		}()
	}

	defer func() {
		for _, s := range sessions {
			if s != nil {
				s.Close()
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		return nil
	}
}

// selectDevices resolves cfg.Mode into a concrete device list: either the
// single (PlatformID, GPUDevice) pair as-is, or every enumerated GPU
// across every platform for ModeAllGPUs (spec section 4.5).
func selectDevices(cfg config.Config) ([]device.Info, error) {
	switch cfg.Mode {
	case config.ModeAllGPUs:
		all, err := device.Enumerate()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDevices, err)
		}
		return all, nil
	default:
		return []device.Info{{PlatformID: cfg.PlatformID, DeviceID: cfg.GPUDevice, IsGPU: true}}, nil
	}
}

// openSession opens a GPU Session for info, falling back to the CPU
// Session when the GPU open fails with ErrDeviceUnavailable — e.g. the
// binary was built without -tags opencl, or no compatible device exists.
func openSession(info device.Info, deps device.Deps) (device.Session, error) {
	gpu, err := device.OpenGPU(deps)
	if err == nil {
		return gpu, nil
	}
	if !errors.Is(err, device.ErrDeviceUnavailable) {
		return nil, err
	}
	return device.OpenCPU(deps), nil
}
