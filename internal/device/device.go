// Package device implements the Device Session: the per-device loop that
// repeatedly dispatches the Keccak Kernel against fresh nonces, verifies
// any reported winner, and reports periodic Snapshots. The OpenCL-backed
// implementation lives in session_gpu.go (build tag opencl); session_cpu.go
// is a host-only fallback adapted from bitcoin-wallet-bruteforce-offline.go's
// worker() loop, run on a single goroutine, used when no GPU is selected or OpenCL support was not
// compiled in.
package device

import (
	"errors"
	"time"

	"github.com/create2gpu/miner/internal/config"
	"github.com/create2gpu/miner/internal/status"
	"github.com/create2gpu/miner/internal/verifier"
)

// ErrDeviceUnavailable is returned by OpenGPU when platform_id or device_id is
// out of range, or the device cannot be initialized (spec section 4.2).
var ErrDeviceUnavailable = errors.New("device: unavailable")

// ErrDispatchFailed wraps a failed kernel enqueue or buffer read.
var ErrDispatchFailed = errors.New("device: dispatch failed")

// Info describes one enumerated device.
type Info struct {
	PlatformID uint32
	DeviceID   uint32
	Name       string
	IsGPU      bool
}

// BestScoreSource is satisfied by *sink.Sink; kept as an interface here so
// this package does not import sink directly and sessions stay testable
// against a fake.
type BestScoreSource interface {
	BestScore() uint32
}

// HitRecorder is satisfied by *sink.Sink.
type HitRecorder interface {
	Append(h HitRecord) error
}

// HitRecord is the subset of sink.Hit a Session can produce; the
// orchestrator's sinkAdapter converts it to a sink.Hit when wiring the two
// packages together.
type HitRecord struct {
	Address      string
	Salt         string
	Score        uint32
	LeadingOnes  uint32
	TrailingOnes uint32
	PlatformID   uint32
	DeviceID     uint32
	UnixSeconds  uint64
}

// Session is one running device's dispatch-harvest loop, per spec section
// 4.2. Run blocks until deadline is closed, Close is called, or an
// unrecoverable dispatch error occurs; it never returns early just because a Hit was found — the search
// continues for better scores, matching original_source's unconditional
// "Continuing search for even better solutions..." loop.
type Session interface {
	Run(deadline <-chan struct{}) error
	Close()
}

// Deps bundles the collaborators every Session implementation needs,
// independent of whether it runs on GPU or CPU.
type Deps struct {
	Cfg      config.Config
	Sink     interface {
		BestScoreSource
		HitRecorder
	}
	Renderer *status.Renderer
	// RowIndex is this device's position among the Orchestrator's
	// selected devices (0-based), used only to pick a status row band.
	RowIndex int
}

func newHitRecord(v verifier.Result, platformID, deviceID uint32) HitRecord {
	return HitRecord{
		Address:      v.ChecksumHex,
		Salt:         "0x" + hexEncode(v.Salt[:]),
		Score:        v.Score,
		LeadingOnes:  uint32(v.LeadingOnes),
		TrailingOnes: uint32(v.TrailingOnes),
		PlatformID:   platformID,
		DeviceID:     deviceID,
		UnixSeconds:  uint64(time.Now().Unix()),
	}
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
