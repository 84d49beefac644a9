// ============================================================================
// CPU FALLBACK SESSION: Host-Only Dispatch Loop
// ============================================================================
//
// Adapted from bitcoin-wallet-bruteforce-offline.go's worker()/
// statsReporter() pair: the same batched-atomic-counter, periodic-ticker
// shape, but searching CREATE2 salts against a predicate instead of
// brute-forcing private keys against a target-address set. Used whenever
// no GPU is selected, or the binary was built without the opencl tag
// (session_gpu_stub.go covers that latter case's Open).
package device

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"

	"github.com/create2gpu/miner/internal/config"
	"github.com/create2gpu/miner/internal/message"
	"github.com/create2gpu/miner/internal/status"
	"github.com/create2gpu/miner/internal/verifier"
)

// logCPUFeaturesOnce reports the SIMD extensions golang.org/x/sys/cpu
// detected, once per process, before the first CPUSession dispatch loop
// starts — a diagnostic the GPU path has no equivalent for, since that
// path's throughput is bounded by the device, not host SIMD width.
var logCPUFeaturesOnce sync.Once

func logCPUFeatures() {
	logCPUFeaturesOnce.Do(func() {
		log.Printf("cpu fallback: AVX2=%v AVX512F=%v BMI2=%v", cpu.X86.HasAVX2, cpu.X86.HasAVX512F, cpu.X86.HasBMI2)
	})
}

// cpuBatchSize is the host analogue of the kernel's global work size W —
// far smaller than a real GPU dispatch, since every candidate here costs a
// full Go-side Keccak-256 rather than a single GPU lane's cycles.
const cpuBatchSize = 1 << 16

// CPUSession implements Session entirely on the host, scoring
// message.SaltTail(nonce, g) for g in [0, cpuBatchSize) each dispatch.
type CPUSession struct {
	deps Deps

	attempts  uint64 // atomic, batched like the teacher's counter
	startTime time.Time
	done      chan struct{}
}

// OpenCPU builds a ready-to-run CPUSession. It never fails: unlike a GPU
// Session, there is no device enumeration step that can come back
// DeviceUnavailable.
func OpenCPU(deps Deps) *CPUSession {
	return &CPUSession{deps: deps, done: make(chan struct{})}
}

// Run repeatedly scores a batch of candidate salts, reports a Hit to the
// shared sink whenever the predicate improves on best_known_score, and
// refreshes the status row on a 1-second cadence, matching the cadence
// spec section 4.6 requires of GPU Sessions too.
func (s *CPUSession) Run(deadline <-chan struct{}) error {
	logCPUFeatures()
	s.startTime = time.Now()
	cfg := s.deps.Cfg

	bestScore := s.deps.Sink.BestScore()
	lastScoreRefresh := time.Now()
	lastStatusUpdate := time.Now()
	var lastAttempts uint64

	for {
		select {
		case <-deadline:
			return nil
		case <-s.done:
			return nil
		default:
		}

		if time.Since(lastScoreRefresh) >= 5*time.Second {
			bestScore = s.deps.Sink.BestScore()
			lastScoreRefresh = time.Now()
		}

		n, err := randomUint32()
		if err != nil {
			return fmt.Errorf("%w: nonce draw: %v", ErrDispatchFailed, err)
		}

		for g := uint32(0); g < cpuBatchSize; g++ {
			tail := message.SaltTail(n, g)
			salt := message.Salt(tail)

			res, ok := verifier.VerifyDigestOnly(cfg.Deployer, salt, cfg.InitCodeHash, cfg.Predicate, bestScore)
			if !ok {
				continue
			}
			bestScore = res.Score

			hit := newHitRecord(res, cfg.PlatformID, cfg.GPUDevice)
			if err := s.deps.Sink.Append(hit); err != nil {
				return fmt.Errorf("%w: sink append: %v", ErrDispatchFailed, err)
			}
			if s.deps.Renderer != nil {
				s.deps.Renderer.Announce(cfg.PlatformID, cfg.GPUDevice, hit.Address, hit.Salt, hit.Score, res.LeadingOnes, res.TrailingOnes, time.Since(s.startTime))
			}
		}

		atomic.AddUint64(&s.attempts, cpuBatchSize)

		if time.Since(lastStatusUpdate) >= time.Second && s.deps.Renderer != nil {
			now := time.Now()
			total := atomic.LoadUint64(&s.attempts)
			rate := float64(total-lastAttempts) / now.Sub(lastStatusUpdate).Seconds()
			s.deps.Renderer.Update(s.deps.RowIndex, status.Snapshot{
				PlatformID:    cfg.PlatformID,
				DeviceID:      cfg.GPUDevice,
				ElapsedSecs:   now.Sub(s.startTime).Seconds(),
				BatchSize:     cpuBatchSize,
				HashesPerSec:  rate,
				TotalHashes:   total,
				NonceHighWord: n,
				BestScore:     bestScore,
			})
			lastAttempts = total
			lastStatusUpdate = now
		}
	}
}

// Close stops Run at its next batch boundary.
func (s *CPUSession) Close() {
	close(s.done)
}

func randomUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
