//go:build opencl
// +build opencl

// ============================================================================
// GPU SESSION: OpenCL-Backed Dispatch Loop
// ============================================================================
//
// Grounded on eafb862b_Amr-9-HexHunter's generator-gpu_opencl.go (cgo
// preamble, platform/device enumeration, clCreateBuffer/clEnqueueNDRange-
// Kernel/clEnqueueReadBuffer sequence, //go:embed kernel loading) and
// original_source gpu.rs's buffer layout (message/nonce/solutions/
// has_solution/digest_output, 5-second best-score refresh, 1-second
// status cadence).
package device

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows LDFLAGS: -lOpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
*/
import "C"

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"time"
	"unsafe"

	"github.com/create2gpu/miner/internal/config"
	"github.com/create2gpu/miner/internal/message"
	"github.com/create2gpu/miner/internal/status"
	"github.com/create2gpu/miner/internal/verifier"
)

//go:embed kernels/keccak256.cl
var kernelFS embed.FS

// workSize is the global work size W of spec section 4.1 — the number of
// candidate salts evaluated per kernel dispatch.
const workSize = 1 << 20

// GPUSession implements Session against a real OpenCL device.
type GPUSession struct {
	deps Deps

	platform C.cl_platform_id
	dev      C.cl_device_id
	ctx      C.cl_context
	queue    C.cl_command_queue
	program  C.cl_program
	kernel   C.cl_kernel

	bufMessage     C.cl_mem
	bufNonce       C.cl_mem
	bufSolutions   C.cl_mem
	bufHasSolution C.cl_mem
	bufDigest      C.cl_mem

	msg       [message.Size]byte
	startTime time.Time
	done      chan struct{}
}

// Enumerate lists every GPU device across every OpenCL platform, used by
// ModeAllGPUs (spec section 4.5).
func Enumerate() ([]Info, error) {
	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || numPlatforms == 0 {
		return nil, nil
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)

	var infos []Info
	for pIdx, p := range platforms {
		var numDevices C.cl_uint
		if C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
			continue
		}
		devices := make([]C.cl_device_id, numDevices)
		C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, numDevices, &devices[0], nil)
		for dIdx := range devices {
			infos = append(infos, Info{
				PlatformID: uint32(pIdx),
				DeviceID:   uint32(dIdx),
				IsGPU:      true,
			})
		}
	}
	return infos, nil
}

// OpenGPU selects (cfg.PlatformID, cfg.GPUDevice), builds the context,
// queue, program, kernel, and the five fixed buffers spec section 4.1
// names. It fails with ErrDeviceUnavailable if either id is out of range
// or creating the context, queue, program or kernel fails; a failure to
// create the buffers or set the kernel arguments is reported as
// ErrDispatchFailed.
func OpenGPU(deps Deps) (*GPUSession, error) {
	cfg := deps.Cfg

	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || numPlatforms == 0 {
		return nil, fmt.Errorf("%w: no OpenCL platforms", ErrDeviceUnavailable)
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)
	if uint32(numPlatforms) <= cfg.PlatformID {
		return nil, fmt.Errorf("%w: platform id %d out of range (have %d)", ErrDeviceUnavailable, cfg.PlatformID, numPlatforms)
	}
	platform := platforms[cfg.PlatformID]

	var numDevices C.cl_uint
	if C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
		return nil, fmt.Errorf("%w: no GPU devices on platform %d", ErrDeviceUnavailable, cfg.PlatformID)
	}
	devices := make([]C.cl_device_id, numDevices)
	C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_GPU, numDevices, &devices[0], nil)
	if uint32(numDevices) <= cfg.GPUDevice {
		return nil, fmt.Errorf("%w: device id %d out of range (have %d)", ErrDeviceUnavailable, cfg.GPUDevice, numDevices)
	}
	dev := devices[cfg.GPUDevice]

	var ret C.cl_int
	s := &GPUSession{deps: deps, platform: platform, dev: dev, done: make(chan struct{})}

	s.ctx = C.clCreateContext(nil, 1, &dev, nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: clCreateContext: %d", ErrDeviceUnavailable, ret)
	}
	s.queue = C.clCreateCommandQueue(s.ctx, dev, 0, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: clCreateCommandQueue: %d", ErrDeviceUnavailable, ret)
	}

	src, err := kernelFS.ReadFile("kernels/keccak256.cl")
	if err != nil {
		return nil, fmt.Errorf("%w: reading embedded kernel: %v", ErrDeviceUnavailable, err)
	}
	cSrc := C.CString(string(src))
	defer C.free(unsafe.Pointer(cSrc))
	length := C.size_t(len(src))
	s.program = C.clCreateProgramWithSource(s.ctx, 1, &cSrc, &length, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: clCreateProgramWithSource: %d", ErrDeviceUnavailable, ret)
	}
	if C.clBuildProgram(s.program, 1, &dev, nil, nil, nil) != C.CL_SUCCESS {
		var logSize C.size_t
		C.clGetProgramBuildInfo(s.program, dev, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)
		buildLog := make([]byte, logSize)
		if logSize > 0 {
			C.clGetProgramBuildInfo(s.program, dev, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buildLog[0]), nil)
		}
		return nil, fmt.Errorf("%w: program build failed: %s", ErrDeviceUnavailable, string(buildLog))
	}

	kName := C.CString("hashMessage")
	defer C.free(unsafe.Pointer(kName))
	s.kernel = C.clCreateKernel(s.program, kName, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: clCreateKernel: %d", ErrDeviceUnavailable, ret)
	}

	minLeading, minTrailing := cfg.Predicate.KernelFilter()
	bestScore := deps.Sink.BestScore()
	s.msg = message.Build(cfg.Deployer, cfg.InitCodeHash, minLeading, minTrailing, uint8(min32(bestScore, 255)))

	if err := s.createBuffers(); err != nil {
		return nil, err
	}
	if err := s.setKernelArgs(); err != nil {
		return nil, err
	}

	return s, nil
}

func min32(a uint32, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func (s *GPUSession) createBuffers() error {
	var ret C.cl_int

	s.bufMessage = C.clCreateBuffer(s.ctx, C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR,
		C.size_t(message.Size), unsafe.Pointer(&s.msg[0]), &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: message buffer: %d", ErrDispatchFailed, ret)
	}

	s.bufNonce = C.clCreateBuffer(s.ctx, C.CL_MEM_READ_ONLY, C.size_t(4), nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: nonce buffer: %d", ErrDispatchFailed, ret)
	}

	s.bufSolutions = C.clCreateBuffer(s.ctx, C.CL_MEM_READ_WRITE, C.size_t(3*8), nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: solutions buffer: %d", ErrDispatchFailed, ret)
	}

	s.bufHasSolution = C.clCreateBuffer(s.ctx, C.CL_MEM_READ_WRITE, C.size_t(4), nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: has_solution buffer: %d", ErrDispatchFailed, ret)
	}

	s.bufDigest = C.clCreateBuffer(s.ctx, C.CL_MEM_READ_WRITE, C.size_t(200), nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: digest_output buffer: %d", ErrDispatchFailed, ret)
	}
	return nil
}

func (s *GPUSession) setKernelArgs() error {
	args := []C.cl_mem{s.bufMessage, s.bufNonce, s.bufSolutions, s.bufHasSolution, s.bufDigest}
	for i, buf := range args {
		b := buf
		if C.clSetKernelArg(s.kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(b)), unsafe.Pointer(&b)) != C.CL_SUCCESS {
			return fmt.Errorf("%w: clSetKernelArg %d", ErrDispatchFailed, i)
		}
	}
	return nil
}

// Run repeatedly refreshes the best-score filter byte, draws a random
// nonce, dispatches the kernel, and harvests/verifies any reported
// winner, per spec sections 4.1-4.2.
func (s *GPUSession) Run(deadline <-chan struct{}) error {
	s.startTime = time.Now()
	cfg := s.deps.Cfg

	lastScoreRefresh := time.Now()
	lastStatusUpdate := time.Now()
	var cumulative uint64
	var lastCumulative uint64

	for {
		select {
		case <-deadline:
			return nil
		case <-s.done:
			return nil
		default:
		}

		if time.Since(lastScoreRefresh) >= 5*time.Second {
			best := s.deps.Sink.BestScore()
			message.SetBestScore(&s.msg, best)
			if ret := C.clEnqueueWriteBuffer(s.queue, s.bufMessage, C.CL_TRUE, 0, C.size_t(message.Size),
				unsafe.Pointer(&s.msg[0]), 0, nil, nil); ret != C.CL_SUCCESS {
				return fmt.Errorf("%w: refreshing message buffer: %d", ErrDispatchFailed, ret)
			}
			lastScoreRefresh = time.Now()
		}

		n, err := randomUint32()
		if err != nil {
			return fmt.Errorf("%w: nonce draw: %v", ErrDispatchFailed, err)
		}

		zero := uint32(0)
		if ret := C.clEnqueueWriteBuffer(s.queue, s.bufHasSolution, C.CL_TRUE, 0, 4, unsafe.Pointer(&zero), 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("%w: resetting has_solution: %d", ErrDispatchFailed, ret)
		}
		if ret := C.clEnqueueWriteBuffer(s.queue, s.bufNonce, C.CL_TRUE, 0, 4, unsafe.Pointer(&n), 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("%w: writing nonce: %d", ErrDispatchFailed, ret)
		}

		global := C.size_t(workSize)
		if ret := C.clEnqueueNDRangeKernel(s.queue, s.kernel, 1, nil, &global, nil, 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("%w: clEnqueueNDRangeKernel: %d", ErrDispatchFailed, ret)
		}

		var solutions [3]uint64
		if ret := C.clEnqueueReadBuffer(s.queue, s.bufSolutions, C.CL_TRUE, 0, 24, unsafe.Pointer(&solutions[0]), 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("%w: reading solutions: %d", ErrDispatchFailed, ret)
		}
		var hasSolution uint32
		if ret := C.clEnqueueReadBuffer(s.queue, s.bufHasSolution, C.CL_TRUE, 0, 4, unsafe.Pointer(&hasSolution), 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("%w: reading has_solution: %d", ErrDispatchFailed, ret)
		}

		if hasSolution != 0 {
			var digest [200]byte
			if ret := C.clEnqueueReadBuffer(s.queue, s.bufDigest, C.CL_TRUE, 0, 200, unsafe.Pointer(&digest[0]), 0, nil, nil); ret != C.CL_SUCCESS {
				return fmt.Errorf("%w: reading digest_output: %d", ErrDispatchFailed, ret)
			}
			if err := s.harvest(solutions, digest, cfg); err != nil {
				return err
			}
		}

		cumulative += workSize

		if time.Since(lastStatusUpdate) >= time.Second {
			now := time.Now()
			rate := float64(cumulative-lastCumulative) / now.Sub(lastStatusUpdate).Seconds()
			s.deps.Renderer.Update(s.deps.RowIndex, status.Snapshot{
				PlatformID:    cfg.PlatformID,
				DeviceID:      cfg.GPUDevice,
				ElapsedSecs:   now.Sub(s.startTime).Seconds(),
				BatchSize:     workSize,
				HashesPerSec:  rate,
				TotalHashes:   cumulative,
				NonceHighWord: n,
				BestScore:     s.deps.Sink.BestScore(),
			})
			lastCumulative = cumulative
			lastStatusUpdate = now
		}
	}
}

func (s *GPUSession) harvest(solutions [3]uint64, digest [200]byte, cfg config.Config) error {
	var tailBytes [8]byte
	for i := 0; i < 8; i++ {
		tailBytes[i] = byte(solutions[0] >> (8 * (7 - i)))
	}
	salt := message.Salt(tailBytes)

	var kernelDigest [32]byte
	copy(kernelDigest[:], digest[:32])

	bestScore := s.deps.Sink.BestScore()
	res, ok, err := verifier.Verify(cfg.Deployer, salt, cfg.InitCodeHash, kernelDigest, cfg.Predicate, bestScore)
	if err != nil {
		if errors.Is(err, verifier.ErrMismatchRejected) {
			log.Printf("P%d-D%d: MismatchRejected: %v", cfg.PlatformID, cfg.GPUDevice, err)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	if !ok {
		return nil
	}

	hit := newHitRecord(res, cfg.PlatformID, cfg.GPUDevice)
	if err := s.deps.Sink.Append(hit); err != nil {
		return fmt.Errorf("%w: sink append: %v", ErrDispatchFailed, err)
	}
	s.deps.Renderer.Announce(cfg.PlatformID, cfg.GPUDevice, hit.Address, hit.Salt, hit.Score, res.LeadingOnes, res.TrailingOnes, time.Since(s.startTime))
	return nil
}

// Close releases every OpenCL object this Session created, matching spec
// section 5's guidance to free device buffers on teardown.
func (s *GPUSession) Close() {
	close(s.done)
	if s.kernel != nil {
		C.clReleaseKernel(s.kernel)
	}
	if s.program != nil {
		C.clReleaseProgram(s.program)
	}
	for _, buf := range []C.cl_mem{s.bufMessage, s.bufNonce, s.bufSolutions, s.bufHasSolution, s.bufDigest} {
		if buf != nil {
			C.clReleaseMemObject(buf)
		}
	}
	if s.queue != nil {
		C.clReleaseCommandQueue(s.queue)
	}
	if s.ctx != nil {
		C.clReleaseContext(s.ctx)
	}
}
