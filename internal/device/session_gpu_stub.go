//go:build !opencl
// +build !opencl

package device

import "fmt"

// Enumerate returns no GPU devices when the binary was built without the
// opencl tag, since there is no libOpenCL linkage to query.
func Enumerate() ([]Info, error) {
	return nil, nil
}

// OpenGPU always fails with ErrDeviceUnavailable on a build without the
// opencl tag; rebuild with `-tags opencl` to enable GPU Sessions.
func OpenGPU(deps Deps) (*GPUSession, error) {
	return nil, fmt.Errorf("%w: binary built without -tags opencl", ErrDeviceUnavailable)
}

// GPUSession is an empty placeholder type so callers can reference
// *device.GPUSession in build-tag-independent code.
type GPUSession struct{}

func (s *GPUSession) Run(deadline <-chan struct{}) error { return nil }
func (s *GPUSession) Close()                             {}
