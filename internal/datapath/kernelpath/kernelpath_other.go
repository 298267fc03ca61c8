//go:build !linux

package kernelpath

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by Start on any platform without TC/eBPF
// support. The kernel data path is Linux-only; non-Linux builds keep this
// package compilable (for cross-compiled tooling, vet, and tests) without
// offering the capability.
var ErrUnsupported = errors.New("kernelpath: kernel data path is only supported on linux")

func (d *DataPath) Start(ctx context.Context) error {
	return ErrUnsupported
}

func (d *DataPath) Stop() error {
	return nil
}
