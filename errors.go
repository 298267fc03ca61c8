package netonl

import "errors"

// CaptureError and classifier map-read errors are not returned from any
// function here: the former becomes an Error event on the stream, the
// latter is handled inside tsstore as a zero read.
var (
	// ErrInterfaceNotFound is returned by New when no interface with the
	// requested name exists.
	ErrInterfaceNotFound = errors.New("netonl: interface not found")

	// ErrUnsupportedChannel is returned by Start when the userspace data
	// path's datalink channel is not Ethernet.
	ErrUnsupportedChannel = errors.New("netonl: unsupported datalink channel")

	// ErrAttachFailed is returned by Start when the kernel data path's
	// classifier programs fail to load or attach.
	ErrAttachFailed = errors.New("netonl: classifier attach failed")

	// ErrAlreadyStarted is returned by Start if a controller is already
	// active on the requested interface, which includes calling Start more
	// than once on the same Controller.
	ErrAlreadyStarted = errors.New("netonl: controller already started for this interface")
)
