// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for unsupported digest sizes, algorithm
	// names, configuration values or undersized output buffers. Nothing in
	// hardware is touched when it is returned.
	ErrInvalidArgument = errors.New("hwhash: invalid argument")

	// ErrInsufficientData is returned when the scatter list ends before the
	// declared message length has been consumed.
	ErrInsufficientData = errors.New("hwhash: lack of data in scatter list")

	// ErrDMAFault is returned when the hardware reports a DMA error on a burst.
	ErrDMAFault = errors.New("hwhash: dma error")

	// ErrFallbackSetup is returned when the software engine for an algorithm
	// could not be created.
	ErrFallbackSetup = errors.New("hwhash: could not load fallback driver")

	// ErrTransientBusy is returned by the loader when the device cannot accept
	// a staged chunk right now. The chunk may be staged again.
	ErrTransientBusy = errors.New("hwhash: engine busy, retry staging")

	// ErrHardwareTimeout is returned when an interrupt does not arrive or the
	// hash core does not settle in time.
	ErrHardwareTimeout = errors.New("hwhash: hardware timeout")

	// ErrEngineBusy is returned when a request is admitted while another one
	// is in flight.
	ErrEngineBusy = errors.New("hwhash: engine has an active request")

	// ErrClosed is returned for requests against a closed engine.
	ErrClosed = errors.New("hwhash: engine closed")

	// ErrDeviceBusy is returned by Device.Map implementations that cannot map
	// a buffer right now.
	ErrDeviceBusy = errors.New("hwhash: device busy")
)

// transientError reports a retryable staging failure. It matches
// ErrTransientBusy and unwraps to the device error.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return ErrTransientBusy.Error() + ": " + e.err.Error()
}

func (e *transientError) Is(target error) bool { return target == ErrTransientBusy }

func (e *transientError) Unwrap() error { return e.err }

// dmaFault wraps ErrDMAFault with the interrupt status that raised it.
func dmaFault(status uint32) error {
	return errors.Wrapf(ErrDMAFault, "interrupt status %#02x", status)
}
