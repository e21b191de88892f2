// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package devices reports the accelerators available to a GoMLX backend.
package devices

import (
	"fmt"

	"github.com/gomlx/gomlx/backends"
	"k8s.io/klog/v2"
)

// Report of the devices of a backend.
type Report struct {
	// Backend short name, e.g. "xla".
	Backend string

	// Description of the backend, usually including the PJRT plugin or platform used.
	Description string

	// NumDevices available to the backend.
	NumDevices int
}

// Check returns the Report of the devices available to backend.
func Check(backend backends.Backend) Report {
	return Report{
		Backend:     backend.Name(),
		Description: backend.Description(),
		NumDevices:  int(backend.NumDevices()),
	}
}

// String implements fmt.Stringer.
func (r Report) String() string {
	return fmt.Sprintf("Backend %q: %s\nNum devices available: %d", r.Backend, r.Description, r.NumDevices)
}

// Log the devices report of backend with klog, and returns it.
func Log(backend backends.Backend) Report {
	r := Check(backend)
	klog.Infof("Backend %q (%s): %d device(s) available", r.Backend, r.Description, r.NumDevices)
	if r.NumDevices == 0 {
		klog.Warningf("Backend %q has no devices available", r.Backend)
	}
	return r
}
