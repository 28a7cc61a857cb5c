// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
)

// fakeService stands in for a detector, ingest or HTTP service. It returns
// an error on its first failFirst runs and then blocks until canceled.
type fakeService struct {
	name      string
	failFirst int32
	runs      atomic.Int32
	returns   atomic.Int32
}

func newFakeService(name string, failFirst int32) *fakeService {
	return &fakeService{name: name, failFirst: failFirst}
}

func (f *fakeService) Serve(ctx context.Context) error {
	n := f.runs.Add(1)
	defer f.returns.Add(1)

	if n <= f.failFirst {
		return fmt.Errorf("%s: simulated crash %d", f.name, n)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }

// SetFailCount sets how many initial runs return an error. Call it before
// the service is started.
func (f *fakeService) SetFailCount(n int32) { f.failFirst = n }
