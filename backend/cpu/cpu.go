// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/seqadapt/internal/backend/cpu"
	"github.com/born-ml/seqadapt/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend with a randomly seeded dropout source.
//
// Example:
//
//	import (
//	    "github.com/born-ml/seqadapt/backend/cpu"
//	    "github.com/born-ml/seqadapt/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    drop := nn.NewDropout(0.1, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithSeed creates a CPU backend whose dropout masks are reproducible.
func NewWithSeed(seed uint64) *Backend {
	return internalcpu.NewWithSeed(seed)
}
