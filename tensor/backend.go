// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/seqadapt/internal/tensor"

// Backend defines the array primitives the sequence layers are built on.
//
// Implementations:
//   - backend/cpu: Pure Go
//
// Example:
//
//	import (
//	    "github.com/born-ml/seqadapt/backend/cpu"
//	    "github.com/born-ml/seqadapt/tensor"
//	)
//
//	var backend tensor.Backend = cpu.New()
//	flat := backend.Flatten([]*tensor.RawTensor{a, b}, 1) // one zero row around each item
type Backend = tensor.Backend
