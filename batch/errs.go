// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package batch

import (
	"github.com/unccx/SimRT/internal/cerr"
	"github.com/unccx/SimRT/internal/workpool"
)

const (
	ErrInvalidConfig = cerr.Error("invalid batch configuration")

	// ErrEvaluationPanic is the error of an item whose evaluation panicked.
	ErrEvaluationPanic = workpool.ErrTaskPanic
)
