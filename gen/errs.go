// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package gen

import "github.com/unccx/SimRT/internal/cerr"

const (
	ErrInvalidConfig               = cerr.Error("invalid generator configuration")
	ErrInfeasibleGenerationRequest = cerr.Error("infeasible generation request")
	ErrInsufficientPoolSize        = cerr.Error("insufficient pool size")
)
