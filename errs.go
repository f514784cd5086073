// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import "github.com/unccx/SimRT/internal/cerr"

// ErrInvalidTaskParameters is returned when a task is constructed with a
// non-positive or inconsistent execution requirement, deadline, or period, or
// when a task set contains nil or duplicate tasks.
const ErrInvalidTaskParameters = cerr.Error("invalid task parameters")

// ErrInvalidPlatform is returned for platforms without processors or with a
// non-positive processor speed.
const ErrInvalidPlatform = cerr.Error("invalid platform")

// ErrInvalidOption is returned when a simulation option is out of range or
// an analysis is requested by an unknown name.
const ErrInvalidOption = cerr.Error("invalid option")

// ErrHorizonExhausted is returned together with an Unknown verdict when a
// simulation runs out of its event budget or its context is done before it
// reaches the horizon.
const ErrHorizonExhausted = cerr.Error("horizon exhausted")
