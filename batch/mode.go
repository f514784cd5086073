// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package batch

import (
	"fmt"
	"strings"
)

// Mode selects how each task set is evaluated.
type Mode uint8

const (
	// ModeSimulate runs the simulator only.
	ModeSimulate Mode = iota
	// ModeAnalyze runs the sufficient test only.
	ModeAnalyze
	// ModeBoth runs the sufficient test, then the simulator.
	ModeBoth
)

var modeNames = [...]string{
	ModeSimulate: "simulate",
	ModeAnalyze:  "analyze",
	ModeBoth:     "both",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, ErrInvalidConfig.Detail("unknown mode %q", s)
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) simulates() bool { return m == ModeSimulate || m == ModeBoth }
func (m Mode) analyzes() bool  { return m == ModeAnalyze || m == ModeBoth }
