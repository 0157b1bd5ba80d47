// Package difficulty implements the proof-of-work acceptance predicate and
// the adaptive difficulty state transition used by the mining engine.
package difficulty

import "strings"

// Level is the proof-of-work difficulty of a block.
type Level string

// The three difficulty levels the system understands. Meets treats any
// other value as Easy; no warning is logged for it.
const (
	Easy   Level = "easy"
	Medium Level = "medium"
	Hard   Level = "hard"
)

// mediumPrefixes are the leading-six-hex-digit prefixes accepted at Medium
// difficulty.
var mediumPrefixes = [...]string{"000000", "000001", "000002"}

// Meets reports whether hexHash satisfies level's leading-zero-family
// predicate. An unrecognized level is treated as Easy.
func Meets(hexHash string, level Level) bool {
	switch level {
	case Easy:
		return strings.HasPrefix(hexHash, "00000")
	case Medium:
		for _, p := range mediumPrefixes {
			if strings.HasPrefix(hexHash, p) {
				return true
			}
		}
		return false
	case Hard:
		return strings.HasPrefix(hexHash, "000000")
	default:
		return strings.HasPrefix(hexHash, "00000")
	}
}

// Valid reports whether level is one of the three known difficulty levels.
func Valid(level Level) bool {
	switch level {
	case Easy, Medium, Hard:
		return true
	default:
		return false
	}
}

// Next computes the difficulty transition for the next block given the
// observed mining time, in seconds, of the block just mined.
//
// Under 10 seconds escalates (Easy -> Medium -> Hard); over 20 seconds
// relaxes (Hard -> Medium -> Easy); in between is the identity.
func Next(mineTimeSeconds float64, current Level) Level {
	switch {
	case mineTimeSeconds < 10:
		switch current {
		case Easy:
			return Medium
		case Medium:
			return Hard
		default:
			return current
		}
	case mineTimeSeconds > 20:
		switch current {
		case Hard:
			return Medium
		case Medium:
			return Easy
		default:
			return current
		}
	default:
		return current
	}
}
