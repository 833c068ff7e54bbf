package domain

import (
	"regexp"
	"strings"
)

// KeySeparator joins the three segments of a QNTM key.
const KeySeparator = " ~ "

// AbstractionLevel orders QNTM keys by increasing generality.
type AbstractionLevel int

// Abstraction levels, from instance-specific to abstract principle.
const (
	LevelInstance AbstractionLevel = iota
	LevelTopic
	LevelConcept
	LevelPrinciple
)

// String returns the level's display name.
func (l AbstractionLevel) String() string {
	switch l {
	case LevelInstance:
		return "Instance"
	case LevelTopic:
		return "Topic"
	case LevelConcept:
		return "Concept"
	case LevelPrinciple:
		return "Principle"
	default:
		return "Unknown"
	}
}

// Valid reports whether l is one of the four defined levels.
func (l AbstractionLevel) Valid() bool {
	return l >= LevelInstance && l <= LevelPrinciple
}

// GenerationResult is the parsed outcome of a key-generation completion.
// Keys typically holds 1-3 entries but the contract does not enforce an
// upper bound; callers must tolerate zero or many.
type GenerationResult struct {
	Keys      []string `json:"keys"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// ValidKey reports whether key has the canonical ternary form
// "subject ~ predicate ~ object": exactly two separators, no empty segments.
func ValidKey(key string) bool {
	segments := strings.Split(key, KeySeparator)
	if len(segments) != 3 {
		return false
	}
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return false
		}
	}
	return true
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// SanitizeKey turns a QNTM key into a safe identifier: "@" is dropped,
// "~" and whitespace runs become "_", anything outside [a-zA-Z0-9_-] is
// stripped, runs of "_" collapse, and the result is lower-cased.
// Total function; never fails.
func SanitizeKey(key string) string {
	s := strings.ReplaceAll(key, "@", "")
	s = strings.ReplaceAll(s, "~", "_")
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = invalidRe.ReplaceAllString(s, "")
	s = underscoreRe.ReplaceAllString(s, "_")
	return strings.ToLower(s)
}
