// Package entities contains domain entities used across the application.
package entities

import (
	"fmt"
	"strings"
)

// UueStage is one of the three progression stages of a learning section:
// Understand, Use and Explore.
type UueStage string

const (
	StageUnderstand UueStage = "UNDERSTAND" // comprehension of the material
	StageUse        UueStage = "USE"        // application in known contexts
	StageExplore    UueStage = "EXPLORE"    // transfer to new contexts (terminal)
)

// Stages lists the UUE stages in progression order.
var Stages = []UueStage{StageUnderstand, StageUse, StageExplore}

// ParseUueStage accepts both the upper-case stage names and the
// capitalised focus labels stored on questions ("Understand", "Use", "Explore").
func ParseUueStage(s string) (UueStage, error) {
	stage := UueStage(strings.ToUpper(strings.TrimSpace(s)))
	if !stage.Valid() {
		return "", fmt.Errorf("unknown uue stage %q", s)
	}
	return stage, nil
}

// Valid reports whether s is one of the known stages.
func (s UueStage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of the stage in the progression order, or -1.
func (s UueStage) Index() int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s. The second value is false for
// EXPLORE and for unknown stages.
func (s UueStage) Next() (UueStage, bool) {
	i := s.Index()
	if i < 0 || i == len(Stages)-1 {
		return "", false
	}
	return Stages[i+1], true
}

// FocusOrDefault maps an unset question focus to UNDERSTAND.
func FocusOrDefault(s UueStage) UueStage {
	if s.Valid() {
		return s
	}
	return StageUnderstand
}

// ThresholdTier names the mastery bar a user has chosen for stage mastery.
type ThresholdTier string

const (
	TierSurvey     ThresholdTier = "SURVEY"     // basic familiarity
	TierProficient ThresholdTier = "PROFICIENT" // solid understanding
	TierExpert     ThresholdTier = "EXPERT"     // deep mastery
)

var tierValues = map[ThresholdTier]float64{
	TierSurvey:     0.60,
	TierProficient: 0.80,
	TierExpert:     0.95,
}

// ParseThresholdTier parses a tier name case-insensitively.
func ParseThresholdTier(s string) (ThresholdTier, error) {
	tier := ThresholdTier(strings.ToUpper(strings.TrimSpace(s)))
	if !tier.Valid() {
		return "", fmt.Errorf("unknown mastery threshold tier %q", s)
	}
	return tier, nil
}

// Valid reports whether t is a known tier.
func (t ThresholdTier) Valid() bool {
	_, ok := tierValues[t]
	return ok
}

// Value returns the numeric threshold of the tier. Unknown tiers fall back
// to PROFICIENT.
func (t ThresholdTier) Value() float64 {
	if v, ok := tierValues[t]; ok {
		return v
	}
	return tierValues[TierProficient]
}
