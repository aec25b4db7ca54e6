package entities

import (
	"errors"
	"time"
)

var (
	ErrInvalidWeight    = errors.New("criterion weight must be positive")
	ErrInvalidThreshold = errors.New("criterion mastery threshold must be within [0, 1]")
	ErrInvalidStage     = errors.New("unknown uue stage")
)

// Section is a learning section that owns mastery criteria.
type Section struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// MasteryCriterion is the smallest assessable unit of knowledge inside a
// section. Each criterion belongs to exactly one UUE stage.
type MasteryCriterion struct {
	ID               int64
	SectionID        int64
	Stage            UueStage
	Weight           float64  // relative importance within the stage
	MasteryThreshold float64  // score in [0, 1] at which the criterion counts as mastered
	Title            string
	Description      string
	QuestionTypes    []string // acceptable question types for this criterion
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks the invariants of a criterion before it is stored.
func (c *MasteryCriterion) Validate() error {
	if !c.Stage.Valid() {
		return ErrInvalidStage
	}
	if c.Weight <= 0 {
		return ErrInvalidWeight
	}
	if c.MasteryThreshold < 0 || c.MasteryThreshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}
