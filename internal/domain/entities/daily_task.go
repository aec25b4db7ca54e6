package entities

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the capacity bucket of a daily task.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL" // overdue or repeatedly failed, never dropped
	PriorityCore     Priority = "CORE"     // due today or never reviewed
	PriorityPlus     Priority = "PLUS"     // reinforcement and next stage preview
)

// Difficulty is the suggested question difficulty for a task.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// DifficultyForStage maps a UUE stage to the question difficulty of its tasks.
func DifficultyForStage(stage UueStage) Difficulty {
	switch stage {
	case StageUnderstand:
		return DifficultyEasy
	case StageExplore:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// DailyTask is a scheduling-time projection of a due criterion.
// It is built fresh on every scheduling call and never persisted.
type DailyTask struct {
	ID            uuid.UUID
	CriterionID   int64
	SectionID     int64
	Stage         UueStage
	Title         string
	Priority      Priority
	EstimatedTime int     // minutes
	MasteryScore  float64 // in [0, 1]
	DaysOverdue   int
	QuestionTypes []string
	QuestionCount int
	Difficulty    Difficulty
	IsPreview     bool // criterion belongs to the next, not yet started stage
}

// TaskBucket is one priority bucket of the daily plan.
type TaskBucket struct {
	Priority      Priority
	Tasks         []DailyTask
	EstimatedTime int // minutes
}

// Count returns the number of tasks in the bucket.
func (b TaskBucket) Count() int {
	return len(b.Tasks)
}

// CapacityAnalysis describes how the due work fits into the daily capacity.
type CapacityAnalysis struct {
	UserCapacity        int     // minutes per day
	RequiredCapacity    int     // minutes needed for every due task
	UsedCapacity        int     // minutes of the scheduled tasks
	RemainingCapacity   int     // max(0, UserCapacity - UsedCapacity)
	CapacityUtilization float64 // UsedCapacity / UserCapacity * 100
	CapacityGap         int     // RequiredCapacity - UserCapacity
	CriticalOverflow    int     // critical tasks scheduled beyond capacity
	CoreOverflow        int
	PlusOverflow        int
	Recommendations     []string
}

// TodaysTasks is the capacity-bounded daily plan of a user.
type TodaysTasks struct {
	UserID          int64
	Date            string // YYYY-MM-DD in the user's time zone
	GeneratedAt     time.Time
	Critical        TaskBucket
	Core            TaskBucket
	Plus            TaskBucket
	Overflow        []DailyTask
	TotalTasks      int
	EstimatedTime   int // minutes
	Capacity        CapacityAnalysis
	Recommendations []string
}
