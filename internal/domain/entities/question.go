package entities

import "time"

const (
	// CorrectScoreCutoff is the score above which an answer counts as correct.
	CorrectScoreCutoff = 0.6
	// DefaultDifficulty is used for questions without a difficulty score.
	DefaultDifficulty = 0.5
	difficultyStep    = 0.05
)

// Question is a single question inside a question set.
type Question struct {
	ID                  int64
	QuestionSetID       int64
	Text                string
	AnswerText          string
	QuestionType        string
	UueFocus            UueStage // empty means UNDERSTAND
	TotalMarksAvailable int
	DifficultyScore     float64 // in [0, 1]

	// Running counters.
	TimesAnsweredCorrectly   int
	TimesAnsweredIncorrectly int
	LastAnswerCorrect        *bool
	CurrentMasteryScore      float64
	LastAnsweredAt           *time.Time
}

// RecordAnswer updates the running counters with a scored answer and
// returns whether the answer counts as correct.
func (q *Question) RecordAnswer(score float64, now time.Time) bool {
	correct := score > CorrectScoreCutoff
	if correct {
		q.TimesAnsweredCorrectly++
	} else {
		q.TimesAnsweredIncorrectly++
	}
	q.LastAnswerCorrect = &correct

	// Questions stored without marks count as a single mark.
	q.CurrentMasteryScore = score / float64(max(1, q.TotalMarksAvailable))

	step := difficultyStep
	if correct {
		step = -difficultyStep
	}
	q.DifficultyScore = clamp01(q.DifficultyScore + step)

	t := now
	q.LastAnsweredAt = &t
	return correct
}

// Focus returns the UUE focus of the question, defaulting to UNDERSTAND.
func (q *Question) Focus() UueStage {
	return FocusOrDefault(q.UueFocus)
}

// MasterySnapshot is one entry of a question set's mastery history.
type MasterySnapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	UnderstandScore     int       `json:"understandScore"`
	UseScore            int       `json:"useScore"`
	ExploreScore        int       `json:"exploreScore"`
	TotalMasteryScore   int       `json:"totalMasteryScore"`
	IntervalDays        int       `json:"intervalDays"`
	ForgottenPercentage float64   `json:"forgottenPercentage"`
}

// QuestionSet is a group of questions reviewed together.
type QuestionSet struct {
	ID       int64
	FolderID *int64 // nullable, sets may live outside folders
	UserID   int64  // owner
	Name     string

	// UUE scores, each in [0, 100].
	UnderstandScore          int
	UseScore                 int
	ExploreScore             int
	CurrentTotalMasteryScore int

	CurrentIntervalDays        int
	NextReviewAt               *time.Time
	LastReviewedAt             *time.Time
	ReviewCount                int
	CurrentForgottenPercentage float64
	MasteryHistory             []MasterySnapshot // append-only

	// Ease-factor sub-state, advanced only by recall reviews.
	Recall ReviewState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppendHistory appends a snapshot without sharing the backing array
// with previous copies of the set.
func (s *QuestionSet) AppendHistory(snap MasterySnapshot) {
	history := make([]MasterySnapshot, len(s.MasteryHistory), len(s.MasteryHistory)+1)
	copy(history, s.MasteryHistory)
	s.MasteryHistory = append(history, snap)
}

// IsDue reports whether the set should be reviewed at now.
func (s *QuestionSet) IsDue(now time.Time) bool {
	return s.NextReviewAt == nil || !now.Before(*s.NextReviewAt)
}

// FolderSnapshot is one entry of a folder's mastery history.
type FolderSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Folder groups question sets and tracks their mean mastery.
type Folder struct {
	ID                  int64
	UserID              int64
	Name                string
	CurrentMasteryScore float64
	MasteryHistory      []FolderSnapshot // append-only
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AppendHistory appends a snapshot without sharing the backing array.
func (f *Folder) AppendHistory(snap FolderSnapshot) {
	history := make([]FolderSnapshot, len(f.MasteryHistory), len(f.MasteryHistory)+1)
	copy(history, f.MasteryHistory)
	f.MasteryHistory = append(history, snap)
}
