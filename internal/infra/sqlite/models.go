package sqlite

import (
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

// Row types mirror the entity field layout so they convert with a plain
// type conversion. Timestamps are written by the services, never by gorm.

type section struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (section) TableName() string { return "sections" }

type criterion struct {
	ID               int64             `gorm:"primaryKey"`
	SectionID        int64             `gorm:"not null;index:idx_criteria_section_stage"`
	Stage            entities.UueStage `gorm:"not null;index:idx_criteria_section_stage"`
	Weight           float64           `gorm:"not null"`
	MasteryThreshold float64           `gorm:"not null"`
	Title            string
	Description      string
	QuestionTypes    []string  `gorm:"serializer:json"`
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (criterion) TableName() string { return "mastery_criteria" }

type mastery struct {
	UserID      int64 `gorm:"primaryKey;autoIncrement:false"`
	CriterionID int64 `gorm:"primaryKey;autoIncrement:false"`

	SectionID int64             `gorm:"not null;index:idx_mastery_user_section"`
	Stage     entities.UueStage `gorm:"not null"`

	MasteryScore        float64
	IsMastered          bool
	Attempts            int
	ConsecutiveFailures int
	LastAttempt         *time.Time
	MasteredAt          *time.Time

	Review entities.ReviewState `gorm:"embedded;embeddedPrefix:sr_"`

	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (mastery) TableName() string { return "user_criterion_mastery" }

type question struct {
	ID                  int64 `gorm:"primaryKey"`
	QuestionSetID       int64 `gorm:"not null;index"`
	Text                string
	AnswerText          string
	QuestionType        string
	UueFocus            entities.UueStage
	TotalMarksAvailable int
	DifficultyScore     float64

	TimesAnsweredCorrectly   int
	TimesAnsweredIncorrectly int
	LastAnswerCorrect        *bool
	CurrentMasteryScore      float64
	LastAnsweredAt           *time.Time
}

func (question) TableName() string { return "questions" }

type questionSet struct {
	ID       int64  `gorm:"primaryKey"`
	FolderID *int64 `gorm:"index"`
	UserID   int64  `gorm:"not null;index"`
	Name     string

	UnderstandScore          int
	UseScore                 int
	ExploreScore             int
	CurrentTotalMasteryScore int

	CurrentIntervalDays        int
	NextReviewAt               *time.Time
	LastReviewedAt             *time.Time
	ReviewCount                int
	CurrentForgottenPercentage float64
	MasteryHistory             []entities.MasterySnapshot `gorm:"serializer:json"`

	Recall entities.ReviewState `gorm:"embedded;embeddedPrefix:recall_"`

	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (questionSet) TableName() string { return "question_sets" }

type folder struct {
	ID                  int64 `gorm:"primaryKey"`
	UserID              int64 `gorm:"not null;index"`
	Name                string
	CurrentMasteryScore float64
	MasteryHistory      []entities.FolderSnapshot `gorm:"serializer:json"`
	CreatedAt           time.Time                 `gorm:"autoCreateTime:false"`
	UpdatedAt           time.Time                 `gorm:"autoUpdateTime:false"`
}

func (folder) TableName() string { return "folders" }

type studySession struct {
	ID                     uuid.UUID `gorm:"type:text;primaryKey"`
	UserID                 int64     `gorm:"not null"`
	StartedAt              time.Time
	EndedAt                time.Time
	TimeSpentSeconds       int
	AnsweredQuestionsCount int
}

func (studySession) TableName() string { return "user_study_sessions" }

type answer struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey"`
	UserID         int64     `gorm:"not null"`
	SessionID      uuid.UUID `gorm:"type:text;not null;index"`
	QuestionID     int64     `gorm:"not null"`
	QuestionSetID  int64     `gorm:"not null"`
	ScoreAchieved  float64
	IsCorrect      bool
	UueFocusTested entities.UueStage
	UserAnswerText string
	TimeSpent      int
	AnsweredAt     time.Time
}

func (answer) TableName() string { return "user_question_answers" }

type settings struct {
	UserID            int64 `gorm:"primaryKey;autoIncrement:false"`
	DailyStudyMinutes int
	MasteryTier       entities.ThresholdTier
	LearningStyle     entities.LearningStyle
	MinGapDays        *int
	AllowRetrySameDay bool
	Timezone          string
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
}

func (settings) TableName() string { return "user_settings" }

// models lists every table for AutoMigrate.
var models = []any{
	&section{},
	&criterion{},
	&mastery{},
	&question{},
	&questionSet{},
	&folder{},
	&studySession{},
	&answer{},
	&settings{},
}
