package service

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/intervals"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// UUE weights of the total set mastery.
const (
	UnderstandWeight = 0.4
	UseWeight        = 0.4
	ExploreWeight    = 0.2
)

// QuestionOutcome is one scored answer of a review submission.
type QuestionOutcome struct {
	QuestionID       int64
	ScoreAchieved    float64 // in [0, 1]
	UserAnswerText   string
	TimeSpentSeconds int
}

// SetReviewResult is everything a review submission changed.
type SetReviewResult struct {
	Session *entities.UserStudySession
	Answers []*entities.UserQuestionAnswer
	Sets    []*entities.QuestionSet // in order of first appearance in the outcomes
	Folders []*entities.Folder
}

// SetReviewEngine applies review sessions at question-set granularity.
type SetReviewEngine struct {
	clock
	store    repository.Store
	strategy intervals.Strategy
	logger   *zap.Logger
}

// NewSetReviewEngine creates the engine. strategy maps the total mastery
// score of a set to its next review.
func NewSetReviewEngine(store repository.Store, strategy intervals.Strategy, logger *zap.Logger) *SetReviewEngine {
	return &SetReviewEngine{
		clock:    systemClock(),
		store:    store,
		strategy: strategy,
		logger:   logger,
	}
}

// ProcessReview records the session and its answers, updates question
// counters, recomputes the UUE scores, schedule and forgetting estimate of
// every affected set and the mean mastery of their folders. Everything is
// written in one transaction; a missing question fails the whole session.
func (e *SetReviewEngine) ProcessReview(ctx context.Context, userID int64, outcomes []QuestionOutcome, sessionStart time.Time, durationSeconds int) (*SetReviewResult, error) {
	ctx, span := tracer.Start(ctx, "SetReviewEngine.ProcessReview")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int("outcomes", len(outcomes)))

	if len(outcomes) == 0 {
		return nil, validationErr("review has no outcomes")
	}
	if durationSeconds < 0 {
		return nil, validationErr("negative session duration")
	}
	for _, o := range outcomes {
		if math.IsNaN(o.ScoreAchieved) || o.ScoreAchieved < 0 || o.ScoreAchieved > 1 {
			return nil, validationErr("score %v of question %d outside [0, 1]", o.ScoreAchieved, o.QuestionID)
		}
	}

	now := e.now()
	var res *SetReviewResult
	err := e.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		res, err = e.apply(ctx, r, userID, outcomes, sessionStart, durationSeconds, now)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify("process set review", err)
	}

	for _, set := range res.Sets {
		e.logger.Info("question set reviewed",
			zap.Int64("user_id", userID),
			zap.Int64("set_id", set.ID),
			zap.Int("total_mastery", set.CurrentTotalMasteryScore),
			zap.Int("interval_days", set.CurrentIntervalDays),
		)
	}
	return res, nil
}

func (e *SetReviewEngine) apply(ctx context.Context, r repository.Repos, userID int64, outcomes []QuestionOutcome, start time.Time, duration int, now time.Time) (*SetReviewResult, error) {
	session := entities.NewUserStudySession(userID, start, now, duration, len(outcomes))
	if err := r.Sessions().CreateSession(ctx, session); err != nil {
		return nil, err
	}
	res := &SetReviewResult{Session: session}

	// State of every question answered in this session, grouped by set.
	var setOrder []int64
	answered := make(map[int64]map[int64]*entities.Question)

	for _, o := range outcomes {
		q, err := r.Questions().GetForUpdate(ctx, o.QuestionID)
		if err != nil {
			return nil, err
		}

		correct := q.RecordAnswer(o.ScoreAchieved, now)

		answer := entities.NewUserQuestionAnswer(session, q, o.ScoreAchieved, correct)
		answer.UserAnswerText = o.UserAnswerText
		answer.TimeSpent = max(0, o.TimeSpentSeconds)
		if err := r.Sessions().CreateAnswer(ctx, answer); err != nil {
			return nil, err
		}
		if err := r.Questions().Update(ctx, q); err != nil {
			return nil, err
		}
		res.Answers = append(res.Answers, answer)

		byQuestion, ok := answered[q.QuestionSetID]
		if !ok {
			byQuestion = make(map[int64]*entities.Question)
			answered[q.QuestionSetID] = byQuestion
			setOrder = append(setOrder, q.QuestionSetID)
		}
		byQuestion[q.ID] = q
	}

	var folderOrder []int64
	folders := make(map[int64]bool)

	for _, setID := range setOrder {
		set, err := r.QuestionSets().GetForUpdate(ctx, setID)
		if err != nil {
			return nil, err
		}
		questions, err := r.Questions().ListBySet(ctx, setID)
		if err != nil {
			return nil, err
		}
		for i, q := range questions {
			if fresh, ok := answered[setID][q.ID]; ok {
				questions[i] = fresh
			}
		}
		if err := e.rescore(set, questions, now); err != nil {
			return nil, err
		}
		if err := r.QuestionSets().Update(ctx, set); err != nil {
			return nil, err
		}
		res.Sets = append(res.Sets, set)

		if set.FolderID != nil && !folders[*set.FolderID] {
			folders[*set.FolderID] = true
			folderOrder = append(folderOrder, *set.FolderID)
		}
	}

	for _, folderID := range folderOrder {
		folder, err := refreshFolder(ctx, r, folderID, now)
		if err != nil {
			return nil, err
		}
		res.Folders = append(res.Folders, folder)
	}

	return res, nil
}

// rescore recomputes the UUE scores and schedule of a set from the latest
// answer of every question in it. Questions never answered score 0.
func (e *SetReviewEngine) rescore(set *entities.QuestionSet, questions []*entities.Question, now time.Time) error {
	var sums [3]float64
	var counts [3]int
	for _, q := range questions {
		i := q.Focus().Index()
		if q.LastAnsweredAt != nil {
			sums[i] += q.CurrentMasteryScore
		}
		counts[i]++
	}

	var scores [3]int
	for i := range scores {
		if counts[i] > 0 {
			scores[i] = clampScore(math.Round(sums[i] / float64(counts[i]) * 100))
		}
	}
	understand, use, explore := scores[0], scores[1], scores[2]
	total := clampScore(math.Round(
		float64(understand)*UnderstandWeight + float64(use)*UseWeight + float64(explore)*ExploreWeight,
	))

	schedule, err := e.strategy.Next(intervals.Input{
		Score: float64(total),
		State: entities.ReviewState{IntervalDays: set.CurrentIntervalDays, NextReviewAt: set.NextReviewAt},
		Now:   now,
	})
	if err != nil {
		return err
	}

	forgotten := 0.0
	if set.LastReviewedAt != nil {
		days := math.Max(1, math.Floor(now.Sub(*set.LastReviewedAt).Hours()/24))
		forgotten = intervals.ForgottenPercentage(days, set.ReviewCount, true)
	}

	next := schedule.NextReviewAt
	reviewedAt := now

	set.UnderstandScore = understand
	set.UseScore = use
	set.ExploreScore = explore
	set.CurrentTotalMasteryScore = total
	set.CurrentIntervalDays = schedule.IntervalDays
	set.NextReviewAt = &next
	set.LastReviewedAt = &reviewedAt
	set.ReviewCount++
	set.CurrentForgottenPercentage = forgotten
	set.UpdatedAt = now
	set.AppendHistory(entities.MasterySnapshot{
		Timestamp:           now,
		UnderstandScore:     understand,
		UseScore:            use,
		ExploreScore:        explore,
		TotalMasteryScore:   total,
		IntervalDays:        schedule.IntervalDays,
		ForgottenPercentage: forgotten,
	})
	return nil
}

// refreshFolder sets the folder mastery to the mean total mastery of its
// sets and appends it to the folder history.
func refreshFolder(ctx context.Context, r repository.Repos, folderID int64, now time.Time) (*entities.Folder, error) {
	folder, err := r.Folders().GetForUpdate(ctx, folderID)
	if err != nil {
		return nil, err
	}
	sets, err := r.QuestionSets().ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var sum float64
	for _, s := range sets {
		sum += float64(s.CurrentTotalMasteryScore)
	}
	score := 0.0
	if len(sets) > 0 {
		score = sum / float64(len(sets))
	}

	folder.CurrentMasteryScore = score
	folder.UpdatedAt = now
	folder.AppendHistory(entities.FolderSnapshot{Timestamp: now, Score: score})
	if err := r.Folders().Update(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// DueSets returns the user's sets that were never reviewed or whose next
// review time has passed.
func (e *SetReviewEngine) DueSets(ctx context.Context, userID int64) ([]*entities.QuestionSet, error) {
	now := e.now()
	var due []*entities.QuestionSet
	err := e.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		sets, err := r.QuestionSets().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, s := range sets {
			if s.IsDue(now) {
				due = append(due, s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify("due question sets", err)
	}
	return due, nil
}

func clampScore(v float64) int {
	return int(math.Max(0, math.Min(100, v)))
}
