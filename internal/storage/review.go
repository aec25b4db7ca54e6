package storage

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type questionRepo struct{ *repos }

func (r questionRepo) Create(_ context.Context, q *entities.Question) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if q.ID == 0 {
		q.ID = r.st.newID()
	}
	r.st.questions[q.ID] = *q
	return nil
}

func (r questionRepo) GetForUpdate(_ context.Context, id int64) (*entities.Question, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	q, ok := r.st.questions[id]
	if !ok {
		return nil, repository.ErrQuestionNotFound
	}
	return &q, nil
}

func (r questionRepo) Update(_ context.Context, q *entities.Question) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if _, ok := r.st.questions[q.ID]; !ok {
		return repository.ErrQuestionNotFound
	}
	r.st.questions[q.ID] = *q
	return nil
}

func (r questionRepo) ListBySet(_ context.Context, setID int64) ([]*entities.Question, error) {
	var out []*entities.Question
	for _, q := range r.st.questions {
		if q.QuestionSetID == setID {
			out = append(out, &q)
		}
	}
	slices.SortFunc(out, func(a, b *entities.Question) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type setRepo struct{ *repos }

func (r setRepo) Create(_ context.Context, s *entities.QuestionSet) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if s.ID == 0 {
		s.ID = r.st.newID()
	}
	r.st.sets[s.ID] = *s
	return nil
}

func (r setRepo) GetByID(_ context.Context, id int64) (*entities.QuestionSet, error) {
	s, ok := r.st.sets[id]
	if !ok {
		return nil, repository.ErrQuestionSetNotFound
	}
	return &s, nil
}

func (r setRepo) GetForUpdate(ctx context.Context, id int64) (*entities.QuestionSet, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r setRepo) Update(_ context.Context, s *entities.QuestionSet) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if _, ok := r.st.sets[s.ID]; !ok {
		return repository.ErrQuestionSetNotFound
	}
	r.st.sets[s.ID] = *s
	return nil
}

func (r setRepo) ListByFolder(_ context.Context, folderID int64) ([]*entities.QuestionSet, error) {
	return r.filter(func(s entities.QuestionSet) bool {
		return s.FolderID != nil && *s.FolderID == folderID
	}), nil
}

func (r setRepo) ListByUser(_ context.Context, userID int64) ([]*entities.QuestionSet, error) {
	return r.filter(func(s entities.QuestionSet) bool {
		return s.UserID == userID
	}), nil
}

func (r setRepo) ListUserIDs(_ context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	for _, s := range r.st.sets {
		seen[s.UserID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (r setRepo) filter(keep func(entities.QuestionSet) bool) []*entities.QuestionSet {
	var out []*entities.QuestionSet
	for _, s := range r.st.sets {
		if keep(s) {
			out = append(out, &s)
		}
	}
	slices.SortFunc(out, func(a, b *entities.QuestionSet) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

type sessionRepo struct{ *repos }

func (r sessionRepo) CreateSession(_ context.Context, s *entities.UserStudySession) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.st.sessions[s.ID] = *s
	return nil
}

func (r sessionRepo) CreateAnswer(_ context.Context, a *entities.UserQuestionAnswer) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if _, ok := r.st.sessions[a.SessionID]; !ok {
		return repository.ErrSessionNotFound
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.st.answers[a.ID] = *a
	return nil
}

func (r sessionRepo) ListAnswers(_ context.Context, sessionID uuid.UUID) ([]*entities.UserQuestionAnswer, error) {
	var out []*entities.UserQuestionAnswer
	for _, a := range r.st.answers {
		if a.SessionID == sessionID {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *entities.UserQuestionAnswer) int {
		return cmp.Or(
			a.AnsweredAt.Compare(b.AnsweredAt),
			cmp.Compare(a.QuestionID, b.QuestionID),
		)
	})
	return out, nil
}

type folderRepo struct{ *repos }

func (r folderRepo) Create(_ context.Context, f *entities.Folder) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if f.ID == 0 {
		f.ID = r.st.newID()
	}
	r.st.folders[f.ID] = *f
	return nil
}

func (r folderRepo) GetByID(_ context.Context, id int64) (*entities.Folder, error) {
	f, ok := r.st.folders[id]
	if !ok {
		return nil, repository.ErrFolderNotFound
	}
	return &f, nil
}

func (r folderRepo) GetForUpdate(ctx context.Context, id int64) (*entities.Folder, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r folderRepo) Update(_ context.Context, f *entities.Folder) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if _, ok := r.st.folders[f.ID]; !ok {
		return repository.ErrFolderNotFound
	}
	r.st.folders[f.ID] = *f
	return nil
}
