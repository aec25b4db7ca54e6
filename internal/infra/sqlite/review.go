package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type questionRepo struct{ *repos }

func (r questionRepo) Create(ctx context.Context, q *entities.Question) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := question(*q)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	q.ID = row.ID
	return nil
}

func (r questionRepo) GetForUpdate(ctx context.Context, id int64) (*entities.Question, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	var row question
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, repository.ErrQuestionNotFound)
	}
	q := entities.Question(row)
	return &q, nil
}

func (r questionRepo) Update(ctx context.Context, q *entities.Question) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := question(*q)
	res := r.db.WithContext(ctx).Model(&row).Select("*").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("update question: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrQuestionNotFound
	}
	return nil
}

func (r questionRepo) ListBySet(ctx context.Context, setID int64) ([]*entities.Question, error) {
	var rows []question
	err := r.db.WithContext(ctx).
		Where("question_set_id = ?", setID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]*entities.Question, len(rows))
	for i := range rows {
		q := entities.Question(rows[i])
		out[i] = &q
	}
	return out, nil
}

type setRepo struct{ *repos }

func (r setRepo) Create(ctx context.Context, s *entities.QuestionSet) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := questionSet(*s)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create question set: %w", err)
	}
	s.ID = row.ID
	return nil
}

func (r setRepo) GetByID(ctx context.Context, id int64) (*entities.QuestionSet, error) {
	var row questionSet
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, repository.ErrQuestionSetNotFound)
	}
	s := entities.QuestionSet(row)
	return &s, nil
}

func (r setRepo) GetForUpdate(ctx context.Context, id int64) (*entities.QuestionSet, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r setRepo) Update(ctx context.Context, s *entities.QuestionSet) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := questionSet(*s)
	res := r.db.WithContext(ctx).Model(&row).Select("*").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("update question set: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrQuestionSetNotFound
	}
	return nil
}

func (r setRepo) ListByFolder(ctx context.Context, folderID int64) ([]*entities.QuestionSet, error) {
	return r.list(ctx, "folder_id = ?", folderID)
}

func (r setRepo) ListByUser(ctx context.Context, userID int64) ([]*entities.QuestionSet, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r setRepo) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&questionSet{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list question set owners: %w", err)
	}
	return ids, nil
}

func (r setRepo) list(ctx context.Context, where string, arg int64) ([]*entities.QuestionSet, error) {
	var rows []questionSet
	if err := r.db.WithContext(ctx).Where(where, arg).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	out := make([]*entities.QuestionSet, len(rows))
	for i := range rows {
		s := entities.QuestionSet(rows[i])
		out[i] = &s
	}
	return out, nil
}

type folderRepo struct{ *repos }

func (r folderRepo) Create(ctx context.Context, f *entities.Folder) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := folder(*f)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	f.ID = row.ID
	return nil
}

func (r folderRepo) GetByID(ctx context.Context, id int64) (*entities.Folder, error) {
	var row folder
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, repository.ErrFolderNotFound)
	}
	f := entities.Folder(row)
	return &f, nil
}

func (r folderRepo) GetForUpdate(ctx context.Context, id int64) (*entities.Folder, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r folderRepo) Update(ctx context.Context, f *entities.Folder) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := folder(*f)
	res := r.db.WithContext(ctx).Model(&row).Select("*").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("update folder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrFolderNotFound
	}
	return nil
}

type sessionRepo struct{ *repos }

func (r sessionRepo) CreateSession(ctx context.Context, s *entities.UserStudySession) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	row := studySession(*s)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create study session: %w", err)
	}
	return nil
}

func (r sessionRepo) CreateAnswer(ctx context.Context, a *entities.UserQuestionAnswer) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	var sessions int64
	err := r.db.WithContext(ctx).
		Model(&studySession{}).
		Where("id = ?", a.SessionID).
		Count(&sessions).Error
	if err != nil {
		return fmt.Errorf("check study session: %w", err)
	}
	if sessions == 0 {
		return repository.ErrSessionNotFound
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := answer(*a)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	return nil
}

func (r sessionRepo) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]*entities.UserQuestionAnswer, error) {
	var rows []answer
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("answered_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]*entities.UserQuestionAnswer, len(rows))
	for i := range rows {
		a := entities.UserQuestionAnswer(rows[i])
		out[i] = &a
	}
	return out, nil
}
