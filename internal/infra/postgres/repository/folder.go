package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/infra/postgres"
	port "github.com/aliskhannn/mastery-engine/internal/repository"
)

// FolderRepository provides access to folders and their mastery history.
type FolderRepository struct {
	base
}

// NewFolderRepository creates a FolderRepository on db.
func NewFolderRepository(db postgres.DBTX, writable bool) *FolderRepository {
	return &FolderRepository{base{db: db, writable: writable}}
}

const folderColumns = `id, user_id, name, current_mastery_score, mastery_history, created_at, updated_at`

func (r *FolderRepository) Create(ctx context.Context, f *entities.Folder) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	history, err := marshalHistory(f.MasteryHistory)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO folders (user_id, name, current_mastery_score, mastery_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = r.db.QueryRow(ctx, query,
		f.UserID, f.Name, f.CurrentMasteryScore, history, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*entities.Folder, error) {
	return r.get(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = $1`, id)
}

// GetForUpdate reads the folder and locks it until the transaction ends.
func (r *FolderRepository) GetForUpdate(ctx context.Context, id int64) (*entities.Folder, error) {
	query, err := r.forUpdate(`SELECT ` + folderColumns + ` FROM folders WHERE id = $1`)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, query, id)
}

func (r *FolderRepository) get(ctx context.Context, query string, id int64) (*entities.Folder, error) {
	var f entities.Folder
	var history []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID,
		&f.UserID,
		&f.Name,
		&f.CurrentMasteryScore,
		&history,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrFolderNotFound
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	if f.MasteryHistory, err = unmarshalHistory[entities.FolderSnapshot](history); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FolderRepository) Update(ctx context.Context, f *entities.Folder) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	history, err := marshalHistory(f.MasteryHistory)
	if err != nil {
		return err
	}

	query := `
		UPDATE folders
		SET name = $2, current_mastery_score = $3, mastery_history = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, f.ID, f.Name, f.CurrentMasteryScore, history, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrFolderNotFound
	}
	return nil
}
