package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every "row does not exist" error below.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a lost update or a serialization failure.
	// The caller should retry the whole unit of work.
	ErrConflict = errors.New("concurrent modification")
	// ErrReadOnly is returned by write methods called inside a read-only unit of work.
	ErrReadOnly = errors.New("write in read-only transaction")
)

var (
	ErrCriterionNotFound   = fmt.Errorf("mastery criterion %w", ErrNotFound)
	ErrMasteryNotFound     = fmt.Errorf("criterion mastery %w", ErrNotFound)
	ErrQuestionNotFound    = fmt.Errorf("question %w", ErrNotFound)
	ErrQuestionSetNotFound = fmt.Errorf("question set %w", ErrNotFound)
	ErrFolderNotFound      = fmt.Errorf("folder %w", ErrNotFound)
	ErrSectionNotFound     = fmt.Errorf("section %w", ErrNotFound)
	ErrSettingsNotFound    = fmt.Errorf("settings %w", ErrNotFound)
	ErrSessionNotFound     = fmt.Errorf("study session %w", ErrNotFound)
)
