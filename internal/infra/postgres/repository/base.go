package repository

import (
	"encoding/json"
	"fmt"

	"github.com/aliskhannn/mastery-engine/internal/infra/postgres"
	port "github.com/aliskhannn/mastery-engine/internal/repository"
)

// base is embedded by every repository. Repositories built for a read-only
// snapshot refuse writes and row locks.
type base struct {
	db       postgres.DBTX
	writable bool
}

func (b base) checkWrite() error {
	if !b.writable {
		return port.ErrReadOnly
	}
	return nil
}

// forUpdate appends a row lock to query when the repository can write.
func (b base) forUpdate(query string) (string, error) {
	if err := b.checkWrite(); err != nil {
		return "", err
	}
	return query + " FOR UPDATE", nil
}

func marshalHistory[T any](history []T) ([]byte, error) {
	if history == nil {
		history = []T{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	return b, nil
}

func unmarshalHistory[T any](raw []byte) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var history []T
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return history, nil
}
