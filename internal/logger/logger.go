package logger

import (
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/config"
)

// New returns a production logger for the production environment and a
// development logger otherwise. Every entry carries the environment name.
func New(cfg *config.Config) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if cfg.Env == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	return log.With(zap.String("env", cfg.Env)), nil
}
