package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/service"
	"github.com/aliskhannn/mastery-engine/internal/storage"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_ExportsServiceSpans(t *testing.T) {
	ctx := context.Background()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		ServiceName: "mastery-engine-test",
		SampleRatio: 1,
		Writer:      &buf,
	}, zap.NewNop())
	require.NoError(t, err)

	engine := service.NewEngine(storage.NewStore(), nil, service.Config{}, zap.NewNop())
	sec, err := engine.Catalog().CreateSection(ctx, "Optics")
	require.NoError(t, err)
	c := &entities.MasteryCriterion{SectionID: sec.ID, Stage: entities.StageUnderstand, Weight: 1, MasteryThreshold: 0.8}
	require.NoError(t, engine.Catalog().CreateCriterion(ctx, c))

	_, err = engine.RecordCriterionAttempt(ctx, 1, c.ID, 0.9, service.AttemptOptions{})
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, shutdown(shutdownCtx))

	out := buf.String()
	assert.Contains(t, out, "CriterionTracker.RecordAttempt")
	assert.Contains(t, out, "mastery-engine-test")
}

func TestClampRatio(t *testing.T) {
	assert.Zero(t, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}
