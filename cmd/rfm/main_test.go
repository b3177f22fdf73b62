package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/retail-rfm/internal/config"
	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pipeline"
)

func testReport() *domain.RunReport {
	started := time.Date(2011, 12, 10, 6, 0, 0, 0, time.UTC)
	return &domain.RunReport{
		RunID:         "run-1",
		ReferenceDate: time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC),
		StartedAt:     started,
		FinishedAt:    started.Add(time.Second),
	}
}

func TestPublish_WritesSummaryAndReport(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Type = "local"
	cfg.Report.LocalPath = t.TempDir()

	var out bytes.Buffer
	require.NoError(t, publish(context.Background(), cfg, nil, testReport(), &out))

	assert.Contains(t, out.String(), "RFM run run-1")
	_, err := os.Stat(filepath.Join(cfg.Report.LocalPath, "latest.json"))
	assert.NoError(t, err)
}

func TestPublish_PersistFailureNamesStage(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := config.Default()
	cfg.Report.Type = "local"
	cfg.Report.LocalPath = filepath.Join(blocker, "reports")

	err := publish(context.Background(), cfg, nil, testReport(), &bytes.Buffer{})
	require.Error(t, err)

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.StagePersist, se.Stage)
	assert.Contains(t, err.Error(), "persist stage")
}

func TestPublish_UnknownSinkNamesStage(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Type = "ftp"

	err := publish(context.Background(), cfg, nil, testReport(), &bytes.Buffer{})

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.StagePersist, se.Stage)
}
