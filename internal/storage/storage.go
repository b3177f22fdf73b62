// Package storage persists pipeline run reports and serves the latest one
// back to the results API.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ignite/retail-rfm/internal/config"
	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// ErrNotFound is returned when no report has been persisted yet.
var ErrNotFound = errors.New("storage: report not found")

const latestName = "latest.json"

// Sink persists run reports. Save returns where the report was written.
type Sink interface {
	Save(ctx context.Context, report *domain.RunReport) (string, error)
	Latest(ctx context.Context) (*domain.RunReport, error)
}

// Open builds the sink selected by cfg.Type.
func Open(ctx context.Context, cfg config.ReportConfig) (Sink, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown report store type %q", cfg.Type)
	}
}

// LocalStore writes each report to a timestamped JSON file and keeps a copy
// of the most recent one as latest.json.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the report file and refreshes latest.json.
func (s *LocalStore) Save(ctx context.Context, report *domain.RunReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	path := filepath.Join(s.dir, reportFileName(report))
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(s.dir, latestName), data); err != nil {
		return "", err
	}

	logger.Info("report saved", "component", "storage", "path", path, "run_id", report.RunID)
	return path, nil
}

// Latest reads latest.json.
func (s *LocalStore) Latest(ctx context.Context) (*domain.RunReport, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, latestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest report: %w", err)
	}
	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &report, nil
}

func reportFileName(report *domain.RunReport) string {
	ts := report.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("rfm-report-%s-%s.json", ts.UTC().Format("20060102T150405Z"), report.RunID)
}

// writeFileAtomic writes through a temp file so readers never see a partial report.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
