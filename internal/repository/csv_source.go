package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"
)

// CSVSource reads the signal log from a local comma-delimited file.
type CSVSource struct {
	path string
	l    *applogger.Logger
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// SetLogger injects a structured logger.
func (s *CSVSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) Load(ctx context.Context) ([]models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domrepo.ErrSourceNotFound, s.path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: cannot read %s", domrepo.ErrAuthentication, s.path)
		}
		return nil, fmt.Errorf("open signal log: %w", err)
	}
	defer f.Close()

	rows, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if s.l != nil {
		s.l.Debug("csv signal log loaded", applogger.String("path", s.path), applogger.Int("rows", len(rows)))
	}
	return rows, nil
}
