package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var sheetsScopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveReadonlyScope,
}

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// SheetsSource reads the signal log from a Google spreadsheet using a
// service-account credential. The document is found by name through Drive
// unless an id is configured.
type SheetsSource struct {
	credentialsFile string
	name            string
	id              string
	worksheet       string
	sheetsOpts      []option.ClientOption
	driveOpts       []option.ClientOption
	l               *applogger.Logger
}

// SheetsOption configures SheetsSource.
type SheetsOption func(*SheetsSource)

// WithSpreadsheetID opens the document directly, skipping the Drive lookup.
func WithSpreadsheetID(id string) SheetsOption {
	return func(s *SheetsSource) { s.id = id }
}

// WithWorksheet reads the named tab instead of the first one.
func WithWorksheet(title string) SheetsOption {
	return func(s *SheetsSource) { s.worksheet = title }
}

// WithAPIOptions replaces credential based auth with explicit client options
// for the Sheets and Drive services.
func WithAPIOptions(sheetsOpts, driveOpts []option.ClientOption) SheetsOption {
	return func(s *SheetsSource) {
		s.sheetsOpts = sheetsOpts
		s.driveOpts = driveOpts
	}
}

func NewSheetsSource(credentialsFile, spreadsheet string, opts ...SheetsOption) *SheetsSource {
	s := &SheetsSource{credentialsFile: credentialsFile, name: spreadsheet}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger injects a structured logger.
func (s *SheetsSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *SheetsSource) Name() string { return "sheets" }

func (s *SheetsSource) Load(ctx context.Context) ([]models.RawRow, error) {
	sheetsSvc, driveSvc, account, err := s.services(ctx)
	if err != nil {
		return nil, err
	}

	id := s.id
	if id == "" {
		id, err = s.lookup(ctx, driveSvc, account)
		if err != nil {
			return nil, err
		}
	}

	title := s.worksheet
	if title == "" {
		ss, err := sheetsSvc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return nil, s.classify(err, account)
		}
		if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
			return []models.RawRow{}, nil
		}
		title = ss.Sheets[0].Properties.Title
	}

	vr, err := sheetsSvc.Spreadsheets.Values.Get(id, quoteSheetTitle(title)).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, s.classify(err, account)
	}

	values := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		values[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				values[i][j] = fmt.Sprint(cell)
			}
		}
	}
	rows := RowsFromValues(values)
	if s.l != nil {
		s.l.Debug("spreadsheet signal log loaded",
			applogger.String("spreadsheet", id),
			applogger.String("worksheet", title),
			applogger.Int("rows", len(rows)),
		)
	}
	return rows, nil
}

// services builds fresh API clients for one load so a rotated credential
// file is picked up on the next cycle.
func (s *SheetsSource) services(ctx context.Context) (*sheets.Service, *drive.Service, string, error) {
	if s.sheetsOpts != nil || s.driveOpts != nil {
		sh, err := sheets.NewService(ctx, s.sheetsOpts...)
		if err != nil {
			return nil, nil, "", fmt.Errorf("sheets client: %w", err)
		}
		dr, err := drive.NewService(ctx, s.driveOpts...)
		if err != nil {
			return nil, nil, "", fmt.Errorf("drive client: %w", err)
		}
		return sh, dr, "", nil
	}

	if s.credentialsFile == "" {
		return nil, nil, "", fmt.Errorf("%w: no service account credential configured", domrepo.ErrAuthentication)
	}
	raw, err := os.ReadFile(s.credentialsFile)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: read credential %s: %v", domrepo.ErrAuthentication, s.credentialsFile, err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(raw, sheetsScopes...)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: parse credential: %v", domrepo.ErrAuthentication, err)
	}

	client := jwtCfg.Client(ctx)
	sh, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, nil, "", fmt.Errorf("sheets client: %w", err)
	}
	dr, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, nil, "", fmt.Errorf("drive client: %w", err)
	}
	return sh, dr, jwtCfg.Email, nil
}

func (s *SheetsSource) lookup(ctx context.Context, svc *drive.Service, account string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeDriveQuery(s.name), spreadsheetMimeType)
	list, err := svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		OrderBy("modifiedTime desc").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return "", s.classify(err, account)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: spreadsheet %q%s", domrepo.ErrSourceNotFound, s.name, shareHint(account))
	}
	return list.Files[0].Id, nil
}

func (s *SheetsSource) classify(err error, account string) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return fmt.Errorf("%w: token exchange rejected: %v", domrepo.ErrAuthentication, err)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", domrepo.ErrAuthentication, err)
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: spreadsheet %q%s", domrepo.ErrSourceNotFound, s.displayName(), shareHint(account))
		}
	}
	return fmt.Errorf("read spreadsheet: %w", err)
}

func (s *SheetsSource) displayName() string {
	if s.id != "" {
		return s.id
	}
	return s.name
}

func shareHint(account string) string {
	if account == "" {
		return " not found or not shared with the service account"
	}
	return fmt.Sprintf(" not found or not shared; share it with %s", account)
}

func escapeDriveQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
