package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	pkgch "SignalDeck/pkg/clickhouse"
	applogger "SignalDeck/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouse error codes the source maps onto domain errors.
const (
	chUnknownTable         = 60
	chUnknownDatabase      = 81
	chUnknownUser          = 192
	chWrongPassword        = 193
	chAccessDenied         = 497
	chAuthenticationFailed = 516
)

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CHSignalSource reads the signal log from a ClickHouse table whose columns
// are named like the spreadsheet headers.
type CHSignalSource struct {
	db      rowQuerier
	table   string
	orderBy string
	l       *applogger.Logger
}

// NewCHSignalSource validates table and orderBy as plain identifiers since
// they are interpolated into the query.
func NewCHSignalSource(ch *pkgch.Client, table, orderBy string) (*CHSignalSource, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	if orderBy != "" && !identRe.MatchString(orderBy) {
		return nil, fmt.Errorf("invalid clickhouse order column %q", orderBy)
	}
	return &CHSignalSource{db: ch.DB(), table: table, orderBy: orderBy}, nil
}

// SetLogger injects a structured logger.
func (s *CHSignalSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSignalSource) Name() string { return "clickhouse" }

func (s *CHSignalSource) query() string {
	q := "SELECT * FROM " + s.table
	if s.orderBy != "" {
		q += " ORDER BY " + s.orderBy + " ASC"
	}
	return q
}

func (s *CHSignalSource) Load(ctx context.Context) ([]models.RawRow, error) {
	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal query error", applogger.String("table", s.table), applogger.Error(err))
		}
		return nil, s.classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("clickhouse columns: %w", err)
	}

	out := make([]models.RawRow, 0, 256)
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		row := make(models.RawRow, len(cols))
		for i, c := range cols {
			row[c] = stringifyValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

func (s *CHSignalSource) classify(err error) error {
	var ex *clickhouse.Exception
	if errors.As(err, &ex) {
		switch ex.Code {
		case chUnknownTable, chUnknownDatabase:
			return fmt.Errorf("%w: table %s: %s", domrepo.ErrSourceNotFound, s.table, ex.Message)
		case chUnknownUser, chWrongPassword, chAccessDenied, chAuthenticationFailed:
			return fmt.Errorf("%w: %s", domrepo.ErrAuthentication, ex.Message)
		}
	}
	return fmt.Errorf("query %s: %w", s.table, err)
}

// stringifyValue renders a scanned column the way a spreadsheet export would
// show it, so every source feeds the normalizer the same text.
func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case decimal.Decimal:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return stringifyValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}
