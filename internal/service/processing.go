package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/metrics"
	"github.com/rtr-ops/backend/internal/models"
	"github.com/rtr-ops/backend/internal/sheet"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	RunRunning            = "RUNNING"
	RunCompleted          = "COMPLETED"
	RunCompletedWithError = "COMPLETED_WITH_ERRORS"
	RunFailed             = "FAILED"
)

type Options struct {
	ScanRows           int
	MinCoverage        float64
	TicketThreshold    int
	FinancialThreshold int
	// Atomic runs each row in one unit of work; a failing step discards
	// every write of that row.
	Atomic   bool
	Window   int
	Location *time.Location
}

// Importer drives extract rows through the reconciler one at a time and
// records one outcome per row.
type Importer struct {
	Repo            db.Repository
	Reconciler      *Reconciler
	Lifecycle       *Lifecycle
	Resolver        sheet.Resolver
	TicketSchema    sheet.Schema
	FinancialSchema sheet.Schema
	Atomic          bool
	Logger          zerolog.Logger
}

func NewImporter(repo db.Repository, opts Options, logger zerolog.Logger) *Importer {
	if opts.TicketThreshold <= 0 {
		opts.TicketThreshold = 4
	}
	if opts.FinancialThreshold <= 0 {
		opts.FinancialThreshold = 3
	}
	lc := &Lifecycle{Repo: repo, Logger: logger, Location: opts.Location, Window: opts.Window}
	return &Importer{
		Repo:            repo,
		Lifecycle:       lc,
		Reconciler:      &Reconciler{Lifecycle: lc, Logger: logger},
		Resolver:        sheet.NewResolver(opts.ScanRows, opts.MinCoverage),
		TicketSchema:    sheet.TicketSchema(opts.TicketThreshold),
		FinancialSchema: sheet.FinancialSchema(opts.FinancialThreshold),
		Atomic:          opts.Atomic,
		Logger:          logger,
	}
}

type ImportRow struct {
	Number int      `json:"row"`
	Cells  []string `json:"cells"`
}

// Batch is the rows of one sheet below its header, with the columns
// resolved for that sheet.
type Batch struct {
	Sheet    string
	Columns  sheet.ColumnMap
	Date1904 bool
	Rows     []ImportRow
}

type RowOutcome struct {
	Row    int               `json:"row"`
	Status string            `json:"status"`
	Result *RowResult        `json:"result,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
	Cells  []string          `json:"cells,omitempty"`
	Error  string            `json:"error,omitempty"`
	Stack  string            `json:"stack,omitempty"`
}

type Ledger struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Rows      []RowOutcome `json:"rows"`
	Failures  []RowOutcome `json:"failures"`
}

func (l *Ledger) record(o RowOutcome) {
	l.Total++
	l.Rows = append(l.Rows, o)
	if o.Status == StatusOK {
		l.Succeeded++
		return
	}
	l.Failed++
	l.Failures = append(l.Failures, o)
}

// ProcessRows never stops on a row failure: the ledger always has one
// entry per input row, in input order.
func (s *Importer) ProcessRows(ctx context.Context, b Batch, audit models.Audit, asOf time.Time) Ledger {
	ledger := Ledger{Rows: make([]RowOutcome, 0, len(b.Rows)), Failures: []RowOutcome{}}
	for _, row := range b.Rows {
		out := s.processRow(ctx, b, row, audit, asOf)
		ledger.record(out)
		metrics.ImportRows.WithLabelValues(string(sheet.KindTicket), out.Status).Inc()
		if out.Status == StatusError {
			s.Logger.Warn().Str("sheet", b.Sheet).Int("row", row.Number).Str("err", out.Error).Msg("row failed")
		}
	}
	s.Logger.Info().
		Str("sheet", b.Sheet).
		Int("total", ledger.Total).
		Int("succeeded", ledger.Succeeded).
		Int("failed", ledger.Failed).
		Msg("batch processed")
	return ledger
}

func (s *Importer) processRow(ctx context.Context, b Batch, row ImportRow, audit models.Audit, asOf time.Time) (out RowOutcome) {
	out = RowOutcome{Row: row.Number}
	defer func() {
		if r := recover(); r != nil {
			out = failedRow(b, row, fmt.Errorf("panic: %v", r))
			out.Stack = string(debug.Stack())
		}
	}()

	in := ParseRow(b.Columns, row.Cells, b.Date1904)
	var (
		res RowResult
		err error
	)
	if s.Atomic {
		err = s.Repo.WithTx(ctx, func(repo db.Repository) error {
			var rowErr error
			res, rowErr = s.Reconciler.ReconcileRow(ctx, repo, in, audit, asOf)
			return rowErr
		})
	} else {
		res, err = s.Reconciler.ReconcileRow(ctx, s.Repo, in, audit, asOf)
	}
	if err != nil {
		out = failedRow(b, row, err)
		out.Stack = fmt.Sprintf("%+v", err)
		return out
	}
	out.Status = StatusOK
	out.Result = &res
	return out
}

func failedRow(b Batch, row ImportRow, err error) RowOutcome {
	data := make(map[string]string, b.Columns.Len())
	for _, m := range b.Columns.Matches() {
		data[m.Field] = b.Columns.Cell(row.Cells, m.Field)
	}
	return RowOutcome{
		Row:    row.Number,
		Status: StatusError,
		Data:   data,
		Cells:  row.Cells,
		Error:  err.Error(),
	}
}

type ImportOptions struct {
	// Force processes a sheet whose best header row is below the coverage
	// floor, using the partial ticket column map.
	Force bool
}

type SheetReport struct {
	Name         string            `json:"name"`
	Kind         sheet.Kind        `json:"kind"`
	Resolution   *sheet.Resolution `json:"resolution,omitempty"`
	Forced       bool              `json:"forced,omitempty"`
	Skipped      bool              `json:"skipped,omitempty"`
	PartialCount *int              `json:"partial_count,omitempty"`
	Error        string            `json:"error,omitempty"`
	Ledger       *Ledger           `json:"ledger,omitempty"`
}

type ImportReport struct {
	RunID     string           `json:"run_id"`
	Source    string           `json:"source"`
	Status    string           `json:"status"`
	Sheets    []SheetReport    `json:"sheets"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Events    []map[string]any `json:"events"`
}

// ImportSheet classifies one sheet and reconciles it when it is a ticket
// extract. Financial sheets are reported and skipped. An unresolved header
// is reported on the sheet, not returned as an error, unless forced.
func (s *Importer) ImportSheet(ctx context.Context, sh sheet.Sheet, audit models.Audit, asOf time.Time, opts ImportOptions) SheetReport {
	report := SheetReport{Name: sh.Name}
	cls := s.Resolver.Classify(sh.Rows, s.TicketSchema, s.FinancialSchema)
	report.Kind = cls.Kind

	res := cls.Resolution
	switch {
	case cls.Err == nil && cls.Kind == sheet.KindFinancial:
		metrics.HeaderResolutions.WithLabelValues(string(cls.Kind), "skipped").Inc()
		report.Resolution = &res
		report.Skipped = true
		return report
	case cls.Err == nil:
		metrics.HeaderResolutions.WithLabelValues(string(cls.Kind), "resolved").Inc()
	default:
		metrics.HeaderResolutions.WithLabelValues(string(cls.Kind), "unresolved").Inc()
		if n, ok := sheet.PartialCount(cls.Err); ok {
			report.PartialCount = &n
		}
		report.Error = cls.Err.Error()
		if !opts.Force {
			s.Logger.Warn().Str("sheet", sh.Name).Err(cls.Err).Msg("sheet header unresolved")
			return report
		}
		forced, err := s.Resolver.Resolve(sh.Rows, s.TicketSchema)
		if forced.Columns.Len() == 0 {
			if err != nil {
				report.Error = err.Error()
			}
			return report
		}
		res = forced
		report.Kind = sheet.KindTicket
		report.Forced = true
	}
	report.Resolution = &res

	batch := Batch{Sheet: sh.Name, Columns: res.Columns, Date1904: sh.Date1904, Rows: dataRows(sh.Rows, res.HeaderRow)}
	ledger := s.ProcessRows(ctx, batch, audit, asOf)
	report.Ledger = &ledger
	return report
}

// dataRows returns the rows below the header, numbered as in the sheet
// (1-based), without the fully empty ones.
func dataRows(rows [][]string, headerRow int) []ImportRow {
	var out []ImportRow
	for i := headerRow + 1; i < len(rows); i++ {
		if emptyRow(rows[i]) {
			continue
		}
		out = append(out, ImportRow{Number: i + 1, Cells: rows[i]})
	}
	return out
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if sheet.Normalize(c) != "" {
			return false
		}
	}
	return true
}

// ImportWorkbook imports every sheet of a workbook under one import run.
func (s *Importer) ImportWorkbook(ctx context.Context, source string, sheets []sheet.Sheet, audit models.Audit, asOf time.Time, opts ImportOptions) (ImportReport, error) {
	if err := validate.Struct(audit); err != nil {
		return ImportReport{}, errors.Wrap(err, "audit")
	}
	start := time.Now()
	defer func() { metrics.ImportDuration.Observe(time.Since(start).Seconds()) }()

	run := models.ImportRun{ID: uuid.NewString(), SourceName: source, Status: RunRunning}
	if err := s.Repo.CreateImportRun(ctx, &run); err != nil {
		return ImportReport{}, errors.Wrap(err, "create import run")
	}

	report := ImportReport{RunID: run.ID, Source: source, Sheets: make([]SheetReport, 0, len(sheets))}
	report.Events = append(report.Events, map[string]any{
		"type":   "workbook_decoded",
		"sheets": len(sheets),
		"time":   time.Now().UTC(),
	})

	processed := 0
	for _, sh := range sheets {
		sr := s.ImportSheet(ctx, sh, audit, asOf, opts)
		if sr.Ledger != nil {
			processed++
			report.Total += sr.Ledger.Total
			report.Succeeded += sr.Ledger.Succeeded
			report.Failed += sr.Ledger.Failed
		}
		report.Sheets = append(report.Sheets, sr)
		report.Events = append(report.Events, map[string]any{
			"type":    "sheet",
			"sheet":   sh.Name,
			"kind":    sr.Kind,
			"skipped": sr.Skipped,
			"error":   sr.Error,
			"time":    time.Now().UTC(),
		})
	}

	switch {
	case processed == 0:
		report.Status = RunFailed
	case report.Failed > 0:
		report.Status = RunCompletedWithError
	default:
		report.Status = RunCompleted
	}
	report.Events = append(report.Events, map[string]any{
		"type":       "import_summary",
		"total":      report.Total,
		"succeeded":  report.Succeeded,
		"failed":     report.Failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
		"time":       time.Now().UTC(),
	})

	summary, err := json.Marshal(report)
	if err != nil {
		return report, errors.Wrap(err, "marshal import summary")
	}
	if err := s.Repo.FinishImportRun(ctx, run.ID, report.Status, summary); err != nil {
		return report, errors.Wrap(err, "finish import run")
	}
	s.Logger.Info().
		Str("run_id", run.ID).
		Str("source", source).
		Str("status", report.Status).
		Int("total", report.Total).
		Int("failed", report.Failed).
		Msg("import finished")
	return report, nil
}

// ImportRows imports a single block of raw rows, header included.
func (s *Importer) ImportRows(ctx context.Context, source string, rows [][]string, audit models.Audit, asOf time.Time, opts ImportOptions) (ImportReport, error) {
	return s.ImportWorkbook(ctx, source, []sheet.Sheet{{Name: source, Rows: rows}}, audit, asOf, opts)
}
