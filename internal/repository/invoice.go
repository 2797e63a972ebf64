package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

// InvoiceRepository is the persistence boundary for invoice records.
type InvoiceRepository interface {
	// Insert appends one row. The record must already satisfy common.IsComplete.
	Insert(ctx context.Context, rec entity.InvoiceRecord) error
	// FetchAll returns every stored row in insertion order. On error the
	// slice is empty, never nil.
	FetchAll(ctx context.Context) ([]entity.StoredInvoiceRow, error)
	// EnsureSchema creates the invoices table when missing.
	EnsureSchema(ctx context.Context) error
	// CheckSchema fails when the invoices table lacks a column FetchAll reads.
	CheckSchema(ctx context.Context) error
}

// Opener acquires a driver for the duration of one operation.
type Opener func(ctx context.Context) (*entsql.Driver, func(), error)

type Option func(*invoiceRepository)

// WithOpener replaces the default location-based opener.
func WithOpener(o Opener) Option {
	return func(r *invoiceRepository) {
		if o != nil {
			r.open = o
		}
	}
}

type invoiceRepository struct {
	cfg    Config
	open   Opener
	logger *slog.Logger
}

func NewInvoiceRepository(cfg Config, logger *slog.Logger, opts ...Option) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &invoiceRepository{cfg: cfg, logger: logger}
	r.open = func(ctx context.Context) (*entsql.Driver, func(), error) {
		return Open(ctx, r.cfg, r.logger)
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *invoiceRepository) Insert(ctx context.Context, rec entity.InvoiceRecord) error {
	drv, closeFn, err := r.open(ctx)
	if err != nil {
		r.logger.Error("invoice insert failed: open store", "invoice_number", invoiceNumber(rec), "error", err)
		return common.StorageError("open store", err)
	}
	defer closeFn()

	// nil fields bind as NULL; the store rejects them rather than this layer.
	args := make([]any, 0, len(constants.Columns))
	for _, v := range rec.Values() {
		if v == nil {
			args = append(args, nil)
			continue
		}
		args = append(args, *v)
	}

	var res sql.Result
	if err := drv.Exec(ctx, r.cfg.InsertStatement, args, &res); err != nil {
		r.logger.Error("invoice insert failed", "invoice_number", invoiceNumber(rec), "error", err)
		return common.StorageError("insert invoice", err)
	}
	r.logger.Info("invoice inserted", "invoice_number", invoiceNumber(rec))
	return nil
}

func (r *invoiceRepository) FetchAll(ctx context.Context) ([]entity.StoredInvoiceRow, error) {
	out := []entity.StoredInvoiceRow{}

	drv, closeFn, err := r.open(ctx)
	if err != nil {
		r.logger.Error("invoice fetch failed: open store", "error", err)
		return out, common.StorageError("open store", err)
	}
	defer closeFn()

	b := entsql.Dialect(drv.Dialect())
	query, args := b.Select(constants.StorageColumns...).
		From(b.Table(constants.InvoicesTable)).
		OrderBy(orderColumn(drv.Dialect())).
		Query()

	var rows entsql.Rows
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("invoice fetch failed", "error", err)
		return out, common.StorageError("query invoices", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n, ps, pe, due sql.NullString
		if err := rows.Scan(&n, &ps, &pe, &due); err != nil {
			r.logger.Error("invoice fetch failed: scan", "error", err)
			return []entity.StoredInvoiceRow{}, common.StorageError("scan invoice row", err)
		}
		out = append(out, entity.StoredInvoiceRow{
			InvoiceNumber: n.String,
			PeriodStart:   ps.String,
			PeriodEnd:     pe.String,
			DueDate:       due.String,
		})
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("invoice fetch failed: rows", "error", err)
		return []entity.StoredInvoiceRow{}, common.StorageError("iterate invoice rows", err)
	}
	r.logger.Debug("invoices fetched", "count", len(out))
	return out, nil
}

func (r *invoiceRepository) EnsureSchema(ctx context.Context) error {
	drv, closeFn, err := r.open(ctx)
	if err != nil {
		return common.StorageError("open store", err)
	}
	defer closeFn()

	if err := drv.Exec(ctx, createTableStatement(drv.Dialect()), []any{}, nil); err != nil {
		r.logger.Error("failed to create invoices table", "error", err)
		return common.StorageError("create invoices table", err)
	}
	r.logger.Info("invoices table ready", "dialect", drv.Dialect())
	return nil
}

// CheckSchema selects every column FetchAll relies on without reading rows.
// On Postgres that includes the id column used for insertion order.
func (r *invoiceRepository) CheckSchema(ctx context.Context) error {
	drv, closeFn, err := r.open(ctx)
	if err != nil {
		return common.StorageError("open store", err)
	}
	defer closeFn()

	order := orderColumn(drv.Dialect())
	b := entsql.Dialect(drv.Dialect())
	query, args := b.Select(append([]string{order}, constants.StorageColumns...)...).
		From(b.Table(constants.InvoicesTable)).
		Limit(0).
		Query()

	var rows entsql.Rows
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("invoices table does not match", "dialect", drv.Dialect(), "order_column", order, "error", err)
		return common.StorageError("check invoices table (needs "+order+" and "+strings.Join(constants.StorageColumns, ", ")+")", err)
	}
	if err := rows.Close(); err != nil {
		return common.StorageError("check invoices table", err)
	}
	r.logger.Debug("invoices table checked", "dialect", drv.Dialect())
	return nil
}

// createTableStatement renders the invoices DDL for d. Postgres gets an
// identity id because it has no implicit row order; SQLite orders by rowid.
func createTableStatement(d string) string {
	var b entsql.Builder
	b.SetDialect(d)
	b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(constants.InvoicesTable).WriteString(" (")
	if d == dialect.Postgres {
		b.Ident("id").WriteString(" BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY, ")
	}
	for i, c := range constants.StorageColumns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" TEXT NOT NULL")
	}
	b.WriteString(")")
	return b.String()
}

func orderColumn(d string) string {
	if d == dialect.Postgres {
		return "id"
	}
	return "rowid"
}

func invoiceNumber(rec entity.InvoiceRecord) string {
	if rec.InvoiceNumber == nil {
		return ""
	}
	return *rec.InvoiceNumber
}
