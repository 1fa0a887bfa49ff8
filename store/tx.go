package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/goliatone/go-feedvault/metrics"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TxFunc is a unit of work. Every store call inside it must use tx.
type TxFunc func(ctx context.Context, tx bun.Tx) error

// Coordinator runs units of work atomically.
type Coordinator struct {
	db     *bun.DB
	driver string
	logger *slog.Logger
	opts   *sql.TxOptions
}

// NewCoordinator creates a Coordinator over db. The transaction runs with the
// database's default isolation unless opts overrides it.
func NewCoordinator(db *bun.DB, logger *slog.Logger, opts *sql.TxOptions) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{db: db, driver: repository.DetectDriver(db), logger: logger, opts: opts}
}

// RunInTx commits when fn returns nil. When fn fails, panics, or ctx is
// cancelled, every write made through tx is rolled back. fn's error is
// returned unchanged.
func (c *Coordinator) RunInTx(ctx context.Context, fn TxFunc) error {
	tx, err := c.db.BeginTx(ctx, c.opts)
	if err != nil {
		return c.classify("begin tx", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.logger.ErrorContext(ctx, "Failed to roll back transaction",
				"error", rbErr)
		}
		metrics.RecordTransaction(metrics.TxRolledBack)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return c.classify("commit tx", err)
	}
	committed = true
	metrics.RecordTransaction(metrics.TxCommitted)

	return nil
}

func (c *Coordinator) classify(op string, err error) error {
	return classify(c.driver, op, err)
}
