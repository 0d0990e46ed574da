package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"payment-router/internal/entities"
	internalErrors "payment-router/internal/errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Options struct {
	Driver   string
	Location string
	// Init marks the single process that creates the storage. Any data
	// left from a previous run is discarded.
	Init bool
	// SettleDelay is how long other processes wait for the initializer
	// before their first access.
	SettleDelay time.Duration
}

// PaymentStore keeps one ordered collection of confirmed payments per
// gateway, keyed by send time. Duplicate keys are allowed.
type PaymentStore struct {
	db *sql.DB
	d  dialect
	// one write transaction at a time per process
	writeMu sync.Mutex
}

func Open(ctx context.Context, opts Options) (*PaymentStore, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	if opts.Init {
		if d.embedded {
			if err := resetFiles(opts.Location); err != nil {
				return nil, fmt.Errorf("resetting database files: %w", err)
			}
		}
	} else {
		select {
		case <-time.After(opts.SettleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	db, err := sql.Open(d.driver, d.dsn(opts.Location, opts.Init))
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", d.driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", d.driver, err)
	}

	ps := &PaymentStore{db: db, d: d}

	if opts.Init {
		err = ps.create(ctx)
	} else {
		err = ps.verify(ctx)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PaymentStore) Close() error {
	return ps.db.Close()
}

func (ps *PaymentStore) create(ctx context.Context) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	return ps.inTx(ctx, func(tx *sql.Tx) error {
		for _, g := range entities.Gateways {
			if err := ps.recreateTable(ctx, tx, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ps *PaymentStore) verify(ctx context.Context) error {
	for _, g := range entities.Gateways {
		rows, err := ps.db.QueryContext(ctx, "SELECT sent_at FROM "+tableName(g)+" LIMIT 1")
		if err != nil {
			return fmt.Errorf("%w: %s: %v", internalErrors.ErrStoreNotInitialized, tableName(g), err)
		}
		rows.Close()
	}
	return nil
}

func (ps *PaymentStore) recreateTable(ctx context.Context, tx *sql.Tx, g entities.Gateway) error {
	table := tableName(g)
	statements := []string{
		"DROP TABLE IF EXISTS " + table,
		fmt.Sprintf("CREATE TABLE %s (sent_at %s NOT NULL, record %s NOT NULL)", table, ps.d.blobType, ps.d.blobType),
		fmt.Sprintf("CREATE INDEX %s_sent_at ON %s (sent_at)", table, table),
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreating %s: %w", table, err)
		}
	}
	return nil
}

// PostPayment stores one confirmed payment in its own transaction, which is
// committed before PostPayment returns.
func (ps *PaymentStore) PostPayment(ctx context.Context, g entities.Gateway, amount float64, correlationId string, sentAt time.Time) error {
	if !g.Valid() {
		return internalErrors.ErrUnknownGateway
	}

	record, err := EncodeRecord(amount, correlationId)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (sent_at, record) VALUES (%s, %s)",
		tableName(g), ps.d.placeholder(1), ps.d.placeholder(2))

	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	return ps.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, EncodeKey(sentAt), record); err != nil {
			return fmt.Errorf("inserting payment %s into %s: %w", correlationId, tableName(g), err)
		}
		return nil
	})
}

// GetSummary counts and sums the payments of both gateways whose send time
// lies in [from, to]. A nil bound leaves that side of the range open. Both
// collections are read in the same transaction.
func (ps *PaymentStore) GetSummary(ctx context.Context, from, to *time.Time) (entities.PaymentsSummary, error) {
	var summary entities.PaymentsSummary

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("starting summary transaction: %w", err)
	}
	defer tx.Rollback()

	for _, g := range entities.Gateways {
		stats, err := ps.summarize(ctx, tx, g, from, to)
		if err != nil {
			return entities.PaymentsSummary{}, err
		}
		*summary.For(g) = stats
	}

	return summary, nil
}

func (ps *PaymentStore) summarize(ctx context.Context, tx *sql.Tx, g entities.Gateway, from, to *time.Time) (entities.PaymentStats, error) {
	var (
		stats      entities.PaymentStats
		conditions []string
		args       []any
	)

	if from != nil {
		args = append(args, EncodeKey(*from))
		conditions = append(conditions, "sent_at >= "+ps.d.placeholder(len(args)))
	}
	if to != nil {
		args = append(args, EncodeKey(*to))
		conditions = append(conditions, "sent_at <= "+ps.d.placeholder(len(args)))
	}

	query := "SELECT record FROM " + tableName(g)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sent_at"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("scanning %s: %w", tableName(g), err)
	}
	defer rows.Close()

	total := decimal.Zero
	var record []byte
	for rows.Next() {
		if err := rows.Scan(&record); err != nil {
			return stats, fmt.Errorf("reading %s: %w", tableName(g), err)
		}

		amount, _, err := DecodeRecord(record)
		if err != nil {
			return stats, err
		}

		stats.TotalRequests++
		total = total.Add(decimal.NewFromFloat(amount))
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("scanning %s: %w", tableName(g), err)
	}

	stats.TotalAmount = total.Round(2).InexactFloat64()
	return stats, nil
}

// Purge drops and recreates the collection of g.
func (ps *PaymentStore) Purge(ctx context.Context, g entities.Gateway) error {
	if !g.Valid() {
		return internalErrors.ErrUnknownGateway
	}

	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	return ps.inTx(ctx, func(tx *sql.Tx) error {
		return ps.recreateTable(ctx, tx, g)
	})
}

func (ps *PaymentStore) PurgeAll(ctx context.Context) error {
	for _, g := range entities.Gateways {
		if err := ps.Purge(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PaymentStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func tableName(g entities.Gateway) string {
	return "payments_" + g.String()
}
