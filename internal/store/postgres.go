package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const defaultTxRetries = 5

// Postgres keeps every document in a single documents(collection, id, doc)
// table and runs transactions at SERIALIZABLE, retrying on serialization
// failures. Change events are published after commit.
type Postgres struct {
	pool     *pgxpool.Pool
	log      zerolog.Logger
	notifier Notifier
	retries  int
	retryCtr prometheus.Counter
}

type PostgresOption func(*Postgres)

// WithNotifier publishes each committed transaction's change events.
func WithNotifier(n Notifier) PostgresOption {
	return func(p *Postgres) { p.notifier = n }
}

// WithRetryCounter counts serialization-failure retries.
func WithRetryCounter(c prometheus.Counter) PostgresOption {
	return func(p *Postgres) { p.retryCtr = c }
}

func NewPostgres(pool *pgxpool.Pool, log zerolog.Logger, opts ...PostgresOption) *Postgres {
	p := &Postgres{pool: pool, log: log, retries: defaultTxRetries}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (p *Postgres) List(ctx context.Context, collection string) ([]Doc, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, doc FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var d Doc
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (p *Postgres) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			if p.retryCtr != nil {
				p.retryCtr.Inc()
			}
			select {
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		events, err := p.runOnce(ctx, fn)
		if err == nil {
			p.publish(events)
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrTxConflict, lastErr)
}

func (p *Postgres) runOnce(ctx context.Context, fn func(tx Tx) error) ([]Event, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	pt := &pgTx{tx: tx}
	if err := fn(pt); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return pt.events, nil
}

func (p *Postgres) publish(events []Event) {
	if p.notifier == nil || len(events) == 0 {
		return
	}
	if err := p.notifier.PublishEvents(events); err != nil {
		// The commit already succeeded; subscribers fall back to a full
		// reload, so a lost event is degraded freshness, not corruption.
		p.log.Error().Err(err).Int("events", len(events)).Msg("publish change events")
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }

type pgTx struct {
	tx     pgx.Tx
	events []Event
}

func (t *pgTx) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := t.tx.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (t *pgTx) List(ctx context.Context, collection string) ([]Doc, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, doc FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var d Doc
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (t *pgTx) Put(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, collection, id, body)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	t.events = append(t.events, Event{Collection: collection, ID: id, Op: OpPut})
	return nil
}

func (t *pgTx) Delete(ctx context.Context, collection, id string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	t.events = append(t.events, Event{Collection: collection, ID: id, Op: OpDelete})
	return nil
}

// 40001 serialization_failure, 40P01 deadlock_detected
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
