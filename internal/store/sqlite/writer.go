package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"signal-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 50
	defaultFlushDelay = 500 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Writer is a single-goroutine SQLite signal journal with transaction
// batching. Every analysis result is journaled; actionable signals carry
// the full trade plan columns, WAITs only the score context.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol         TEXT    NOT NULL,
			interval       TEXT    NOT NULL,
			ts             INTEGER NOT NULL,
			action         TEXT    NOT NULL,
			strength       TEXT    NOT NULL,
			price          REAL    NOT NULL,
			entry          REAL,
			stop_loss      REAL,
			take_profit    REAL,
			confidence     REAL,
			leverage       INTEGER,
			total_score    INTEGER NOT NULL,
			average_score  REAL    NOT NULL,
			payload        TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_signals_market_ts
			ON signals (symbol, interval, ts);
		CREATE INDEX IF NOT EXISTS idx_signals_action_ts
			ON signals (action, ts);
	`)
	return err
}

// Run reads analysis results from resultCh and inserts them in batched
// transactions. Flushes every batchSize results OR every flushDelay,
// whichever comes first. Blocks until ctx is cancelled or resultCh closes.
func (w *Writer) Run(ctx context.Context, resultCh <-chan *model.AnalysisResult) {
	batch := make([]*model.AnalysisResult, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d results in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case res, ok := <-resultCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, res)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of results in a single transaction.
func (w *Writer) insertBatch(results []*model.AnalysisResult) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO signals (symbol, interval, ts, action, strength, price,
			entry, stop_loss, take_profit, confidence, leverage,
			total_score, average_score, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, res := range results {
		sig := res.Signal
		_, err := stmt.Exec(
			res.Symbol, res.Interval, res.Timestamp.Unix(),
			string(sig.Action), string(sig.Strength), res.CurrentPrice,
			sig.Entry, sig.StopLoss, sig.TakeProfit, sig.Confidence, sig.Leverage,
			sig.TotalScore, sig.AverageScore, string(res.JSON()),
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// InsertResult journals a single result outside the batching loop. Used by
// the one-shot analyzer.
func (w *Writer) InsertResult(res *model.AnalysisResult) error {
	return w.insertBatch([]*model.AnalysisResult{res})
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
