package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"signal-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the signal journal for review tooling
// and backtesting exports.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// SignalRecord is one journaled row without the full payload.
type SignalRecord struct {
	ID           int64
	Symbol       string
	Interval     string
	TS           int64
	Action       model.Action
	Strength     model.Strength
	Price        float64
	Entry        float64
	StopLoss     float64
	TakeProfit   float64
	Confidence   float64
	Leverage     int
	TotalScore   int
	AverageScore float64
}

// RecentSignals returns the latest journaled rows for a market, newest
// first. Pass an empty action to include WAITs.
func (r *Reader) RecentSignals(symbol, interval string, action model.Action, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, symbol, interval, ts, action, strength, price,
			entry, stop_loss, take_profit, confidence, leverage,
			total_score, average_score
		FROM signals
		WHERE symbol = ? AND interval = ?`
	args := []interface{}{symbol, interval}
	if action != "" {
		query += ` AND action = ?`
		args = append(args, string(action))
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var act, str string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Interval, &rec.TS, &act, &str,
			&rec.Price, &rec.Entry, &rec.StopLoss, &rec.TakeProfit,
			&rec.Confidence, &rec.Leverage, &rec.TotalScore, &rec.AverageScore); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		rec.Action = model.Action(act)
		rec.Strength = model.Strength(str)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FullResult loads the complete analysis payload for a journaled row.
func (r *Reader) FullResult(id int64) (*model.AnalysisResult, error) {
	var payload string
	err := r.db.QueryRow(`SELECT payload FROM signals WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read payload: %w", err)
	}

	var res model.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &res, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
