package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/flowgen/internal/db"
	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/llm"
)

// Store persists journal entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record journals a finished cycle. It satisfies flowchart.Recorder.
func (s *Store) Record(ctx context.Context, c *flowchart.Cycle) error {
	return s.Log(ctx, Entry{
		ID:           c.ID,
		StartedAt:    c.StartedAt,
		Outcome:      string(c.Outcome),
		Message:      c.Message,
		Provider:     c.Provider,
		Model:        c.Model,
		PromptChars:  c.PromptChars,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		CostUSD:      llm.EstimateCost(c.Model, c.InputTokens, c.OutputTokens),
		Duration:     c.Duration,
		TargetID:     c.TargetID,
	})
}

// Log inserts a new entry. If entry.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (
			id, started_at, outcome, message, provider, model, prompt_chars,
			input_tokens, output_tokens, cost_usd, duration_ms, target_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.StartedAt.UTC().Format(time.DateTime),
		entry.Outcome,
		entry.Message,
		entry.Provider,
		entry.Model,
		entry.PromptChars,
		entry.InputTokens,
		entry.OutputTokens,
		entry.CostUSD,
		entry.Duration.Milliseconds(),
		entry.TargetID,
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM cycles WHERE id = ?", id)
	return scanInto(row)
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	Outcome  string
	Provider string
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

const columns = "id, started_at, outcome, message, provider, model, prompt_chars, input_tokens, output_tokens, cost_usd, duration_ms, target_id"

func (f QueryFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.Provider != "" {
		clauses = append(clauses, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, f.Since.UTC().Format(time.DateTime))
	}
	if f.Until != nil {
		clauses = append(clauses, "started_at <= ?")
		args = append(args, f.Until.UTC().Format(time.DateTime))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	where, args := filter.where()
	query := "SELECT " + columns + " FROM cycles" + where + " ORDER BY started_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Summarize aggregates the entries matching the filter. Limit and Offset are ignored.
func (s *Store) Summarize(ctx context.Context, filter QueryFilter) (*Summary, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*), COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM cycles`+where+` GROUP BY outcome`, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing journal: %w", err)
	}
	defer rows.Close()

	sum := &Summary{ByOutcome: map[string]int{}}
	for rows.Next() {
		var (
			outcome       string
			count, in, ou int
			cost          float64
		)
		if err := rows.Scan(&outcome, &count, &in, &ou, &cost); err != nil {
			return nil, err
		}
		sum.ByOutcome[outcome] = count
		sum.Total += count
		sum.InputTokens += in
		sum.OutputTokens += ou
		sum.CostUSD += cost
	}
	return sum, rows.Err()
}

// DeleteBefore removes all entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cycles WHERE started_at < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old journal entries: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e          Entry
		ts         string
		durationMS int64
	)

	err := sc.Scan(
		&e.ID, &ts, &e.Outcome, &e.Message, &e.Provider, &e.Model, &e.PromptChars,
		&e.InputTokens, &e.OutputTokens, &e.CostUSD, &durationMS, &e.TargetID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("journal entry not found")
		}
		return nil, err
	}

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.StartedAt = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.StartedAt = t
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond

	return &e, nil
}
