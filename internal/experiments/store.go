package experiments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/analysis"
)

// Experiment is one grid cell: the configuration that was run and the
// flattened outcome. It is the unit of persistence and ranking.
type Experiment struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Strategy        string  `json:"strategy"`
	DatasetID       string  `json:"dataset_id"`
	Symbol          string  `json:"symbol"`
	WindowSize      int     `json:"window_size"`
	HoldPenaltyRate float64 `json:"hold_penalty_rate"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct"`

	Steps      int     `json:"steps"`
	FinalScore float64 `json:"final_score"`

	Result analysis.BacktestResult `json:"result"`
}

// NewID builds an experiment ID of the form
// exp_20240315_142530_a1b2c3d4: sortable by creation time, unique by
// the uuid tail.
func NewID(now time.Time) string {
	return fmt.Sprintf("exp_%s_%s",
		now.UTC().Format("20060102_150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ErrNotFound is returned by Load and Delete for unknown IDs.
var ErrNotFound = errors.New("experiment not found")

type Store interface {
	Save(ctx context.Context, exp Experiment) error
	Load(ctx context.Context, id string) (Experiment, error)
	List(ctx context.Context) ([]Experiment, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewAuto picks the Postgres store when a DSN is configured, otherwise
// the file store.
func NewAuto(dir, dsn string) (Store, error) {
	if dsn != "" {
		s, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		log.Debug().Msg("using postgres experiment store")
		return s, nil
	}
	return NewFileStore(dir)
}

// Leaderboard returns the top-n experiments by Sharpe ratio.
func Leaderboard(ctx context.Context, store Store, n int) ([]Experiment, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Result.SharpeRatio > all[j].Result.SharpeRatio
	})
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}

// FileStore keeps one JSON file per experiment under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating experiment dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Save(_ context.Context, exp Experiment) error {
	raw, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(exp.ID), raw, 0o644)
}

func (s *FileStore) Load(_ context.Context, id string) (Experiment, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Experiment{}, ErrNotFound
		}
		return Experiment{}, err
	}
	var exp Experiment
	if err := json.Unmarshal(raw, &exp); err != nil {
		return Experiment{}, fmt.Errorf("parsing %s: %w", id, err)
	}
	return exp, nil
}

func (s *FileStore) List(_ context.Context) ([]Experiment, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Experiment
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var exp Experiment
		if err := json.Unmarshal(raw, &exp); err != nil {
			log.Warn().Str("file", e.Name()).Err(err).Msg("skipping unreadable experiment")
			continue
		}
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Close() error { return nil }

// PostgresStore persists experiments in a single table with the full
// record as JSONB, so the schema never chases the result shape.
type PostgresStore struct {
	db *sqlx.DB
}

const experimentsSchema = `
CREATE TABLE IF NOT EXISTS experiments (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	strategy   TEXT NOT NULL,
	dataset_id TEXT NOT NULL,
	sharpe     DOUBLE PRECISION NOT NULL DEFAULT 0,
	payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS experiments_sharpe_idx ON experiments (sharpe DESC);
`

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, experimentsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, exp Experiment) error {
	payload, err := json.Marshal(exp)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO experiments (id, created_at, strategy, dataset_id, sharpe, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, sharpe = EXCLUDED.sharpe`
	_, err = s.db.ExecContext(ctx, query,
		exp.ID, exp.CreatedAt, exp.Strategy, exp.DatasetID, sharpeOrZero(exp), payload)
	if err != nil {
		return fmt.Errorf("saving experiment %s: %w", exp.ID, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (Experiment, error) {
	var payload []byte
	err := s.db.QueryRowxContext(ctx, `SELECT payload FROM experiments WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return Experiment{}, ErrNotFound
	}
	if err != nil {
		return Experiment{}, fmt.Errorf("loading experiment %s: %w", id, err)
	}
	var exp Experiment
	if err := json.Unmarshal(payload, &exp); err != nil {
		return Experiment{}, fmt.Errorf("parsing experiment %s: %w", id, err)
	}
	return exp, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Experiment, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT payload FROM experiments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing experiments: %w", err)
	}
	defer rows.Close()

	var out []Experiment
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var exp Experiment
		if err := json.Unmarshal(payload, &exp); err != nil {
			log.Warn().Err(err).Msg("skipping unreadable experiment row")
			continue
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting experiment %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// sharpeOrZero guards the indexed column against the +Inf profit-factor
// sibling problem: Sharpe itself is always finite, but keep the insert
// total even if a degenerate value slips through.
func sharpeOrZero(exp Experiment) float64 {
	s := exp.Result.SharpeRatio
	if s != s || s > 1e18 || s < -1e18 {
		return 0
	}
	return s
}
