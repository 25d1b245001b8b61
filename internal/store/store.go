package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlInsertCapture = `
        INSERT INTO captures (run_id, seq, captured_at, url, snapshot)
        VALUES ($1, $2, $3, $4, $5);
    `
	sqlSelectCaptures = `
        SELECT seq, captured_at, snapshot
        FROM captures
        WHERE run_id = $1
        ORDER BY seq ASC;
    `
	sqlSelectPlacements = `
        SELECT seq, host, target, placement, append_to_body, place, align,
               host_top, host_left, host_width, host_height,
               target_width, target_height, offset_top, offset_left
        FROM placements
        WHERE run_id = $1
        ORDER BY seq ASC, idx ASC;
    `
)

var placementColumns = []string{
	"run_id", "seq", "idx", "host", "target", "placement", "append_to_body", "place", "align",
	"host_top", "host_left", "host_width", "host_height",
	"target_width", "target_height", "offset_top", "offset_left",
}

// Store persists recorded captures and their placement results in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// PersistRecord writes a capture and its results in one transaction.
func (s *Store) PersistRecord(ctx context.Context, rec schemas.RecordedSnapshot) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit reports ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertCapture, rec.RunID, rec.Seq, rec.CapturedAt.UTC(), rec.Snapshot.URL, snapshot); err != nil {
		return fmt.Errorf("failed to insert capture %s/%d: %w", rec.RunID, rec.Seq, err)
	}
	if len(rec.Results) > 0 {
		if err := s.persistPlacements(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Persisted capture.", zap.String("run_id", rec.RunID), zap.Int("seq", rec.Seq), zap.Int("placements", len(rec.Results)))
	return nil
}

func (s *Store) persistPlacements(ctx context.Context, tx pgx.Tx, rec schemas.RecordedSnapshot) error {
	rows := make([][]interface{}, len(rec.Results))
	for i, r := range rec.Results {
		rows[i] = []interface{}{
			rec.RunID, rec.Seq, i,
			r.Request.Host, r.Request.Target, r.Request.Placement, r.Request.AppendToBody,
			string(r.Spec.Place), string(r.Spec.Align),
			r.HostRect.Top, r.HostRect.Left, r.HostRect.Width, r.HostRect.Height,
			r.TargetWidth, r.TargetHeight, r.Offset.Top, r.Offset.Left,
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"placements"}, placementColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy placements: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied placements count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// LoadRun returns every capture of a run in sequence order, with results.
func (s *Store) LoadRun(ctx context.Context, runID string) ([]schemas.RecordedSnapshot, error) {
	rows, err := s.pool.Query(ctx, sqlSelectCaptures, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var out []schemas.RecordedSnapshot
	bySeq := make(map[int]int)
	for rows.Next() {
		rec := schemas.RecordedSnapshot{RunID: runID}
		var snapshot []byte
		if err := rows.Scan(&rec.Seq, &rec.CapturedAt, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan capture row: %w", err)
		}
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s/%d: %w", runID, rec.Seq, err)
		}
		bySeq[rec.Seq] = len(out)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	if err := s.loadPlacements(ctx, runID, out, bySeq); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadPlacements(ctx context.Context, runID string, out []schemas.RecordedSnapshot, bySeq map[int]int) error {
	rows, err := s.pool.Query(ctx, sqlSelectPlacements, runID)
	if err != nil {
		return fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq          int
			r            schemas.PlacementResult
			place, align string
		)
		err := rows.Scan(
			&seq, &r.Request.Host, &r.Request.Target, &r.Request.Placement, &r.Request.AppendToBody,
			&place, &align,
			&r.HostRect.Top, &r.HostRect.Left, &r.HostRect.Width, &r.HostRect.Height,
			&r.TargetWidth, &r.TargetHeight, &r.Offset.Top, &r.Offset.Left,
		)
		if err != nil {
			return fmt.Errorf("failed to scan placement row: %w", err)
		}
		r.Spec = schemas.PlacementSpec{Place: schemas.Side(place), Align: schemas.Side(align)}

		i, ok := bySeq[seq]
		if !ok {
			s.log.Warn("Placement row has no capture.", zap.String("run_id", runID), zap.Int("seq", seq))
			continue
		}
		out[i].Results = append(out[i].Results, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during row iteration: %w", err)
	}
	return nil
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS captures (
    run_id      TEXT        NOT NULL,
    seq         INTEGER     NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL,
    url         TEXT        NOT NULL DEFAULT '',
    snapshot    JSONB       NOT NULL,
    PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS placements (
    run_id         TEXT             NOT NULL,
    seq            INTEGER          NOT NULL,
    idx            INTEGER          NOT NULL,
    host           TEXT             NOT NULL,
    target         TEXT             NOT NULL,
    placement      TEXT             NOT NULL,
    append_to_body BOOLEAN          NOT NULL,
    place          TEXT             NOT NULL,
    align          TEXT             NOT NULL,
    host_top       DOUBLE PRECISION NOT NULL,
    host_left      DOUBLE PRECISION NOT NULL,
    host_width     DOUBLE PRECISION NOT NULL,
    host_height    DOUBLE PRECISION NOT NULL,
    target_width   DOUBLE PRECISION NOT NULL,
    target_height  DOUBLE PRECISION NOT NULL,
    offset_top     DOUBLE PRECISION NOT NULL,
    offset_left    DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, seq, idx),
    FOREIGN KEY (run_id, seq) REFERENCES captures (run_id, seq) ON DELETE CASCADE
);
`
