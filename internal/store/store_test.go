package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	s, err := New(context.Background(), mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, mockPool
}

func sampleRecord() schemas.RecordedSnapshot {
	return schemas.RecordedSnapshot{
		RunID:      "run-1",
		Seq:        1,
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Snapshot: schemas.LayoutSnapshot{
			URL:    "https://page.test/",
			Window: schemas.WindowSnapshot{ComputedStyle: true},
			Elements: []schemas.ElementSnapshot{
				{ID: "host", OffsetWidth: 40, OffsetHeight: 20, Rect: &schemas.Rect{Top: 62, Left: 52, Width: 40, Height: 20}},
				{ID: "target", OffsetWidth: 10, OffsetHeight: 6},
			},
		},
		Results: []schemas.PlacementResult{{
			Request:      schemas.PlacementRequest{Host: "host", Target: "target", Placement: "bottom-left"},
			Spec:         schemas.PlacementSpec{Place: schemas.SideBottom, Align: schemas.SideLeft},
			HostRect:     schemas.Rect{Top: 10, Left: 30, Width: 40, Height: 20},
			TargetWidth:  10,
			TargetHeight: 6,
			Offset:       schemas.Offset{Top: 30, Left: 30},
		}},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPersistRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("should insert the capture and copy its placements", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		rec := sampleRecord()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertCapture)).
			WithArgs("run-1", 1, rec.CapturedAt, "https://page.test/", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"placements"}, placementColumns).WillReturnResult(1)
		mockPool.ExpectCommit()

		require.NoError(t, s.PersistRecord(ctx, rec))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should skip the copy when there are no results", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		rec := sampleRecord()
		rec.Results = nil

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertCapture)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, s.PersistRecord(ctx, rec))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should roll back when the insert fails", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		dbErr := errors.New("duplicate key")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertCapture)).WillReturnError(dbErr)
		mockPool.ExpectRollback()

		err := s.PersistRecord(ctx, sampleRecord())
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "run-1/1")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should fail on a short copy", func(t *testing.T) {
		s, mockPool := newMockStore(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertCapture)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"placements"}, placementColumns).WillReturnResult(0)
		mockPool.ExpectRollback()

		err := s.PersistRecord(ctx, sampleRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mismatch in copied placements count")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should report begin failures", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err := s.PersistRecord(ctx, sampleRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}

func TestLoadRun(t *testing.T) {
	ctx := context.Background()

	t.Run("should rebuild records with their results", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		want := sampleRecord()
		snapshot, err := json.Marshal(want.Snapshot)
		require.NoError(t, err)

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectCaptures)).WithArgs("run-1").
			WillReturnRows(pgxmock.NewRows([]string{"seq", "captured_at", "snapshot"}).
				AddRow(1, want.CapturedAt, snapshot))
		r := want.Results[0]
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectPlacements)).WithArgs("run-1").
			WillReturnRows(pgxmock.NewRows([]string{"seq", "host", "target", "placement", "append_to_body", "place", "align",
				"host_top", "host_left", "host_width", "host_height", "target_width", "target_height", "offset_top", "offset_left"}).
				AddRow(1, r.Request.Host, r.Request.Target, r.Request.Placement, r.Request.AppendToBody, "bottom", "left",
					r.HostRect.Top, r.HostRect.Left, r.HostRect.Width, r.HostRect.Height,
					r.TargetWidth, r.TargetHeight, r.Offset.Top, r.Offset.Left).
				AddRow(7, "orphan", "orphan", "top", false, "top", "center", 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0))

		got, err := s.LoadRun(ctx, "run-1")
		require.NoError(t, err)
		if diff := cmp.Diff([]schemas.RecordedSnapshot{want}, got); diff != "" {
			t.Errorf("LoadRun mismatch (-want +got):\n%s", diff)
		}
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should return nothing for an unknown run", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectCaptures)).WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"seq", "captured_at", "snapshot"}))

		got, err := s.LoadRun(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject a corrupt snapshot", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectCaptures)).WithArgs("run-1").
			WillReturnRows(pgxmock.NewRows([]string{"seq", "captured_at", "snapshot"}).
				AddRow(1, time.Now(), []byte(`{"elements":`)))

		_, err := s.LoadRun(ctx, "run-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode snapshot run-1/1")
	})

	t.Run("should propagate query errors", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectCaptures)).WillReturnError(errors.New("relation does not exist"))

		_, err := s.LoadRun(ctx, "run-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query captures")
	})
}

func TestMigrate(t *testing.T) {
	s, mockPool := newMockStore(t)
	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS captures").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
