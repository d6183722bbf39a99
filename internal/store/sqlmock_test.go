package store

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/model"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newStoreFromDB(sqlx.NewDb(db, "sqlite")), mock
}

func TestGetGoalNoRowsIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM goals WHERE id = \? AND user_id = \?`).
		WithArgs("g1", "u1").
		WillReturnRows(sqlmock.NewRows(goalColumns))

	_, err := s.GetGoal(context.Background(), "u1", "g1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGoalRollsBackWhenNothingMatched(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE goals SET .* WHERE id = \? AND user_id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.UpdateGoal(context.Background(), "u1", "g1", model.GoalInput{Title: "x"}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMilestoneRollsBackOnTaskFailure(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM milestones WHERE id = \? AND user_id = \?`).
		WithArgs("m1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM tasks WHERE milestone_id = \? AND user_id = \?`).
		WithArgs("m1", "u1").
		WillReturnError(boom)
	mock.ExpectRollback()

	err := s.DeleteMilestone(context.Background(), "u1", "m1")
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountTasksPropagatesQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("database is locked")

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks WHERE \(user_id = \? AND status = \?\)`).
		WithArgs("u1", "done").
		WillReturnError(boom)

	done := model.WorkStatusDone
	_, err := s.CountTasks(context.Background(), TaskFilter{UserID: "u1", Status: &done})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDSNCarriesConnectionPragmas(t *testing.T) {
	for _, path := range []string{"/tmp/planner.db", "file:planner.db?cache=shared"} {
		u, err := url.Parse("x://h/?" + strings.SplitN(dsn(path), "?", 2)[1])
		require.NoError(t, err)
		q := u.Query()

		assert.ElementsMatch(t, []string{"busy_timeout(5000)", "foreign_keys(1)", "journal_mode(WAL)"}, q["_pragma"], path)
		assert.Equal(t, "immediate", q.Get("_txlock"), path)
	}
	assert.Contains(t, dsn("file:planner.db?cache=shared"), "cache=shared&_pragma=")
}
