package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/model"
)

// anyArgs returns n pgxmock.AnyArg matchers; pgxmock treats an expectation
// without WithArgs as expecting zero arguments, so "don't care" must be spelled
// out per argument.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresUpsertProfile_InitialRecord(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT canonical_record FROM providers").
		WithArgs("P001").
		WillReturnRows(pgxmock.NewRows([]string{"canonical_record"}))
	mock.ExpectExec("INSERT INTO providers").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO versions").
		WithArgs(anyArgs(4)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	entry, err := st.UpsertProfile(ctx, testProfile("P001", model.DecisionAuto, 0.91))
	require.NoError(t, err)

	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, "Initial record", entry.ChangeSummary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertProfile_ChangeSummaryFromPrev(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	prev := testProfile("P001", model.DecisionAuto, 0.91)
	prevJSON, err := json.Marshal(prev)
	require.NoError(t, err)

	next := testProfile("P001", model.DecisionReview, 0.75)
	next.Phone = "+12175550199"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT canonical_record FROM providers").
		WithArgs("P001").
		WillReturnRows(pgxmock.NewRows([]string{"canonical_record"}).AddRow(prevJSON))
	mock.ExpectExec("INSERT INTO providers").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO versions").
		WithArgs(anyArgs(4)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectCommit()

	entry, err := st.UpsertProfile(ctx, next)
	require.NoError(t, err)

	assert.Contains(t, entry.ChangeSummary, "decision AUTO→REVIEW")
	assert.Contains(t, entry.ChangeSummary, "phone updated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertProfile_RollbackOnVersionFailure(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT canonical_record FROM providers").
		WithArgs("P001").
		WillReturnRows(pgxmock.NewRows([]string{"canonical_record"}))
	mock.ExpectExec("INSERT INTO providers").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO versions").
		WithArgs(anyArgs(4)...).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := st.UpsertProfile(ctx, testProfile("P001", model.DecisionAuto, 0.91))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProfile(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	p := testProfile("P001", model.DecisionAuto, 0.91)
	recordJSON, err := json.Marshal(p)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT canonical_record FROM providers").
		WithArgs("P001").
		WillReturnRows(pgxmock.NewRows([]string{"canonical_record"}).AddRow(recordJSON))

	got, err := st.GetProfile(ctx, "P001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dr. Test Provider P001", got.Name)

	mock.ExpectQuery("SELECT canonical_record FROM providers").
		WithArgs("absent").
		WillReturnRows(pgxmock.NewRows([]string{"canonical_record"}))

	missing, err := st.GetProfile(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordRun(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO pipeline_runs").
		WithArgs(anyArgs(6)...).
		WillReturnRows(pgxmock.NewRows([]string{"run_id"}).AddRow(int64(3)))

	stats := &model.RunStats{TotalProcessed: 5, AutoCount: 2}
	require.NoError(t, st.RecordRun(ctx, stats))
	assert.Equal(t, int64(3), stats.RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
