package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "sectors", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sectors"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	n, err := CopyFrom(context.Background(), mock, "sectors", []string{"a", "b"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"aims", "sectors"}, []string{"a"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "aims.sectors", []string{"a"}, [][]any{{1}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sectors"}, []string{"a", "b"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "sectors", []string{"a", "b"}, [][]any{{1, "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO sectors")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_Scoped(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "activity_sectors" WHERE "activity_id" = \$1`).
		WithArgs("act-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"activity_sectors"}, []string{"activity_id", "code"}).WillReturnResult(2)
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	n, err := Replace(ctx, tx, ReplaceConfig{
		Table:       "activity_sectors",
		Columns:     []string{"activity_id", "code"},
		ScopeColumn: "activity_id",
		ScopeValue:  "act-1",
	}, [][]any{{"act-1", "11110"}, {"act-1", "12220"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_WholeTableNoRows(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM "sectors"$`).WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := Replace(context.Background(), mock, ReplaceConfig{Table: "sectors", Columns: []string{"code"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_DeleteError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM`).WillReturnError(fmt.Errorf("permission denied"))

	_, err = Replace(context.Background(), mock, ReplaceConfig{Table: "sectors", Columns: []string{"code"}}, [][]any{{"11110"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete from sectors")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_NoColumns(t *testing.T) {
	_, err := Replace(context.Background(), nil, ReplaceConfig{Table: "sectors"}, nil)
	assert.ErrorContains(t, err, "no columns")
}
