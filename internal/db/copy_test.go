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

var historyColumns = []string{"domain", "total"}

func TestCopyRows_EmptyRows(t *testing.T) {
	n, err := CopyRows(context.Background(), nil, "scores", historyColumns, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyRows_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"scores"}, historyColumns).WillReturnResult(3)

	rows := [][]any{{"acme.io", 59.35}, {"beta.com", 18.0}, {"name:gamma", 0.0}}
	n, err := CopyRows(context.Background(), mock, "scores", historyColumns, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"audit", "scores"}, historyColumns).WillReturnResult(1)

	n, err := CopyRows(context.Background(), mock, "audit.scores", historyColumns, [][]any{{"acme.io", 59.35}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_RowWidthMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = CopyRows(context.Background(), mock, "scores", historyColumns, [][]any{{"acme.io", 59.35}, {"beta.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values for 2 columns")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"scores"}, historyColumns).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyRows(context.Background(), mock, "scores", historyColumns, [][]any{{"acme.io", 59.35}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: copy scores")
	assert.NoError(t, mock.ExpectationsWereMet())
}
