//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSchema_Ready(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("information_schema.tables").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	assert.NoError(t, requireSchema(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireSchema_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("information_schema.tables").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err = requireSchema(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `risk-cli migrate`")
	assert.NoError(t, mock.ExpectationsWereMet())
}
