package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCsv(t *testing.T, dir string, name string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("id,type,store_id\nD1,1,S1\n"), 0600))
	return p
}

func TestSnowflakeStager(t *testing.T) {
	log := logger.MustNewLogger("stage test", "error", false)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	s := NewSnowflakeStager(log, shared.NewMockConnection(db, "snowflake"), "SUMUP_RAW_DATA")
	csv := writeCsv(t, t.TempDir(), "device.csv")

	mock.ExpectExec("create stage if not exists SUMUP_RAW_DATA").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PUT file://" + filepath.ToSlash(csv) + " @SUMUP_RAW_DATA AUTO_COMPRESS=TRUE OVERWRITE=TRUE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("remove @SUMUP_RAW_DATA/device.csv.gz").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background()))
	name, err := s.Put(context.Background(), csv)
	require.NoError(t, err)
	assert.Equal(t, "device.csv.gz", name)
	assert.Equal(t, "@SUMUP_RAW_DATA", s.Location())
	require.NoError(t, s.Remove(context.Background(), name))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSnowflakePutSqlQuotesSpaces(t *testing.T) {
	assert.Equal(t, "PUT 'file:///tmp/my dir/store.csv' @S AUTO_COMPRESS=TRUE OVERWRITE=TRUE", GetSnowflakePutSql("/tmp/my dir/store.csv", "S"))
}

func TestLocalStager(t *testing.T) {
	log := logger.MustNewLogger("stage test", "error", false)
	dir := filepath.Join(t.TempDir(), "stage")
	s := NewLocalStager(log, dir)
	require.NoError(t, s.Create(context.Background()))
	csv := writeCsv(t, t.TempDir(), "store.csv")
	name, err := s.Put(context.Background(), csv)
	require.NoError(t, err)
	assert.Equal(t, "store.csv", name)
	b, err := os.ReadFile(s.Path(name))
	require.NoError(t, err)
	assert.Equal(t, "id,type,store_id\nD1,1,S1\n", string(b))

	require.NoError(t, s.Remove(context.Background(), name))
	_, err = os.Stat(s.Path(name))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove(context.Background(), name), "removing a missing file is not an error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, csv)
	assert.Error(t, err)
}
