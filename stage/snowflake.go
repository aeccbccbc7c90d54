package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

// SnowflakeStager puts files onto a Snowflake internal stage.
type SnowflakeStager struct {
	Log       logger.Logger
	Conn      shared.Connector
	StageName string
}

func NewSnowflakeStager(log logger.Logger, conn shared.Connector, stageName string) *SnowflakeStager {
	return &SnowflakeStager{Log: log, Conn: conn, StageName: stageName}
}

func (s *SnowflakeStager) Create(ctx context.Context) error {
	q := fmt.Sprintf("create stage if not exists %v", s.StageName)
	s.Log.Info("Creating stage: ", q)
	if _, err := s.Conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "unable to create stage %v", s.StageName)
	}
	return nil
}

// Put compresses the file on upload so the staged name gains a .gz suffix.
func (s *SnowflakeStager) Put(ctx context.Context, localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	q := GetSnowflakePutSql(abs, s.StageName)
	s.Log.Debug("executing: ", q)
	if _, err = s.Conn.ExecContext(ctx, q); err != nil {
		return "", errors.Wrapf(err, "unable to put file %v to stage @%v", localPath, s.StageName)
	}
	stagedName := filepath.Base(abs) + ".gz"
	s.Log.Info("Staged file ", localPath, " as @", s.StageName, "/", stagedName)
	return stagedName, nil
}

func (s *SnowflakeStager) Remove(ctx context.Context, stagedName string) error {
	q := fmt.Sprintf("remove @%v/%v", s.StageName, stagedName)
	s.Log.Debug("executing: ", q)
	if _, err := s.Conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "unable to remove file %v from stage @%v", stagedName, s.StageName)
	}
	return nil
}

func (s *SnowflakeStager) Location() string {
	return "@" + s.StageName
}

// GetSnowflakePutSql returns the PUT command for a local file.
// Paths containing spaces are quoted.
func GetSnowflakePutSql(absPath string, stageName string) string {
	src := "file://" + filepath.ToSlash(absPath)
	if strings.ContainsAny(src, " '") {
		src = "'" + strings.ReplaceAll(src, "'", `\'`) + "'"
	}
	return fmt.Sprintf("PUT %v @%v AUTO_COMPRESS=TRUE OVERWRITE=TRUE", src, stageName)
}
