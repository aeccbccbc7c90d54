package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/aws/s3"
	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

// S3Stager uploads files to a bucket and checks they are listed afterwards.
// When Conn is set, Create registers the bucket location as a Snowflake external stage.
type S3Stager struct {
	Log                logger.Logger
	Client             s3.BasicClient
	Conn               shared.Connector
	StageName          string
	StorageIntegration string
}

func NewS3Stager(log logger.Logger, client s3.BasicClient, conn shared.Connector, stageName string, storageIntegration string) *S3Stager {
	return &S3Stager{Log: log, Client: client, Conn: conn, StageName: stageName, StorageIntegration: storageIntegration}
}

func (s *S3Stager) Create(ctx context.Context) error {
	if s.Conn == nil {
		s.Log.Debug("no warehouse connection: nothing to register for ", s.Location())
		return nil
	}
	q := fmt.Sprintf("create stage if not exists %v url = %v", s.StageName, helper.QuoteSqlString(s.Client.Location()+"/"))
	if s.StorageIntegration != "" {
		q += " storage_integration = " + s.StorageIntegration
	}
	s.Log.Info("Creating external stage: ", q)
	if _, err := s.Conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "unable to create external stage %v", s.StageName)
	}
	return nil
}

func (s *S3Stager) Put(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "unable to open file %v", localPath)
	}
	defer f.Close()
	name := filepath.Base(localPath)
	if err = s.Client.BufferPut(ctx, name, f); err != nil {
		return "", errors.Wrapf(err, "unable to copy file %v to %v", localPath, s.Client.Location())
	}
	keys, err := s.Client.List(ctx, name)
	if err != nil {
		return "", errors.Wrapf(err, "unable to list %v after upload", s.Client.Location())
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("file %v was not found in %v after upload", name, s.Client.Location())
	}
	s.Log.Info("Copied file ", localPath, " to ", s.Client.Location(), "/", name)
	return name, nil
}

func (s *S3Stager) Remove(ctx context.Context, stagedName string) error {
	if err := s.Client.Delete(ctx, stagedName); err != nil {
		return errors.Wrapf(err, "unable to delete %v from %v", stagedName, s.Client.Location())
	}
	return nil
}

func (s *S3Stager) Location() string {
	return s.Client.Location()
}
