package stage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/logger"
)

// LocalStager copies files into a directory for warehouses that read from local disk.
type LocalStager struct {
	Log       logger.Logger
	Directory string
}

func NewLocalStager(log logger.Logger, dir string) *LocalStager {
	return &LocalStager{Log: log, Directory: dir}
}

func (s *LocalStager) Create(context.Context) error {
	if err := os.MkdirAll(s.Directory, 0750); err != nil {
		return errors.Wrapf(err, "unable to create stage directory %v", s.Directory)
	}
	return nil
}

func (s *LocalStager) Put(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.Create(ctx); err != nil {
		return "", err
	}
	name := filepath.Base(localPath)
	if err := copyFile(localPath, filepath.Join(s.Directory, name)); err != nil {
		return "", errors.Wrapf(err, "unable to stage file %v in %v", localPath, s.Directory)
	}
	s.Log.Info("Staged file ", localPath, " in ", s.Directory)
	return name, nil
}

func (s *LocalStager) Remove(_ context.Context, stagedName string) error {
	if err := os.Remove(s.Path(stagedName)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to remove staged file %v", s.Path(stagedName))
	}
	return nil
}

func (s *LocalStager) Location() string {
	return s.Directory
}

// Path returns the location of a staged file.
func (s *LocalStager) Path(stagedName string) string {
	return filepath.Join(s.Directory, stagedName)
}

func copyFile(src string, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
