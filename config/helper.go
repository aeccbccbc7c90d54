package config

import (
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
)

// mustGetConfigHomeDir returns the full path to the directory that stores all config files.
// XP_HOME wins over ~/.xlpipe.
func mustGetConfigHomeDir() string {
	if xlpipeHomeDir == "" {
		if d := os.Getenv(HomeDirEnvVar); d != "" {
			xlpipeHomeDir = d
			return xlpipeHomeDir
		}
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		xlpipeHomeDir = path.Join(home, MainDir)
	}
	return xlpipeHomeDir
}

// makeDir will make the given directory if it does not already exist.
func makeDir(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) { // if it doesn't exist...
		if err = os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("error creating directory %v: %w", dir, err)
		}
	} else if err != nil {
		return err
	}
	return nil
}
