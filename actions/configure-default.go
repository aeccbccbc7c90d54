package actions

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/config"
	"github.com/relloyd/xlpipe/helper"
)

// DefaultConfig holds a flag default to save in, or remove from, the main config file.
type DefaultConfig struct {
	ConfigFile ConnectionGetterSetter
	Key        string `errorTxt:"key" mandatory:"yes"`
	Value      string
	Force      bool
	Output     io.Writer
}

// RunDefaultAdd adds key+value to the given config file.
// If cfg.Force is not set then it returns an error when the key exists.
func RunDefaultAdd(cfg *DefaultConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if cfg.Value == "" {
		return errors.New("please supply a value")
	}
	var val string
	err := cfg.ConfigFile.Get(cfg.Key, &val)
	if err == nil && !cfg.Force { // if key exists and we're not allowed to overwrite...
		return fmt.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) {
		return err
	}
	if err = cfg.ConfigFile.Set(cfg.Key, cfg.Value); err != nil {
		return fmt.Errorf("error writing config file after adding: %v", err)
	}
	_, _ = fmt.Fprintf(output(cfg.Output), "Key %q added\n", cfg.Key)
	return nil
}

// RunDefaultList prints key=value for every saved default.
func RunDefaultList(cfg *DefaultConfig) error {
	keys, err := cfg.ConfigFile.GetAllKeys()
	if err != nil {
		return err
	}
	var val string
	for _, k := range keys {
		if err = cfg.ConfigFile.Get(k, &val); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(output(cfg.Output), "%v=%v\n", k, val)
	}
	return nil
}

// RunDefaultRemove removes a key from the given config file.
func RunDefaultRemove(cfg *DefaultConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.Key); err != nil {
		return fmt.Errorf("unable to delete key %q from config: %v", cfg.Key, err)
	}
	_, _ = fmt.Fprintf(output(cfg.Output), "Key %q removed\n", cfg.Key)
	return nil
}
