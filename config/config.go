package config

import (
	"fmt"
	"os"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"gopkg.in/yaml.v2"
)

var xlpipeHomeDir string
var Connections *File
var Main *File // default flag values.

func init() {
	Connections = NewConfigFileWithDir(mustGetConfigHomeDir(), ConnectionsConfigFileFullName)
	Main = NewConfigFileWithDir(mustGetConfigHomeDir(), MainFileFullName)
}

const (
	MainDir                         = ".xlpipe"
	HomeDirEnvVar                   = "XP_HOME" // overrides ~/.xlpipe
	ConnectionsConfigFileNamePrefix = "connections"
	ConnectionsConfigFileNameExt    = "yaml"
	ConnectionsConfigFileFullName   = ConnectionsConfigFileNamePrefix + "." + ConnectionsConfigFileNameExt
	MainFileNamePrefix              = "config"
	MainFileFullName                = MainFileNamePrefix + "." + ConnectionsConfigFileNameExt
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
}

func (k KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is a YAML map of keys to values persisted in the config home directory.
type File struct {
	Dirname      string
	FileName     string
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	mu           sync.Mutex
}

func NewConfigFileWithDir(dirName string, filename string) *File {
	return &File{
		Dirname:  dirName,
		FileName: filename,
		FullPath: path.Join(dirName, filename),
		data:     make(map[string]interface{}),
	}
}

// Get will decode the value of key into out, which must be a pointer.
// A KeyNotFoundError is returned if the key does not exist.
func (c *File) Get(key string, out interface{}) error {
	if reflect.ValueOf(out).Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return err
	}
	d, ok := c.data[key]
	if !ok {
		return KeyNotFoundError{c.FullPath, key}
	}
	if err := mapstructure.Decode(d, out); err != nil {
		return errors.Wrapf(err, "unable to decode key %q in config file %q", key, c.FullPath)
	}
	return nil
}

func (c *File) Set(key string, val interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) { // if the error is not a missing file (we create it below)...
		return err
	}
	b, err := yaml.Marshal(val) // store values in the same shape as they are read back from the file.
	if err != nil {
		return errors.Wrapf(err, "unable to marshal value for key %q", key)
	}
	var v interface{}
	if err = yaml.Unmarshal(b, &v); err != nil {
		return err
	}
	c.data[key] = v
	return c.save()
}

func (c *File) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return err
	}
	if _, keyExists := c.data[key]; !keyExists {
		return KeyNotFoundError{c.FullPath, key}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the sorted keys found in the file.
func (c *File) GetAllKeys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return nil, err
	}
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

func (c *File) loadData() error {
	if c.dataIsLoaded {
		return nil
	}
	b, err := os.ReadFile(c.FullPath)
	if os.IsNotExist(err) {
		c.dataIsLoaded = true
		return FileNotFoundError{c.FullPath}
	}
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(b, &c.data); err != nil {
		return errors.Wrapf(err, "unable to parse config file %q", c.FullPath)
	}
	if c.data == nil {
		c.data = make(map[string]interface{})
	}
	c.dataIsLoaded = true
	return nil
}

func (c *File) save() error {
	b, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("error marshalling data to config file %v: %v", c.FullPath, err)
	}
	if err = makeDir(c.Dirname); err != nil {
		return err
	}
	if err = os.WriteFile(c.FullPath, b, 0600); err != nil {
		return errors.Wrapf(err, "unable to write config file %q", c.FullPath)
	}
	return nil
}

// keyName normalises a connection name for use as a key.
func keyName(s string) string {
	return strings.TrimSpace(s)
}

// ensure File satisfies the interface used by actions.
var _ shared.ConnectionGetter = (*File)(nil)
