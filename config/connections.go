package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

// GetConnectionDetails returns the connection saved under connectionName.
// A DSN in the environment variable XP_<NAME>_DSN takes precedence over the file.
func (f *File) GetConnectionDetails(connectionName string) (shared.ConnectionDetails, error) {
	connectionName = keyName(connectionName)
	if dsn := os.Getenv(helper.GetDsnEnvVarName(connectionName)); dsn != "" {
		t, err := DsnConnectionType(dsn)
		if err != nil {
			return shared.ConnectionDetails{}, errors.Wrapf(err, "environment variable %v", helper.GetDsnEnvVarName(connectionName))
		}
		return shared.NewDsnConnectionDetails(t, connectionName, dsn)
	}
	d := shared.ConnectionDetails{}
	if err := f.Get(connectionName, &d); err != nil {
		if errors.As(err, &KeyNotFoundError{}) {
			return d, fmt.Errorf("connection %q is not configured: use 'xp config conn add' to create it or set %v", connectionName, helper.GetDsnEnvVarName(connectionName))
		}
		return d, err
	}
	if d.Type == "" {
		return d, fmt.Errorf("unknown type for connection %q", connectionName)
	}
	if d.LogicalName == "" {
		d.LogicalName = connectionName
	}
	return d, nil
}

// GetConnectionType returns the type of the saved connection.
func (f *File) GetConnectionType(connectionName string) (string, error) {
	d, err := f.GetConnectionDetails(connectionName)
	if err != nil {
		return "", err
	}
	return d.Type, nil
}

// SetConnectionDetails validates and saves d under its logical name.
func (f *File) SetConnectionDetails(d shared.ConnectionDetails) error {
	if err := helper.ValidateStructIsPopulated(d); err != nil {
		return err
	}
	return f.Set(keyName(d.LogicalName), d)
}

// DsnConnectionType returns the database type implied by the scheme of dsn.
func DsnConnectionType(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, c.ConnectionTypeSnowflake+"://"):
		return c.ConnectionTypeSnowflake, nil
	case strings.HasPrefix(dsn, c.ConnectionTypeSqlite+":"):
		return c.ConnectionTypeSqlite, nil
	}
	return "", fmt.Errorf("unable to tell the database type from DSN %q", shared.RedactDsn(dsn))
}
