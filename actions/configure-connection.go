package actions

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/aws/s3"
	"github.com/relloyd/xlpipe/config"
	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/rdbms"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

type ConnectionConfig struct {
	ConfigFile  ConnectionGetterSetter
	LogicalName string
	Type        string // snowflake, sqlite or s3.
	Dsn         string // a full DSN wins over the parts below.
	Snowflake   rdbms.SnowflakeConnectionDetails
	SqlitePath  string
	Bucket      string
	Prefix      string
	Region      string
	Force       bool
	Output      io.Writer
}

// newConnectionDetails validates the supplied values for cfg.Type.
func newConnectionDetails(cfg *ConnectionConfig) (shared.ConnectionDetails, error) {
	switch cfg.Type {
	case constants.ConnectionTypeSnowflake:
		dsn := cfg.Dsn
		if dsn == "" { // if we need to build the DSN from its parts...
			if err := validateSnowflakeDetails(cfg.Snowflake); err != nil {
				return shared.ConnectionDetails{}, err
			}
			var err error
			if dsn, err = rdbms.SnowflakeGetDSN(&cfg.Snowflake); err != nil {
				return shared.ConnectionDetails{}, errors.Wrap(err, "unable to build Snowflake DSN")
			}
		} else if _, err := rdbms.SnowflakeParseDSN(dsn); err != nil {
			return shared.ConnectionDetails{}, errors.Wrap(err, "unable to parse Snowflake DSN")
		}
		return shared.NewDsnConnectionDetails(cfg.Type, cfg.LogicalName, dsn)
	case constants.ConnectionTypeSqlite:
		dsn := cfg.Dsn
		if dsn == "" {
			if cfg.SqlitePath == "" {
				return shared.ConnectionDetails{}, errors.New("please supply the SQLite database file path")
			}
			dsn = rdbms.SqliteGetDSN(cfg.SqlitePath)
		}
		return shared.NewDsnConnectionDetails(cfg.Type, cfg.LogicalName, dsn)
	case constants.ConnectionTypeS3:
		if cfg.Dsn != "" { // if we have a URL it wins over the parts...
			b, err := s3.ParseDSN(cfg.Dsn, cfg.Region)
			if err != nil {
				return shared.ConnectionDetails{}, err
			}
			return shared.NewS3ConnectionDetails(cfg.LogicalName, b.Name, b.Prefix, b.Region)
		}
		return shared.NewS3ConnectionDetails(cfg.LogicalName, cfg.Bucket, cfg.Prefix, cfg.Region)
	}
	return shared.ConnectionDetails{}, fmt.Errorf("unsupported connection type %q: use %v or %v", cfg.Type, GetSupportedWarehouseTypes(), constants.ConnectionTypeS3)
}

func validateSnowflakeDetails(d rdbms.SnowflakeConnectionDetails) error {
	missing := make([]string, 0)
	for _, kv := range [][2]string{{"account", d.Account}, {"database", d.DBName}, {"schema", d.Schema}, {"user", d.User}, {"password", d.Password}} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("please supply a DSN or values for Snowflake %v", strings.Join(missing, ", "))
	}
	return nil
}

func RunConnectionAdd(cfg *ConnectionConfig) error {
	if err := validateConnectionName(cfg.LogicalName); err != nil {
		return err
	}
	connection, err := newConnectionDetails(cfg)
	if err != nil {
		return errors.Wrap(err, "unable to create connection")
	}
	// Check for an existing saved connection.
	existing := shared.ConnectionDetails{}
	err = cfg.ConfigFile.Get(cfg.LogicalName, &existing)
	if err != nil {
		if !errors.As(err, &config.KeyNotFoundError{}) { // if the error is real...
			return err
		}
	} else if !cfg.Force { // else the connection exists but we are not allowed to overwrite it...
		return fmt.Errorf("connection %q exists, use force to update the connection or remove it first", cfg.LogicalName)
	}
	if err = cfg.ConfigFile.Set(cfg.LogicalName, connection); err != nil {
		return fmt.Errorf("error writing connections config file after adding: %v", err)
	}
	_, _ = fmt.Fprintf(output(cfg.Output), "Connection %q added\n", cfg.LogicalName)
	return nil
}

func RunConnectionList(cfg *ConnectionConfig) error {
	keys, err := cfg.ConfigFile.GetAllKeys()
	if err != nil {
		return err
	}
	w := output(cfg.Output)
	for _, k := range keys { // for each connection...
		conn := shared.ConnectionDetails{}
		if err = cfg.ConfigFile.Get(k, &conn); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%v:\n%v\n", k, conn)
	}
	return nil
}

func RunConnectionRemove(cfg *ConnectionConfig) error {
	if err := validateConnectionName(cfg.LogicalName); err != nil {
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.LogicalName); err != nil {
		return fmt.Errorf("unable to delete connection %q from config: %v", cfg.LogicalName, err)
	}
	_, _ = fmt.Fprintf(output(cfg.Output), "Connection %q removed\n", cfg.LogicalName)
	return nil
}

func validateConnectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("please supply a connection name")
	}
	if strings.ContainsAny(name, ". ") {
		return fmt.Errorf("connection name %q cannot contain periods or spaces", name)
	}
	return nil
}

func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
