package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/constants"
	"github.com/xo/dburl"
)

var DefaultDsnConnectionKeyNames = struct {
	Dsn string
}{
	Dsn: "dsn",
}

// S3 connections carry these keys instead of a DSN.
var DefaultS3ConnectionKeyNames = struct {
	Bucket string
	Prefix string
	Region string
}{
	Bucket: "bucket",
	Prefix: "prefix",
	Region: "region",
}

// ConnectionDetails is intended to hold credentials for a logical connection.
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"connection type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"connection logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := []string{fmt.Sprintf("  type = %v", c.Type)}
	if v, ok := c.Data[DefaultDsnConnectionKeyNames.Dsn]; ok { // if there's a DSN...
		x = append(x, fmt.Sprintf("  dsn = %v", RedactDsn(v)))
		return strings.Join(x, "\n")
	}
	// else there's no DSN... (could be S3 connection)
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.Data[k]
		if k == "password" {
			v = "xxxxx"
		}
		x = append(x, fmt.Sprintf("  %v = %v", k, v))
	}
	return strings.Join(x, "\n")
}

// GetDsn returns the DSN of a database connection.
func (c ConnectionDetails) GetDsn() (string, error) {
	v := c.Data[DefaultDsnConnectionKeyNames.Dsn]
	if v == "" {
		return "", errors.Errorf("connection %q has no DSN", c.LogicalName)
	}
	return v, nil
}

// RedactDsn hides the password in dsn, or the whole DSN when it cannot be parsed.
func RedactDsn(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite:") { // if it's a file path there is nothing to hide...
		return dsn
	}
	u, err := dburl.Parse(dsn)
	if err != nil {
		return "<unparseable DSN>"
	}
	return u.Redacted()
}

// NewDsnConnectionDetails validates dsn for the connection type t.
func NewDsnConnectionDetails(t string, logicalName string, dsn string) (ConnectionDetails, error) {
	c := ConnectionDetails{Type: t, LogicalName: logicalName, Data: map[string]string{DefaultDsnConnectionKeyNames.Dsn: dsn}}
	switch t {
	case constants.ConnectionTypeSnowflake:
		if !strings.HasPrefix(dsn, "snowflake://") {
			return c, errors.New("unsupported Snowflake DSN format: expected prefix snowflake://")
		}
	case constants.ConnectionTypeSqlite:
		if !strings.HasPrefix(dsn, "sqlite:") || len(strings.TrimLeft(strings.TrimPrefix(dsn, "sqlite:"), "/")) == 0 {
			return c, errors.New("unsupported SQLite DSN format: expected sqlite:<path>")
		}
	default:
		return c, errors.Errorf("unsupported database type %q", t)
	}
	return c, nil
}

// NewS3ConnectionDetails returns details for a bucket, optional key prefix and region.
func NewS3ConnectionDetails(logicalName string, bucket string, prefix string, region string) (ConnectionDetails, error) {
	if bucket == "" {
		return ConnectionDetails{}, errors.New("S3 bucket name is required")
	}
	return ConnectionDetails{
		Type:        constants.ConnectionTypeS3,
		LogicalName: logicalName,
		Data: map[string]string{
			DefaultS3ConnectionKeyNames.Bucket: bucket,
			DefaultS3ConnectionKeyNames.Prefix: prefix,
			DefaultS3ConnectionKeyNames.Region: region,
		},
	}, nil
}
