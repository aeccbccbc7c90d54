package actions

import (
	"github.com/relloyd/xlpipe/rdbms/shared"
)

// ConnectionHandler resolves the logical connection names used in a project.
type ConnectionHandler interface {
	GetConnectionType(connectionName string) (connectionType string, err error)
	GetConnectionDetails(connectionName string) (connectionDetails shared.ConnectionDetails, err error)
}

// ConnectionGetterSetter is the persistent store behind the config conn commands.
type ConnectionGetterSetter interface {
	Get(key string, out interface{}) error
	Set(key string, val interface{}) error
	Delete(key string) error
	GetAllKeys() ([]string, error)
}
