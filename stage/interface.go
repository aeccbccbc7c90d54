//go:generate mockgen -package mocks -destination mocks/stager.go -source=interface.go
package stage

import "context"

// Stager copies local files somewhere the warehouse can bulk load them from.
type Stager interface {
	// Create makes sure the stage exists.
	Create(ctx context.Context) error
	// Put uploads localPath and returns the name of the file within the stage.
	Put(ctx context.Context, localPath string) (stagedName string, err error)
	// Remove deletes a staged file. A file that is already gone is not an error.
	Remove(ctx context.Context, stagedName string) error
	// Location describes the stage for logs.
	Location() string
}
