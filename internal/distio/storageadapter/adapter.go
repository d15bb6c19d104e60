// Package storageadapter abstracts upload/delete/public-URL resolution for a
// content-addressed key behind two variants: a local no-op adapter (files
// already live where the HTTP server reads them) and a remote S3-compatible
// adapter that actually pushes bytes to an object store.
package storageadapter

import "context"

// Adapter is the capability set the Scanner and Rescan Orchestrator drive.
type Adapter interface {
	// Upload reads localPath fully and stores it under remoteKey, returning
	// the resulting public URL. A no-op for the local variant.
	Upload(ctx context.Context, localPath, remoteKey string) (string, error)

	// Delete removes remoteKey from the backing store. A no-op for the
	// local variant.
	Delete(ctx context.Context, remoteKey string) error

	// GetURL derives the public URL for remoteKey without any I/O.
	GetURL(remoteKey string) string

	// IsRemote reports whether this adapter actually synchronizes bytes to
	// a remote store (gates the Rescan Orchestrator's upload/delete fan-out).
	IsRemote() bool
}

// UploadError wraps an upload failure with the offending key.
type UploadError struct {
	RemoteKey string
	Err       error
}

func (e *UploadError) Error() string {
	return "storageadapter: upload " + e.RemoteKey + ": " + e.Err.Error()
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError wraps a delete failure with the offending key.
type DeleteError struct {
	RemoteKey string
	Err       error
}

func (e *DeleteError) Error() string {
	return "storageadapter: delete " + e.RemoteKey + ": " + e.Err.Error()
}

func (e *DeleteError) Unwrap() error { return e.Err }
