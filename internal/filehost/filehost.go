// Package filehost abstracts the blob store that holds uploaded artifacts
// and icons. Callers address blobs by hierarchical key; the public URL is
// the CDN base joined with that key.
package filehost

import "context"

// UploadedFile describes a stored blob. FileID identifies the upload for
// later deletion; FileName is the key the blob lives under.
type UploadedFile struct {
	FileID   string
	FileName string
}

// FileHost stores and deletes blobs. Implementations must be safe for
// concurrent use.
type FileHost interface {
	// Upload writes data under key and returns its handle. An existing blob
	// under the same key is overwritten.
	Upload(ctx context.Context, contentType, key string, data []byte) (*UploadedFile, error)

	// Delete removes a previously uploaded blob. Deleting a missing blob is
	// not an error.
	Delete(ctx context.Context, fileID, fileName string) error
}
