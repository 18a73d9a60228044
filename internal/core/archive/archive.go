// Package archive defines the handoff contract for raw and derived
// fiscalization artifacts. Storage semantics belong to the adapter; the
// engine only hands documents over, tagged with a caller-supplied folder
// token, and never fails fiscalization over an archival error.
package archive

import "context"

// Artifact is one document to persist.
type Artifact struct {
	Name        string // file name within the folder, e.g. "fina-request.xml"
	ContentType string
	Data        []byte
}

// Archiver stores artifacts under a folder token.
type Archiver interface {
	Save(ctx context.Context, folder string, artifacts ...Artifact) error
}

// Discard is an Archiver that stores nothing. Used when archival is not
// configured.
type Discard struct{}

func (Discard) Save(context.Context, string, ...Artifact) error { return nil }
