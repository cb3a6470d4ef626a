// Package ports defines the persistence boundary of the decision engine.
// Engine and learner code depend only on these interfaces; the concrete
// stores live in internal/state.
package ports

// BlobStore is opaque key-value persistence for model weights and engine
// state snapshots.
//
// LoadBlob returns nil, nil when the key has never been saved (cold start).
// Implementations must make SaveBlob atomic: a crash mid-write must leave
// the previously saved value readable.
type BlobStore interface {
	SaveBlob(key string, data []byte) error
	LoadBlob(key string) ([]byte, error)
}

// BatchSaver is implemented by stores that can write several blobs at once.
// SaveBlobs stores every blob or none of them.
type BatchSaver interface {
	SaveBlobs(blobs map[string][]byte) error
}
