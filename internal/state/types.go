package state

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested version does not exist.
var ErrNotFound = errors.New("state: version not found")

// #region version
// Version describes one saved blob. Each SaveBlob on a key creates a new
// version whose parent is the key's previously active version. Versions
// written together by SaveBlobs share a BatchID.
type Version struct {
	VersionID string    `json:"version_id"`
	Key       string    `json:"key"`
	ParentID  string    `json:"parent_id,omitempty"`
	BatchID   string    `json:"batch_id,omitempty"`
	Size      int       `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// #endregion version
