package scene

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// NodeID is a content-addressed identifier for scene nodes: the hex
// encoded blake2b-256 digest of the node's path.
type NodeID string

// ZeroID is the empty identifier.
const ZeroID NodeID = ""

// NewNodeID derives the identifier for path, e.g. "brush/pillar".
func NewNodeID(path string) NodeID {
	sum := blake2b.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 8 hex digits, for messages.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}
