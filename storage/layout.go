package storage

import (
	"fmt"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// objectName is the backend-relative name of a content item:
// "<type>/<hex content id>". Every backend lays content out the same way so
// an archive can be mirrored between them with plain copy tools.
func objectName(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return contentType.String() + "/" + id.String()
}

// verifyContent checks fetched bytes against the requested content id.
func verifyContent(id interfaces.ContentID, data []byte) error {
	if actual := interfaces.ComputeID(data); actual != id {
		return fmt.Errorf("content hash mismatch: want %s, got %s", id, actual)
	}
	return nil
}
