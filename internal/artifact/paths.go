package artifact

import (
	"fmt"
	"path/filepath"
)

// Stable artifact paths. Temp files live in the same directory as the final
// path so the rename that replaces them is atomic.

// FeedPath is the stable Atom feed path for an id.
func FeedPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.atom", id))
}

// DataPath is the stable per-title JSON document path for an id.
func DataPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.json", id))
}

// IndexPath is the fixed aggregate index path.
func IndexPath(dir string) string {
	return filepath.Join(dir, "index.html")
}
