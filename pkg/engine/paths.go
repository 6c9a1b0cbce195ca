package engine

import (
	"path/filepath"
	"strings"
)

// pathHasRoot reports whether path is root itself or lies under root.
// A plain prefix check is not enough: /downloads/hotfix must not match the
// root /downloads/hot.
func pathHasRoot(path, root string) bool {
	if root == "" {
		return false
	}
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// relocatedPath maps a content path from one tier root to the other,
// preserving the relative layout (category subdirectory and payload name).
// ok is false when the content path does not lie under the source root.
func relocatedPath(contentPath, srcRoot, dstRoot string) (dst string, ok bool) {
	rel, err := filepath.Rel(filepath.Clean(srcRoot), filepath.Clean(contentPath))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.Join(dstRoot, rel), true
}
