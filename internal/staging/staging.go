package staging

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/finopslabs/apinbox/internal/fingerprint"
)

// Index maps document fingerprint -> staged PDF path. Duplicate content
// staged more than once keeps the first file in sorted path order, so the
// mapping is deterministic across runs.
func Index(dir string) (map[string]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to list staging dir %s: %w", dir, err)
	}
	sort.Strings(paths)

	mapping := make(map[string]string, len(paths))
	for _, p := range paths {
		h, err := fingerprint.File(p)
		if err != nil {
			// Unreadable staged file: skip, detection will report FILE_MISSING
			continue
		}
		if _, ok := mapping[h]; !ok {
			mapping[h] = p
		}
	}

	return mapping, nil
}
