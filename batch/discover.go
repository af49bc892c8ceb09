package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"video-compressor/config"
)

// Discover expands directories into their supported video files, sorted by
// name. Plain paths are kept as given so probing reports missing or
// unsupported files in order. Directories are not searched recursively.
func Discover(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || !fi.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !config.IsSupportedInput(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(p, e.Name()))
		}
		out = append(out, found...)
	}
	return out, nil
}
