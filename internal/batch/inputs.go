// Package batch reads and writes the tabular rows the pipelines run over.
package batch

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	linkerrors "github.com/csplab/linkage/internal/errors"
)

// ExpandInputs resolves file paths and ** glob patterns into a sorted,
// de-duplicated list of regular files. A pattern matching nothing is an error.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	var errs []error

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			errs = append(errs, linkerrors.NewInputError(pattern, 0, fmt.Errorf("bad pattern: %w", err)))
			continue
		}

		found := 0
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			found++
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
		if found == 0 {
			errs = append(errs, linkerrors.NewInputError(pattern, 0, fmt.Errorf("no input files match")))
		}
	}

	if err := linkerrors.NewMultiError(errs).ErrorOrNil(); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
