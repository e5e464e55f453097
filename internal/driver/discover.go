package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tplcheck/internal/bundle"
)

// ListBundles returns path itself when it is a file, otherwise every bundle
// below the directory in lexical order. Hidden directories are skipped.
func ListBundles(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if bundle.IsBundlePath(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no template bundles (*%s, *%s) found in %s", bundle.JSONSuffix, bundle.MsgpackSuffix, path)
	}
	sort.Strings(files)
	return files, nil
}
