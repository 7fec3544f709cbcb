package pathutil

import "path/filepath"

// Canonical expands path and resolves symbolic links. Paths that do not
// exist locally, such as ones only the backend can see, are returned
// expanded but otherwise unchanged.
func Canonical(path string) (string, error) {
	abs, err := Expand(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
