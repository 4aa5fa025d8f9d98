package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ErrNoManifest is returned by Find when a directory has no manifest file.
var ErrNoManifest = errors.New("no manifest found")

// Parse reads a manifest file and returns the decoded manifest. It does not
// validate; see ValidateFile.
func Parse(path string) (*UnitManifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, path)
}

// ParseBytes decodes manifest bytes. path is only used in error messages.
func ParseBytes(data []byte, path string) (*UnitManifest, error) {
	var m UnitManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// Find returns the path of the manifest in dir, trying FileNames in order.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoManifest, dir)
}

// Load finds, validates and parses the manifest in dir. Validation issues
// are reported as an *InvalidError.
func Load(dir string) (*UnitManifest, string, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, "", err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, path, err
	}

	result, err := Validate(data)
	if err != nil {
		return nil, path, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, path, &InvalidError{Path: path, Result: result}
	}

	m, err := ParseBytes(data, path)
	if err != nil {
		return nil, path, err
	}
	return m, path, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
