package userdata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentx-labs/unithost/internal/platform"
)

// Default content for config.yaml.
const defaultConfigContent = `# Units initialized on every boot, by canonical key.
extensions: []
addons: []

# Set to true (or "yes", "1") to ignore a category's persisted activations.
disable:
  database.extensions: false
  database.addons: false

discovery:
  # Glob patterns matched against unit directory names.
  ignore:
    - ".*"

log:
  level: info
  format: text
`

// exampleUnitName is the directory of the sample extension.
const exampleUnitName = "hello_log"

const exampleUnitContent = `name: hello_log
type: extension
version: "0.1.0"
description: Logs its lifecycle calls. Enable it with 'units enable extension hello_log'.
entry: log
config:
  message: hello from unithost
`

// Init creates the home layout. It prints progress messages to w. Existing
// items are skipped with a message. When example is true a sample extension
// is added as well.
func Init(w io.Writer, l Layout, example bool) error {
	for _, dir := range []string{l.Root, l.Extensions, l.AddOns} {
		if err := ensureDir(w, dir, DirPermNormal); err != nil {
			return err
		}
	}
	if err := ensureDir(w, l.State, DirPermSecure); err != nil {
		return err
	}
	if err := ensureFile(w, l.Config, defaultConfigContent, FilePermNormal); err != nil {
		return err
	}

	if example {
		dir := filepath.Join(l.Extensions, exampleUnitName)
		if err := ensureDir(w, dir, DirPermNormal); err != nil {
			return err
		}
		if err := ensureFile(w, filepath.Join(dir, "unit.yaml"), exampleUnitContent, FilePermNormal); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(w io.Writer, path string, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			fmt.Fprintf(w, "  [SKIP] %s already exists\n", path)
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", path)
	}

	if err := platform.MkdirAll(path, perm); err != nil {
		return err
	}
	fmt.Fprintf(w, "  [ OK ] Created %s\n", path)
	return nil
}

// ensureFile creates a file with content if it doesn't exist.
func ensureFile(w io.Writer, path, content string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  [SKIP] %s already exists\n", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	fmt.Fprintf(w, "  [ OK ] Created %s\n", path)
	return nil
}
