package userdata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/unithost/internal/platform"
)

// Check validates the home layout and reports each item to w. When fix is
// true, missing directories are created and state permissions corrected.
// It returns the number of problems left unfixed.
func Check(w io.Writer, l Layout, fix bool) int {
	fmt.Fprintln(w, "Home check:")

	if _, err := os.Stat(l.Root); os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", l.Root)
		if !fix {
			fmt.Fprintln(w, "         Run 'init' to create")
			return 1
		}
		fmt.Fprintln(w, "  [FIX ] Running init...")
		if err := Init(w, l, false); err != nil {
			fmt.Fprintf(w, "  [FAIL] %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", l.Root)

	problems := 0
	problems += checkDirExists(w, l.Extensions, fix)
	problems += checkDirExists(w, l.AddOns, fix)
	problems += checkDirWithPerm(w, l.State, DirPermSecure, fix)
	problems += checkFileExists(w, l.Config)
	problems += checkStrayFiles(w, l.State)
	return problems
}

func checkDirWithPerm(w io.Writer, path string, expectedPerm os.FileMode, fix bool) int {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		if fix {
			if mkErr := os.MkdirAll(path, expectedPerm); mkErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not create %s: %v\n", path, mkErr)
				return 1
			}
			_ = platform.Chmod(path, expectedPerm)
			fmt.Fprintf(w, "  [FIX ] Created %s with %o\n", path, expectedPerm)
			return 0
		}
		return 1
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return 1
	}

	actualPerm := info.Mode().Perm()
	if actualPerm != expectedPerm {
		fmt.Fprintf(w, "  [WARN] %s has permissions %o (expected %o)\n", path, actualPerm, expectedPerm)
		if fix {
			if chErr := platform.Chmod(path, expectedPerm); chErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not fix permissions on %s: %v\n", path, chErr)
				return 1
			}
			fmt.Fprintf(w, "  [FIX ] Fixed permissions on %s to %o\n", path, expectedPerm)
			return 0
		}
		return 1
	}
	fmt.Fprintf(w, "  [ OK ] %s (permissions %o)\n", path, actualPerm)
	return 0
}

func checkFileExists(w io.Writer, path string) int {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		return 1
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
	return 0
}

func checkDirExists(w io.Writer, path string, fix bool) int {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		if fix {
			if mkErr := os.MkdirAll(path, DirPermNormal); mkErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not create %s: %v\n", path, mkErr)
				return 1
			}
			fmt.Fprintf(w, "  [FIX ] Created %s\n", path)
			return 0
		}
		return 1
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return 1
	}
	if !info.IsDir() {
		fmt.Fprintf(w, "  [WARN] %s exists but is not a directory\n", path)
		return 1
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
	return 0
}

// checkStrayFiles reports temp files left behind by an interrupted record
// write.
func checkStrayFiles(w io.Writer, stateDir string) int {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return 0 // already reported
	}
	problems := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), platform.TempPrefix) {
			continue
		}
		fmt.Fprintf(w, "  [WARN] %s looks like an interrupted write\n", filepath.Join(stateDir, e.Name()))
		problems++
	}
	return problems
}
