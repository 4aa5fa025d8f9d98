package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/agentx-labs/unithost/internal/builtin"
	"github.com/agentx-labs/unithost/internal/manifest"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
)

//go:embed templates
var templateFS embed.FS

const templatesDir = "templates"

// Data holds the template variables.
type Data struct {
	Name        string // canonical key, also the directory name
	Type        string // manifest type: "extension" or "addon"
	Plural      string // allow-list key
	Version     string
	Description string
	Entry       string // factory name
	Year        int
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewData builds template data for a unit of category c. The name is
// normalized to its canonical key. An empty entry selects the built-in log
// factory.
func NewData(c unit.Category, name, entry string) (*Data, error) {
	key, ok := unitkey.Normalize(name)
	if !ok {
		return nil, fmt.Errorf("%q is not a valid unit name (must match %s after lowercasing)", name, unitkey.Pattern)
	}
	if entry == "" {
		entry = builtin.EntryLog
	}
	return &Data{
		Name:        key,
		Type:        c.String(),
		Plural:      c.Plural(),
		Version:     "0.1.0",
		Description: fmt.Sprintf("The %s %s", key, c),
		Entry:       entry,
		Year:        time.Now().Year(),
	}, nil
}

// Generate writes a new unit into outputDir, which must be missing or empty.
// The generated manifest is validated; problems come back as warnings.
func Generate(data *Data, outputDir string) (*Result, error) {
	entries, err := fs.ReadDir(templateFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Check for existing files to prevent accidental overwrites.
	existing, err := os.ReadDir(outputDir)
	if err == nil && len(existing) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{OutputDir: outputDir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplPath := templatesDir + "/" + entry.Name()
		tmplBytes, err := fs.ReadFile(templateFS, tmplPath)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", tmplPath, err)
		}

		tmpl, err := template.New(entry.Name()).Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", entry.Name(), err)
		}

		outName := strings.TrimSuffix(entry.Name(), ".tmpl")
		outPath := filepath.Join(outputDir, outName)
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outPath, err)
		}
		result.Files = append(result.Files, outName)
	}

	if _, _, err := manifest.Load(outputDir); err != nil {
		var invalid *manifest.InvalidError
		if errors.As(err, &invalid) {
			for _, issue := range invalid.Result.Issues {
				result.Warnings = append(result.Warnings, issue.String())
			}
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not validate manifest: %v", err))
		}
	}
	return result, nil
}
