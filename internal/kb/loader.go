// Package kb loads the career knowledge base and splits it into
// retrievable units.
package kb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"careercompass/internal/logger"
	"careercompass/internal/model"
)

// SectionDelimiter separates logically independent career descriptions
// inside one knowledge-base file.
const SectionDelimiter = "---"

var (
	ErrNoSources          = errors.New("no knowledge base sources found")
	ErrEmptyKnowledgeBase = errors.New("knowledge base produced no sections")
)

// Loader reads plain-text sources from a directory (or a single file) and
// partitions each into trimmed, non-empty sections.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load enumerates qualifying .txt sources and returns their sections in
// source order. An unreadable source is logged and skipped; the load only
// fails when no source exists at all or no section survives.
func (l *Loader) Load() ([]model.Section, error) {
	sources, err := l.listSources()
	if err != nil {
		return nil, err
	}

	var sections []model.Section
	for _, src := range sources {
		raw, err := os.ReadFile(src)
		if err != nil {
			logger.L().Warn("skip unreadable knowledge base source",
				zap.String("source", src), zap.Error(err))
			continue
		}
		sections = append(sections, splitSections(filepath.Base(src), string(raw))...)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyKnowledgeBase, l.path)
	}
	return sections, nil
}

func (l *Loader) listSources() ([]string, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, l.path)
	}

	// Single-file knowledge base is still supported.
	if !info.IsDir() {
		return []string{l.path}, nil
	}

	entries, err := os.ReadDir(l.path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base directory failed: %w", err)
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		sources = append(sources, filepath.Join(l.path, entry.Name()))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no .txt files in %s", ErrNoSources, l.path)
	}
	return sources, nil
}

// splitSections cuts raw source text on the delimiter, trims whitespace and
// drops empty blocks. Section indexes count surviving blocks only.
func splitSections(source, raw string) []model.Section {
	var sections []model.Section
	for _, block := range strings.Split(raw, SectionDelimiter) {
		text := strings.TrimSpace(block)
		if text == "" {
			continue
		}
		sections = append(sections, model.Section{
			Source: source,
			Index:  len(sections),
			Text:   text,
		})
	}
	return sections
}
