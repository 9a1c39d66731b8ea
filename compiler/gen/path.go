package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode separates commands from queries in the output tree.
type Mode string

// Generation modes.
const (
	ModeCommands Mode = "Commands"
	ModeQueries  Mode = "Queries"
)

// Suffix returns the class name suffix of the mode.
func (m Mode) Suffix() string {
	if m == ModeQueries {
		return "Query"
	}
	return "Command"
}

// PathPlanner computes where artifacts are written.
type PathPlanner struct {
	root string
	ext  string
}

// NewPathPlanner returns a planner rooted at root writing files with the
// given extension. A missing leading dot is added.
func NewPathPlanner(root, ext string) *PathPlanner {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &PathPlanner{root: root, ext: ext}
}

// Path returns the artifact path:
//
//	<root>/<Plural>/<Mode>/<Op><Entity>/<Op><Entity><Suffix>[Validator]<ext>
//
// It is a pure function of its arguments.
func (p *PathPlanner) Path(mode Mode, op Operation, entity string, validator bool) string {
	dir := string(op) + entity
	name := dir + mode.Suffix()
	if validator {
		name += "Validator"
	}
	return filepath.Join(p.root, rules.Pluralize(entity), string(mode), dir, name+p.ext)
}

// PlanPath returns Path and creates the missing directories on the way.
// An existing directory is not an error.
func (p *PathPlanner) PlanPath(mode Mode, op Operation, entity string, validator bool) (string, error) {
	path := p.Path(mode, op, entity, validator)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", path, err)
	}
	return path, nil
}
