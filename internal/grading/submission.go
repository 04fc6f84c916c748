package grading

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/source"
	"gradecheck/internal/shared/util"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// Submission resolves rubric-relative file names inside one submitted
// directory and loads them through a shared registry.
type Submission struct {
	ID       string
	Dir      string
	registry *source.Registry
}

// NewSubmission starts id on registry, evicting units cached for any other
// submission.
func NewSubmission(id, dir string, registry *source.Registry) *Submission {
	registry.Begin(id)
	return &Submission{ID: id, Dir: dir, registry: registry}
}

func (s *Submission) Path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(s.Dir, filepath.FromSlash(file))
}

func (s *Submission) Load(file string) (*source.Unit, error) {
	return s.registry.Load(s.Path(file))
}

func (s *Submission) Exists(file string) bool {
	ok, err := afero.Exists(s.registry.Fs(), s.Path(file))
	return err == nil && ok
}

// IsGlob reports whether an expected file name is a glob pattern.
func IsGlob(file string) bool {
	return strings.ContainsAny(file, "*?[{")
}

// Glob returns the submission files matching pattern, relative to the
// submission directory. A pattern without a separator matches base names at
// any depth.
func (s *Submission) Glob(pattern string) ([]string, error) {
	normalized := util.NormalizePatternPath(pattern)
	g, err := glob.Compile(normalized, '/')
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid file pattern %q", pattern))
	}
	byBase := !util.ContainsPathSeparator(normalized)

	var out []string
	walkErr := afero.Walk(s.registry.Fs(), s.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Dir, path)
		if err != nil {
			return nil
		}
		rel = util.NormalizePatternPath(rel)
		subject := rel
		if byBase {
			subject = filepath.Base(path)
		}
		if g.Match(subject) {
			out = append(out, rel)
		}
		return nil
	})
	return out, walkErr
}
