package main

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/swf"
)

// input is one ABC document: a whole .abc file or one DoABC tag of a movie.
type input struct {
	path  string
	name  string
	data  []byte
	movie *swf.Movie // nil for .abc files
	tag   int
	label string // DoABC name
}

// expandPaths resolves glob patterns (doublestar syntax, so ** crosses
// directories). Plain paths are kept as given, globs that match nothing are
// an error.
func expandPaths(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matches := []string{p}
		if strings.ContainsAny(p, "*?[{") {
			m, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
			if err != nil {
				return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "pattern "+p)
			}
			if len(m) == 0 {
				return nil, errors.NotFound(errors.PhaseConfig, "files matching", p)
			}
			slices.Sort(m)
			matches = m
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func isMovie(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".swf")
}

// readInputs loads the documents stored in path.
func readInputs(path string) ([]input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isMovie(path) {
		return []input{{path: path, name: path, data: data}}, nil
	}

	m, err := swf.Parse(data)
	if err != nil {
		return nil, err
	}
	abcs, err := m.ABCs()
	if err != nil {
		return nil, err
	}
	if len(abcs) == 0 {
		return nil, errors.NotFound(errors.PhaseContainer, "DoABC tag", path)
	}
	out := make([]input, len(abcs))
	for i, a := range abcs {
		name := path + "#" + strconv.Itoa(i)
		if a.Name != "" {
			name += " (" + a.Name + ")"
		}
		out[i] = input{path: path, name: name, data: a.Data, movie: m, tag: a.Tag, label: a.Name}
	}
	return out, nil
}

// blobName names the listing directory of the index-th blob of a movie.
func (in input) blobName(index int) string {
	if in.label != "" {
		return in.label
	}
	return "abc" + strconv.Itoa(index)
}
