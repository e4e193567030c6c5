package filter

import (
	"regexp"
	"strings"
)

// CandidateFile represents one discovered test file. It is created by the
// collector, consumed read-only by the filter predicates and discarded once
// the keep/drop decision is made.
type CandidateFile struct {
	Path     string
	Contents string
}

// FS is the filesystem view consulted for companion documentation files.
type FS interface {
	Exists(path string) bool
}

const (
	sourceSuffix = ".js"
	docSuffix    = ".md"
)

// browserOnlyRe matches a bender tag comment carrying the browser-only tag
// as a whole word, e.g. /* bender-tags: editor, browser-only */. Matching is
// case-sensitive and single-line scoped: `.` does not cross newlines, so the
// tag comment must sit on one line.
var browserOnlyRe = regexp.MustCompile(`/\*\s*bender-tags:.*\bbrowser-only\b.*\*/`)

// IsManualTest reports whether f is a manual test, i.e. a documentation file
// with the same base name sits next to it. Manual tests require human
// interaction and are excluded from automated runs. A stat failure on the
// companion path counts as "does not exist".
func IsManualTest(fsys FS, f CandidateFile) bool {
	doc := strings.TrimSuffix(f.Path, sourceSuffix) + docSuffix
	return fsys.Exists(doc)
}

// IsBrowserOnly reports whether f carries the browser-only tag comment and
// is therefore invalid outside a browser environment.
func IsBrowserOnly(f CandidateFile) bool {
	return browserOnlyRe.MatchString(f.Contents)
}

// Select returns the files that should actually be executed as automated
// tests: those that are neither manual nor browser-only. Input order is
// preserved. Both predicates are pure for a fixed filesystem snapshot, so
// re-running Select over the same input yields the same output.
func Select(fsys FS, files []CandidateFile) []CandidateFile {
	selected := make([]CandidateFile, 0, len(files))
	for _, f := range files {
		if IsManualTest(fsys, f) {
			continue
		}
		if IsBrowserOnly(f) {
			continue
		}
		selected = append(selected, f)
	}
	return selected
}
