package watch

import "path/filepath"

// DocumentFilter decides which file names in a user directory are reported.
type DocumentFilter struct {
	Documents []string
	Ignore    []string
}

// NewDocumentFilter reports the given document names and skips temp files.
func NewDocumentFilter(documents ...string) *DocumentFilter {
	return &DocumentFilter{
		Documents: documents,
		Ignore:    []string{".*.tmp", "*~"},
	}
}

// Matches reports whether path names a watched document.
func (f *DocumentFilter) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.Ignore {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	if len(f.Documents) == 0 {
		return true
	}
	for _, name := range f.Documents {
		if base == name {
			return true
		}
	}
	return false
}
