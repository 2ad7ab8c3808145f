// Package filter provides keyword filtering of new projects before notification.
//
// A filter narrows which newly-seen projects are announced:
//   - Include: at least one keyword must appear in the title or description
//   - Exclude: no keyword may appear in the title or description
//
// Matching is a case-insensitive substring match. Filtering only decides what
// is announced; filtered-out projects are still recorded as seen.
//
// Example usage:
//
//	f := filter.New([]string{"golang", "backend"}, []string{"wordpress"})
//	announce, skipped := f.Split(diff.New)
package filter

import (
	"strings"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

// Filter represents project keyword criteria
type Filter struct {
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// New creates a filter, dropping blank keywords
func New(include, exclude []string) *Filter {
	return &Filter{
		Include: normalize(include),
		Exclude: normalize(exclude),
	}
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// IsEmpty checks if the filter has any active criteria.
// A nil or empty filter matches every project.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Include) == 0 && len(f.Exclude) == 0)
}

// Matches checks if a project passes both the include and exclude lists
func (f *Filter) Matches(p *project.Project) bool {
	if f.IsEmpty() {
		return true
	}

	text := strings.ToLower(p.Title + "\n" + p.Description)

	for _, k := range f.Exclude {
		if strings.Contains(text, strings.ToLower(k)) {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}
	for _, k := range f.Include {
		if strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Split partitions projects into those that match and those that don't,
// keeping the original order in both.
func (f *Filter) Split(projects []*project.Project) (matched, skipped []*project.Project) {
	matched = make([]*project.Project, 0, len(projects))
	skipped = make([]*project.Project, 0)

	for _, p := range projects {
		if f.Matches(p) {
			matched = append(matched, p)
		} else {
			skipped = append(skipped, p)
		}
	}
	return matched, skipped
}
