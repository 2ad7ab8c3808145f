package project

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// BaseURL is the site root used to resolve relative listing links
const BaseURL = "https://ponisha.ir"

// linkPattern matches the project page path, e.g. /project/123456/some-slug
var linkPattern = regexp.MustCompile(`^/project/(?P<id>\d+)(?:/|$)`)

// markdownChars have syntactic meaning in Telegram's legacy markdown
var markdownChars = strings.NewReplacer(
	"*", "",
	"[", "",
	"]", "",
	"_", "",
	"`", "",
	"~", "",
)

// Project represents a single listing on the projects page
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// New creates a Project from raw listing fields. Title and description are
// trimmed and sanitized; href is resolved against base and reduced to the
// canonical project link.
func New(title, description, href string, base *url.URL) (*Project, error) {
	id, link, err := ParseLink(href, base)
	if err != nil {
		return nil, err
	}

	return &Project{
		ID:          id,
		Title:       Sanitize(title),
		Description: Sanitize(description),
		URL:         link,
	}, nil
}

// ParseLink extracts the project identifier from a listing href and returns it
// together with the canonical project URL (scheme://host/project/<id>).
func ParseLink(href string, base *url.URL) (string, string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", "", fmt.Errorf("empty project link")
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", "", fmt.Errorf("parsing project link %q: %w", href, err)
	}

	if base == nil {
		base, _ = url.Parse(BaseURL)
	}
	u = base.ResolveReference(u)

	matches := linkPattern.FindStringSubmatch(u.Path)
	if matches == nil {
		return "", "", fmt.Errorf("project link %q does not match /project/<id>", href)
	}
	id := matches[linkPattern.SubexpIndex("id")]

	canonical := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/project/" + id}
	return id, canonical.String(), nil
}

// Sanitize trims s and strips the characters that would break markdown
// formatting of the notification message.
func Sanitize(s string) string {
	return markdownChars.Replace(strings.TrimSpace(s))
}

// SeenSet is the set of project identifiers recorded by a previous run
type SeenSet map[string]struct{}

// NewSeenSet builds a SeenSet from ids. Surrounding whitespace is dropped and
// blank ids are ignored.
func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add records id in the set
func (s SeenSet) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Has reports whether id was seen. A nil set contains nothing.
func (s SeenSet) Has(id string) bool {
	_, ok := s[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of ids in the set
func (s SeenSet) Len() int {
	return len(s)
}
