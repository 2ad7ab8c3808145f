package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/ponisha-watch/internal/logger"
	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

const (
	ProjectsURL = "https://ponisha.ir/search/projects"
	UserAgent   = "ponisha-watch/1.0 (github.com/pfrederiksen/ponisha-watch)"
	Timeout     = 30 * time.Second

	// DefaultMaxProjects caps how many listings a single run processes
	DefaultMaxProjects = 25

	// ListingSelector matches the column holding one listing. The class
	// attribute is compared as a whole string, not per class token.
	ListingSelector = `[class="col-sm-9 col-xs-12 right"]`

	maxBodySize = 10 << 20
)

// StatusError is returned when the projects page answers with a non-200 status
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("requested URL returned %d code", e.StatusCode)
}

// ExtractionError reports a listing node that does not have the expected structure
type ExtractionError struct {
	Index  int // zero-based position of the node in the page
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listing %d: %s: %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("listing %d: %s", e.Index, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Scraper handles fetching and parsing the Ponisha projects page
type Scraper struct {
	client        *http.Client
	url           string
	log           *logger.Logger
	skipMalformed bool
	maxBodySize   int64
}

// Option configures a Scraper
type Option func(*Scraper)

// WithURL overrides the projects page URL
func WithURL(u string) Option {
	return func(s *Scraper) { s.url = u }
}

// WithTimeout sets the page fetch timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithLogger sets the logger used for extraction warnings
func WithLogger(l *logger.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSkipMalformed makes Extract log and skip malformed listings instead of failing
func WithSkipMalformed(skip bool) Option {
	return func(s *Scraper) { s.skipMalformed = skip }
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		url:         ProjectsURL,
		log:         logger.Nop(),
		maxBodySize: maxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the page the scraper fetches
func (s *Scraper) URL() string {
	return s.url
}

// Fetch downloads the projects page and parses it into a document
func (s *Scraper) Fetch(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: s.url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > s.maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", s.maxBodySize)
	}
	s.log.Debug("response received", logger.Fields{"bytes": len(body)})

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Url = resp.Request.URL

	return doc, nil
}

// FetchProjects fetches the page and extracts at most max listings
func (s *Scraper) FetchProjects(ctx context.Context, max int) ([]*project.Project, error) {
	doc, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Extract(doc, max)
}

// Extract returns the listings found in doc, in page order.
//
// Only the first max listing nodes are processed; a warning is logged when the
// page holds more. A malformed node fails the whole extraction unless the
// scraper was built with WithSkipMalformed.
func (s *Scraper) Extract(doc *goquery.Document, max int) ([]*project.Project, error) {
	nodes := doc.Find(ListingSelector)

	count := nodes.Length()
	if max > 0 && count > max {
		s.log.Warn("more projects than maximum allowed, processing only the first ones",
			logger.Fields{"found": count, "max": max})
		nodes = nodes.Slice(0, max)
	} else {
		s.log.Debug("number of projects", logger.Fields{"found": count})
	}

	base := doc.Url
	if base == nil {
		base, _ = url.Parse(s.url)
	}

	projects := make([]*project.Project, 0, nodes.Length())
	var extractErr error

	nodes.EachWithBreak(func(i int, node *goquery.Selection) bool {
		p, err := parseListing(i, node, base)
		if err != nil {
			if s.skipMalformed {
				s.log.Warn("skipping malformed listing", logger.Fields{"index": i, "reason": err.Error()})
				return true
			}
			extractErr = err
			return false
		}
		projects = append(projects, p)
		return true
	})

	if extractErr != nil {
		return nil, extractErr
	}
	return projects, nil
}

// parseListing reads one listing column:
//
//	<div class="col-sm-9 col-xs-12 right">
//	  <h2><a href="/project/<id>/..."><span>title</span></a></h2>
//	  <div>description</div>
//	</div>
func parseListing(i int, node *goquery.Selection, base *url.URL) (*project.Project, error) {
	children := node.Children()
	if children.Length() < 2 {
		return nil, &ExtractionError{Index: i, Reason: "expected heading and description elements"}
	}

	anchor := children.Eq(0).Children().First()
	if anchor.Length() == 0 {
		return nil, &ExtractionError{Index: i, Reason: "missing project link"}
	}

	href, ok := anchor.Attr("href")
	if !ok {
		return nil, &ExtractionError{Index: i, Reason: "project link has no href"}
	}

	titleNode := anchor.Children().First()
	if titleNode.Length() == 0 {
		titleNode = anchor
	}
	title := strings.TrimSpace(titleNode.Text())
	description := strings.TrimSpace(children.Eq(1).Text())

	p, err := project.New(title, description, href, base)
	if err != nil {
		return nil, &ExtractionError{Index: i, Reason: "invalid project link", Err: err}
	}
	return p, nil
}
