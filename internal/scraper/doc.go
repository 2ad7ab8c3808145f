// Package scraper provides HTTP fetching and HTML parsing for the Ponisha projects page.
//
// The scraper package fetches the public project search page from ponisha.ir and
// extracts project listings including title, description, and project link. The
// project identifier is derived from the link path, and listing text is sanitized
// for Telegram markdown.
package scraper
