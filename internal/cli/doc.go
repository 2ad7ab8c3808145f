// Package cli implements the command-line interface for ponisha-watch.
//
// The root command layers flags over the configuration, wires the scraper,
// state store and notifier into a watcher, runs a single check and prints the
// run report as text or JSON.
package cli
