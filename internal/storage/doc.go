// Package storage provides persistence for the identifiers of already-notified projects.
//
// The default backend is a plain text file holding one project ID per line
// (last_sent in the working directory). A SQLite backend with the same snapshot
// semantics is available for deployments that keep state in a database file.
// Every save replaces the stored set with the IDs seen on the latest run.
package storage
