// Package project provides types and functions for tracking Ponisha project listings.
//
// The project package handles listing representation, identifier derivation from
// project URLs, markdown-safe sanitization of listing text, and the diff that decides
// which listings have not been seen on a previous run.
package project
