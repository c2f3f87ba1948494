// Package util holds small parsing and redaction helpers shared by the
// server and cache packages.
package util
