// Package inspect implements the commands that inspect a single binary,
// debug file or source bundle: peek, info, functions, files, symbols,
// source, bundle and export.
package inspect
