// Package logging constructs slog loggers for cratesync.
//
// The console handler renders "TIMESTAMP LEVEL component: message k=v ..."
// lines; the JSON handler emits machine-readable records with lowercase
// level names and RFC3339 UTC timestamps.
package logging
