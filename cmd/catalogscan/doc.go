// Package main hosts the catalogscan CLI entrypoint and command graph.
//
// The bare command scans the source directory once, asks the configured
// vision model about every image not yet in the store, and rewrites the
// store, export, and report after each image. Maintenance subcommands
// inspect the store, forget records so they are reprocessed, run the
// readiness checks, and scaffold configuration.
//
// Keep this package lean: the pipeline and its collaborators live under
// internal/; commands here only resolve configuration and wire them.
package main
