// Package build runs one build of a resource tree: discovery, transform, manifest rewrite,
// HTML rewrite and the optional reference audit. Every entry point (build, watch) goes
// through Builder.Run.
package build
