// Package deb provides a pure Go library for generating Debian binary packages.
//
// # Design Philosophy
//
// The package operates entirely in-memory: a Package value describes the control
// metadata and the logical file tree, and Build assembles the complete .deb byte
// stream without temporary files or external tools like 'dpkg-deb'. Packages do
// not need real payload content; a Package with no files still produces a valid
// archive, which makes the library suitable for dependency-graph experiments,
// repository scaffolding and build-pipeline fixtures.
//
// # Determinism
//
// Given the same Package value, Build always returns byte-identical output.
// Every archive timestamp comes from the Package's fixed BuildTime (never the
// wall clock), inner members are compressed at a fixed level, and all ordering
// decisions (control fields, md5sums lines, archive members) follow explicit
// tables rather than map iteration.
//
// # Features
//
//   - Create .deb archives from scratch, with or without payload files.
//   - Full control metadata: mandatory fields, relationship fields in canonical
//     order, multi-line descriptions with the required continuation indentation.
//   - md5sums manifest generated in file-entry order.
//   - Optional conffiles and maintainer scripts in the control archive.
//   - Gzip (default) or xz member compression.
package deb
