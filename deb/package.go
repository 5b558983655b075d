package deb

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blakesmith/ar"
)

// Package represents the complete definition of a Debian binary package.
// It separates metadata (Control), hooks (Scripts), and payload (Files).
// The zero values of BuildTime and Compression give epoch timestamps and
// gzip members, so a Package built twice is byte-identical.
type Package struct {
	Metadata Metadata
	Scripts  Scripts
	Files    []File

	// BuildTime is the timestamp stamped on every archive header. The zero
	// value means the Unix epoch. It is never taken from the wall clock.
	BuildTime time.Time

	// Compression selects the encoding of the control and data members.
	Compression Compression
}

// Metadata maps directly to the fields in the Debian 'control' file.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type Metadata struct {
	// Package is the name of the package. It must be non-empty and free of
	// characters that would corrupt archive member names or control lines
	// (slashes, spaces, line breaks).
	Package string

	// Version is the version number of the package.
	// The format is: [epoch:]upstream_version[-debian_revision].
	Version string

	// Architecture is the hardware architecture the package targets.
	// Use ArchAll for architecture-independent packages.
	Architecture Architecture

	// Maintainer is the name and email address of the person responsible for
	// this package. Format: "Name <email@address.com>".
	Maintainer string

	// Description contains the package synopsis and extended description.
	// The first line is the synopsis; subsequent lines are the extended body,
	// indented on output per the control-file folding rules.
	Description string

	// Section classifies the package into a category (e.g., "utils", "devel").
	Section string

	// Priority represents the importance of this package (e.g., "optional").
	Priority string

	// Homepage is the URL of the upstream project's home page.
	Homepage string

	// Relationship fields. Each element is a package name optionally followed
	// by a version constraint, e.g. "libc6 (>= 2.31)". Empty lists emit no
	// line at all in the generated control file.
	//
	// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html
	Depends    []string
	PreDepends []string
	Recommends []string
	Suggests   []string
	Enhances   []string
	Conflicts  []string
	Breaks     []string
	Replaces   []string
	Provides   []string
}

// relation returns the value list for one relationship field.
func (m *Metadata) relation(field ControlField) []string {
	switch field {
	case FieldDepends:
		return m.Depends
	case FieldPreDepends:
		return m.PreDepends
	case FieldRecommends:
		return m.Recommends
	case FieldSuggests:
		return m.Suggests
	case FieldEnhances:
		return m.Enhances
	case FieldConflicts:
		return m.Conflicts
	case FieldBreaks:
		return m.Breaks
	case FieldReplaces:
		return m.Replaces
	case FieldProvides:
		return m.Provides
	}
	return nil
}

// Scripts holds the executable maintainer scripts, executed by dpkg at
// different stages of the package lifecycle. All are optional.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-maintainerscripts.html
type Scripts struct {
	PreInst  string
	PostInst string
	PreRm    string
	PostRm   string
	Config   string
}

// File represents a single file resource to be installed on the target system.
// Files are owned by root:root in the generated archive.
type File struct {
	// Path is the install path relative to the filesystem root, without a
	// leading slash or "./" (e.g. "usr/bin/app"). Absolute paths and paths
	// containing parent-directory segments are rejected at build time.
	Path string

	// Mode is the file permission mode (e.g., 0755 for executables).
	Mode int64

	// Body is the file content. It may be empty; empty files still get a full
	// archive header and an md5sums line.
	Body string

	// IsConf, if true, marks this file as a configuration file in the
	// 'conffiles' list. dpkg will prompt before overwriting it on upgrades.
	IsConf bool
}

// checksumEntry pairs an install path with the md5 digest of its content.
// The manifest preserves file-entry order, which is observable in the
// generated md5sums member.
type checksumEntry struct {
	path string
	sum  string
}

// StandardFilename returns the canonical filename for the package.
// Format: {Package}_{Version}_{Architecture}.deb
//
// Reference: https://www.debian.org/doc/manuals/debian-faq/ch-pkg_basics.en.html#s-pkgname
func (p *Package) StandardFilename() string {
	return fmt.Sprintf("%s_%s_%s.deb", p.Metadata.Package, p.Metadata.Version, p.Metadata.Architecture)
}

// modTime returns the fixed timestamp stamped on every archive header.
func (p *Package) modTime() time.Time {
	if p.BuildTime.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return p.BuildTime
}

// unsafeFieldText reports why s cannot appear in a single control-file line,
// or "" if it is safe.
func unsafeFieldText(s string) string {
	if !utf8.ValidString(s) {
		return "not valid UTF-8"
	}
	if strings.ContainsAny(s, "\r\n") {
		return "contains a line break"
	}
	return ""
}

// unsafeEntryPath reports why a file entry path cannot be archived, or "" if
// it is safe. Paths must be relative, normalized, and free of parent-directory
// segments.
func unsafeEntryPath(p string) string {
	if p == "" {
		return "empty path"
	}
	if strings.HasPrefix(p, "/") {
		return "absolute path"
	}
	if path.Clean(p) != p {
		return "path is not normalized"
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "parent directory traversal"
	}
	return ""
}

// Validate checks the control metadata and every file entry. Build runs it
// before producing any archive bytes, so a failed build never exposes partial
// output.
func (p *Package) Validate() error {
	m := &p.Metadata

	required := []struct {
		field ControlField
		value string
	}{
		{FieldPackage, m.Package},
		{FieldVersion, m.Version},
		{FieldArchitecture, string(m.Architecture)},
		{FieldMaintainer, m.Maintainer},
		{FieldDescription, m.Description},
	}
	for _, f := range required {
		if f.value == "" {
			return &DescriptorError{Field: f.field, Reason: "required field is empty"}
		}
	}

	singleLine := []struct {
		field ControlField
		value string
	}{
		{FieldPackage, m.Package},
		{FieldVersion, m.Version},
		{FieldMaintainer, m.Maintainer},
		{FieldSection, m.Section},
		{FieldPriority, m.Priority},
		{FieldHomepage, m.Homepage},
	}
	for _, f := range singleLine {
		if reason := unsafeFieldText(f.value); reason != "" {
			return &DescriptorError{Field: f.field, Reason: reason}
		}
	}

	if strings.ContainsAny(m.Package, " /") {
		return &DescriptorError{Field: FieldPackage, Reason: "name contains archive delimiter characters"}
	}
	if strings.ContainsAny(m.Version, " /") {
		return &DescriptorError{Field: FieldVersion, Reason: "version contains archive delimiter characters"}
	}
	if !m.Architecture.Valid() {
		return &DescriptorError{Field: FieldArchitecture, Reason: fmt.Sprintf("unrecognized architecture %q", m.Architecture)}
	}
	if !utf8.ValidString(m.Description) {
		return &DescriptorError{Field: FieldDescription, Reason: "not valid UTF-8"}
	}
	if strings.Contains(m.Description, "\r") {
		return &DescriptorError{Field: FieldDescription, Reason: "contains a carriage return"}
	}

	for _, rel := range relationFields {
		for _, item := range m.relation(rel) {
			if reason := unsafeFieldText(item); reason != "" {
				return &DescriptorError{Field: rel, Reason: fmt.Sprintf("relation %q: %s", item, reason)}
			}
		}
	}

	for _, f := range p.Files {
		if reason := unsafeEntryPath(f.Path); reason != "" {
			return &EntryError{Path: f.Path, Reason: reason}
		}
	}
	return nil
}

// Build assembles the complete .deb archive in memory and returns its bytes.
// Validation happens first; once serialization begins any failure aborts the
// whole build, so the caller either gets a finished archive or an error.
func (p *Package) Build() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// 1. Build Data Archive (data.tar.*)
	// Built first so the md5 manifest is available to the control archive.
	dataBuf := new(bytes.Buffer)
	sums, err := p.buildDataArchive(dataBuf)
	if err != nil {
		return nil, fmt.Errorf("building data archive: %w", err)
	}

	// 2. Build Control Archive (control.tar.*)
	controlBuf := new(bytes.Buffer)
	if err := p.buildControlArchive(controlBuf, sums); err != nil {
		return nil, fmt.Errorf("building control archive: %w", err)
	}

	// 3. Assemble the outer AR container. Member order is mandated by dpkg:
	// debian-binary, then control, then data.
	//
	// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
	out := new(bytes.Buffer)
	arW := ar.NewWriter(out)
	if err := arW.WriteGlobalHeader(); err != nil {
		return nil, fmt.Errorf("writing ar global header: %w", err)
	}

	ext := p.Compression.extension()
	modTime := p.modTime()
	if err := addArMember(arW, string(PkgDebianBinary), []byte(debianBinaryVersion), modTime); err != nil {
		return nil, fmt.Errorf("writing %s: %w", PkgDebianBinary, err)
	}
	if err := addArMember(arW, string(PkgControlTar)+ext, controlBuf.Bytes(), modTime); err != nil {
		return nil, fmt.Errorf("writing %s%s: %w", PkgControlTar, ext, err)
	}
	if err := addArMember(arW, string(PkgDataTar)+ext, dataBuf.Bytes(), modTime); err != nil {
		return nil, fmt.Errorf("writing %s%s: %w", PkgDataTar, ext, err)
	}

	return out.Bytes(), nil
}

// WriteTo generates the .deb package and writes it to the provided io.Writer.
// It returns the total number of bytes written and any error encountered.
// This satisfies the io.WriterTo interface. The archive is fully assembled
// before the first byte reaches w.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	body, err := p.Build()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(body)
	return int64(n), err
}

// buildDataArchive creates the compressed data tar containing the package
// files, preceded by directory entries for every ancestor. It returns the md5
// manifest entries in file order. A package with no files still carries its
// documentation directory so the data archive is never an empty tree.
func (p *Package) buildDataArchive(w io.Writer) ([]checksumEntry, error) {
	zw, err := p.Compression.newWriter(w)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(zw)

	modTime := p.modTime()
	seen := make(map[string]bool)

	writeDir := func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		header := &tar.Header{
			Typeflag: tar.TypeDir,
			Name:     name,
			Mode:     0755,
			Uname:    "root",
			Gname:    "root",
			ModTime:  modTime,
		}
		return tw.WriteHeader(header)
	}

	// writeDirChain emits "./", "./usr/", "./usr/share/", ... for dir.
	writeDirChain := func(dir string) error {
		if err := writeDir("./"); err != nil {
			return err
		}
		if dir == "." || dir == "" {
			return nil
		}
		segments := strings.Split(dir, "/")
		for i := 1; i <= len(segments); i++ {
			if err := writeDir("./" + strings.Join(segments[:i], "/") + "/"); err != nil {
				return err
			}
		}
		return nil
	}

	if len(p.Files) == 0 {
		if err := writeDirChain(path.Join(docDir, p.Metadata.Package)); err != nil {
			return nil, err
		}
	}

	sums := make([]checksumEntry, 0, len(p.Files))
	for _, file := range p.Files {
		if err := writeDirChain(path.Dir(file.Path)); err != nil {
			return nil, err
		}

		content := []byte(file.Body)
		hash := md5.Sum(content)
		sums = append(sums, checksumEntry{path: file.Path, sum: hex.EncodeToString(hash[:])})

		header := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     "./" + file.Path,
			Size:     int64(len(content)),
			Mode:     file.Mode,
			Uname:    "root",
			Gname:    "root",
			ModTime:  modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tw.Write(content); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	return sums, zw.Close()
}

// buildControlArchive creates the compressed control tar. The 'control' file
// is always first and 'md5sums' second; conffiles and maintainer scripts
// follow only when present.
func (p *Package) buildControlArchive(w io.Writer, sums []checksumEntry) error {
	zw, err := p.Compression.newWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	modTime := p.modTime()
	writeEntry := func(name ControlFile, content []byte, mode int64) error {
		header := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     "./" + string(name),
			Size:     int64(len(content)),
			Mode:     mode,
			Uname:    "root",
			Gname:    "root",
			ModTime:  modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		_, err := tw.Write(content)
		return err
	}

	// 1. control
	if err := writeEntry(FileControl, []byte(p.Metadata.renderControl()), 0644); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}

	// 2. md5sums
	if err := writeEntry(FileMd5sums, []byte(renderMd5sums(sums)), 0644); err != nil {
		return fmt.Errorf("writing md5sums: %w", err)
	}

	// 3. conffiles, listed by absolute install path
	var conffiles []string
	for _, f := range p.Files {
		if f.IsConf {
			conffiles = append(conffiles, "/"+f.Path)
		}
	}
	if len(conffiles) > 0 {
		content := strings.Join(conffiles, "\n") + "\n"
		if err := writeEntry(FileConffiles, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing conffiles: %w", err)
		}
	}

	// 4. Maintainer scripts, in a fixed order
	scripts := []struct {
		name ControlFile
		body string
	}{
		{FilePreinst, p.Scripts.PreInst},
		{FilePostinst, p.Scripts.PostInst},
		{FilePrerm, p.Scripts.PreRm},
		{FilePostrm, p.Scripts.PostRm},
		{FileConfig, p.Scripts.Config},
	}
	for _, s := range scripts {
		if s.body != "" {
			if err := writeEntry(s.name, []byte(s.body), 0755); err != nil {
				return fmt.Errorf("writing %s: %w", s.name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

// renderControl renders the control file text. Field order is fixed: the
// mandatory identity fields, the optional classification fields, the
// relationship fields in canonical order, and Description last. Empty fields
// emit no line at all.
func (m *Metadata) renderControl() string {
	var b strings.Builder

	writeField := func(field ControlField, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", field, value)
		}
	}

	writeField(FieldPackage, m.Package)
	writeField(FieldVersion, m.Version)
	writeField(FieldArchitecture, string(m.Architecture))
	writeField(FieldMaintainer, m.Maintainer)
	writeField(FieldSection, m.Section)
	writeField(FieldPriority, m.Priority)
	writeField(FieldHomepage, m.Homepage)

	for _, rel := range relationFields {
		if items := m.relation(rel); len(items) > 0 {
			writeField(rel, strings.Join(items, ", "))
		}
	}

	// Description: synopsis on the field line, extended body indented by one
	// space, blank body lines rendered as a lone period.
	if m.Description != "" {
		lines := strings.Split(m.Description, "\n")
		writeField(FieldDescription, lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) == "" {
				fmt.Fprintf(&b, " .\n")
			} else if strings.HasPrefix(line, " ") {
				fmt.Fprintf(&b, "%s\n", line)
			} else {
				fmt.Fprintf(&b, " %s\n", line)
			}
		}
	}

	return b.String()
}

// renderMd5sums renders the digest manifest, one line per file entry in the
// order the entries were supplied. dpkg verifies installed files against
// these digests.
func renderMd5sums(sums []checksumEntry) string {
	var b strings.Builder
	for _, s := range sums {
		fmt.Fprintf(&b, "%s  %s\n", s.sum, s.path)
	}
	return b.String()
}
