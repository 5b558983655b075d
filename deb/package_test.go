package deb

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

func testPackage() *Package {
	return &Package{
		Metadata: Metadata{
			Package:      "spiral-empty",
			Version:      "1.0",
			Architecture: ArchAll,
			Maintainer:   "Test <t@example.com>",
			Description:  "Empty test package",
		},
	}
}

type arMember struct {
	name string
	body []byte
}

func readArMembers(t *testing.T, data []byte) []arMember {
	t.Helper()
	r := ar.NewReader(bytes.NewReader(data))
	var members []arMember
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading ar header: %v", err)
		}
		body := make([]byte, header.Size)
		if _, err := io.ReadFull(r, body); err != nil {
			t.Fatalf("reading ar member %s: %v", header.Name, err)
		}
		members = append(members, arMember{name: header.Name, body: body})
	}
	return members
}

type tarEntry struct {
	name string
	mode int64
	body []byte
}

func readTarGz(t *testing.T, data []byte) []tarEntry {
	t.Helper()
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("opening gzip stream: %v", err)
	}
	defer gzr.Close()
	return readTar(t, gzr)
}

func readTar(t *testing.T, r io.Reader) []tarEntry {
	t.Helper()
	tr := tar.NewReader(r)
	var entries []tarEntry
	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading tar header: %v", err)
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			t.Fatalf("reading tar entry %s: %v", th.Name, err)
		}
		entries = append(entries, tarEntry{name: th.Name, mode: th.Mode, body: buf.Bytes()})
	}
	return entries
}

func TestRenderControlMinimal(t *testing.T) {
	p := testPackage()
	want := "Package: spiral-empty\n" +
		"Version: 1.0\n" +
		"Architecture: all\n" +
		"Maintainer: Test <t@example.com>\n" +
		"Description: Empty test package\n"
	if got := p.Metadata.renderControl(); got != want {
		t.Errorf("control file mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestRenderControlRelations(t *testing.T) {
	m := Metadata{
		Package:      "test-pkg",
		Version:      "1.2.3-1",
		Architecture: ArchAMD64,
		Maintainer:   "Maintainer <m@example.com>",
		Description:  "Short description",
		Depends:      []string{"libc6 (>= 2.31)", "git"},
		Conflicts:    []string{"test-pkg-legacy"},
	}

	out := m.renderControl()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	want := []string{
		"Package: test-pkg",
		"Version: 1.2.3-1",
		"Architecture: amd64",
		"Maintainer: Maintainer <m@example.com>",
		"Depends: libc6 (>= 2.31), git",
		"Conflicts: test-pkg-legacy",
		"Description: Short description",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), out)
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("line %d: expected %q, got %q", i, line, lines[i])
		}
	}

	// Empty relationship fields must not appear at all.
	for _, field := range []ControlField{FieldRecommends, FieldSuggests, FieldBreaks, FieldProvides} {
		if strings.Contains(out, string(field)+":") {
			t.Errorf("empty field %s rendered: %q", field, out)
		}
	}
}

func TestRenderControlExtendedDescription(t *testing.T) {
	m := Metadata{
		Package:      "test-pkg",
		Version:      "1.0",
		Architecture: ArchAll,
		Maintainer:   "M <m@example.com>",
		Description:  "Synopsis\nFirst body line\n\nAfter the blank line",
	}

	out := m.renderControl()
	want := "Description: Synopsis\n" +
		" First body line\n" +
		" .\n" +
		" After the blank line\n"
	if !strings.HasSuffix(out, want) {
		t.Errorf("description rendering mismatch:\nwant suffix %q\ngot %q", want, out)
	}
}

func TestRenderMd5sumsOrder(t *testing.T) {
	// Insertion order is preserved, not sorted.
	sums := []checksumEntry{
		{path: "usr/bin/b", sum: "hash_b"},
		{path: "usr/bin/a", sum: "hash_a"},
	}

	out := renderMd5sums(sums)
	expected := "hash_b  usr/bin/b\nhash_a  usr/bin/a\n"
	if out != expected {
		t.Errorf("expected:\n%q\ngot:\n%q", expected, out)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(p *Package)
		wantField ControlField
		wantPath  string
	}{
		{
			name:      "empty name",
			mutate:    func(p *Package) { p.Metadata.Package = "" },
			wantField: FieldPackage,
		},
		{
			name:      "empty version",
			mutate:    func(p *Package) { p.Metadata.Version = "" },
			wantField: FieldVersion,
		},
		{
			name:      "name with slash",
			mutate:    func(p *Package) { p.Metadata.Package = "a/b" },
			wantField: FieldPackage,
		},
		{
			name:      "version with space",
			mutate:    func(p *Package) { p.Metadata.Version = "1 .0" },
			wantField: FieldVersion,
		},
		{
			name:      "unknown architecture",
			mutate:    func(p *Package) { p.Metadata.Architecture = "x86_64" },
			wantField: FieldArchitecture,
		},
		{
			name:      "maintainer with newline",
			mutate:    func(p *Package) { p.Metadata.Maintainer = "Evil\nDepends: doom" },
			wantField: FieldMaintainer,
		},
		{
			name:      "relation with newline",
			mutate:    func(p *Package) { p.Metadata.Depends = []string{"ok", "bad\npkg"} },
			wantField: FieldDepends,
		},
		{
			name:     "traversal path",
			mutate:   func(p *Package) { p.Files = []File{{Path: "../escape", Mode: 0644}} },
			wantPath: "../escape",
		},
		{
			name:     "absolute path",
			mutate:   func(p *Package) { p.Files = []File{{Path: "/etc/passwd", Mode: 0644}} },
			wantPath: "/etc/passwd",
		},
		{
			name:     "unnormalized path",
			mutate:   func(p *Package) { p.Files = []File{{Path: "./usr/bin/x", Mode: 0644}} },
			wantPath: "./usr/bin/x",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPackage()
			tc.mutate(p)

			out, err := p.Build()
			if err == nil {
				t.Fatal("expected validation error, got none")
			}
			if out != nil {
				t.Error("expected no output bytes on validation failure")
			}

			if tc.wantField != "" {
				var de *DescriptorError
				if !errors.As(err, &de) {
					t.Fatalf("expected DescriptorError, got %T: %v", err, err)
				}
				if de.Field != tc.wantField {
					t.Errorf("expected field %s, got %s", tc.wantField, de.Field)
				}
			}
			if tc.wantPath != "" {
				var ee *EntryError
				if !errors.As(err, &ee) {
					t.Fatalf("expected EntryError, got %T: %v", err, err)
				}
				if ee.Path != tc.wantPath {
					t.Errorf("expected path %q, got %q", tc.wantPath, ee.Path)
				}
			}
		})
	}
}

func TestBuildEmptyPackage(t *testing.T) {
	p := testPackage()
	body, err := p.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	members := readArMembers(t, body)
	if len(members) != 3 {
		t.Fatalf("expected 3 ar members, got %d", len(members))
	}
	wantNames := []string{"debian-binary", "control.tar.gz", "data.tar.gz"}
	for i, want := range wantNames {
		if members[i].name != want {
			t.Errorf("member %d: expected %q, got %q", i, want, members[i].name)
		}
	}
	if string(members[0].body) != "2.0\n" {
		t.Errorf("debian-binary content: expected %q, got %q", "2.0\n", members[0].body)
	}

	control := readTarGz(t, members[1].body)
	if len(control) != 2 {
		t.Fatalf("expected exactly 2 control entries, got %d", len(control))
	}
	if control[0].name != "./control" || control[1].name != "./md5sums" {
		t.Errorf("control archive order: got %q, %q", control[0].name, control[1].name)
	}

	wantControl := "Package: spiral-empty\n" +
		"Version: 1.0\n" +
		"Architecture: all\n" +
		"Maintainer: Test <t@example.com>\n" +
		"Description: Empty test package\n"
	if string(control[0].body) != wantControl {
		t.Errorf("control content mismatch:\nwant %q\ngot  %q", wantControl, control[0].body)
	}
	if len(control[1].body) != 0 {
		t.Errorf("expected empty md5sums, got %q", control[1].body)
	}

	// An empty package still carries its doc directory tree.
	data := readTarGz(t, members[2].body)
	if len(data) == 0 {
		t.Fatal("expected non-empty data archive")
	}
	var found bool
	for _, e := range data {
		if e.name == "./usr/share/doc/spiral-empty/" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing doc directory in data archive: %+v", data)
	}
}

func TestBuildDeterminism(t *testing.T) {
	build := func() []byte {
		p := testPackage()
		p.Files = []File{
			{Path: "usr/bin/hello", Mode: 0755, Body: "#!/bin/sh\necho hello\n"},
			{Path: "etc/hello.conf", Mode: 0644, Body: "x=1\n", IsConf: true},
		}
		body, err := p.Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return body
	}

	first := build()
	second := build()
	if !bytes.Equal(first, second) {
		t.Error("two builds of the same package are not byte-identical")
	}
}

func TestBuildRoundTrip(t *testing.T) {
	p := testPackage()
	p.Files = []File{
		{Path: "usr/bin/hello", Mode: 0755, Body: "#!/bin/sh\necho hello\n"},
		{Path: "usr/share/hello/empty", Mode: 0644, Body: ""},
		{Path: "etc/hello.conf", Mode: 0644, Body: "x=1\n", IsConf: true},
	}
	p.Scripts.PostInst = "#!/bin/sh\nexit 0\n"

	body, err := p.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	members := readArMembers(t, body)
	control := readTarGz(t, members[1].body)

	wantOrder := []string{"./control", "./md5sums", "./conffiles", "./postinst"}
	if len(control) != len(wantOrder) {
		t.Fatalf("expected %d control entries, got %d", len(wantOrder), len(control))
	}
	for i, want := range wantOrder {
		if control[i].name != want {
			t.Errorf("control entry %d: expected %q, got %q", i, want, control[i].name)
		}
	}
	if got := string(control[2].body); got != "/etc/hello.conf\n" {
		t.Errorf("conffiles content: %q", got)
	}

	// md5sums lines are in file order and every digest matches a recomputation
	// over the entry body. The zero-length file records the empty-input digest.
	lines := strings.Split(strings.TrimSuffix(string(control[1].body), "\n"), "\n")
	if len(lines) != len(p.Files) {
		t.Fatalf("expected %d md5sums lines, got %d", len(p.Files), len(lines))
	}
	for i, file := range p.Files {
		hash := md5.Sum([]byte(file.Body))
		want := hex.EncodeToString(hash[:]) + "  " + file.Path
		if lines[i] != want {
			t.Errorf("md5sums line %d: expected %q, got %q", i, want, lines[i])
		}
	}
	if !strings.HasPrefix(lines[1], "d41d8cd98f00b204e9800998ecf8427e  ") {
		t.Errorf("zero-length file digest: %q", lines[1])
	}

	// Data archive holds directory chains plus the files with their content.
	data := readTarGz(t, members[2].body)
	byName := make(map[string]tarEntry)
	for _, e := range data {
		byName[e.name] = e
	}
	for _, dir := range []string{"./", "./usr/", "./usr/bin/", "./etc/"} {
		if _, ok := byName[dir]; !ok {
			t.Errorf("missing directory entry %q", dir)
		}
	}
	hello, ok := byName["./usr/bin/hello"]
	if !ok {
		t.Fatal("missing ./usr/bin/hello in data archive")
	}
	if string(hello.body) != "#!/bin/sh\necho hello\n" {
		t.Errorf("unexpected body: %q", hello.body)
	}
	if hello.mode != 0755 {
		t.Errorf("expected mode 0755, got %o", hello.mode)
	}
}

func TestBuildXz(t *testing.T) {
	p := testPackage()
	p.Compression = Xz

	body, err := p.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	members := readArMembers(t, body)
	if members[1].name != "control.tar.xz" || members[2].name != "data.tar.xz" {
		t.Fatalf("unexpected member names: %q, %q", members[1].name, members[2].name)
	}

	xzr, err := xz.NewReader(bytes.NewReader(members[1].body))
	if err != nil {
		t.Fatalf("opening xz stream: %v", err)
	}
	control := readTar(t, xzr)
	if len(control) != 2 || control[0].name != "./control" {
		t.Errorf("unexpected control entries: %+v", control)
	}
}

func TestStandardFilename(t *testing.T) {
	p := &Package{
		Metadata: Metadata{
			Package:      "foo",
			Version:      "1.0.0",
			Architecture: ArchARM64,
		},
	}
	if got := p.StandardFilename(); got != "foo_1.0.0_arm64.deb" {
		t.Errorf("expected foo_1.0.0_arm64.deb, got %s", got)
	}
}

func TestIntegrationDebGeneration(t *testing.T) {
	// Ensure dpkg-deb is available
	if _, err := exec.LookPath("dpkg-deb"); err != nil {
		t.Skip("dpkg-deb not found, skipping integration test")
	}

	tmpDir := t.TempDir()
	debPath := filepath.Join(tmpDir, "test.deb")

	pkg := &Package{
		Metadata: Metadata{
			Package:      "test-integration",
			Version:      "1.0.0",
			Architecture: ArchAMD64,
			Maintainer:   "Test User <test@example.com>",
			Description:  "Test integration package",
			Depends:      []string{"libc6"},
		},
		Files: []File{
			{Path: "usr/bin/hello", Mode: 0755, Body: "#!/bin/sh\necho hello\n"},
		},
	}

	f, err := os.Create(debPath)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if _, err := pkg.WriteTo(f); err != nil {
		f.Close()
		t.Fatalf("WriteTo failed: %v", err)
	}
	f.Close()

	// Validate metadata
	out, err := exec.Command("dpkg-deb", "--info", debPath).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --info failed: %v\n%s", err, out)
	}
	info := string(out)
	if !strings.Contains(info, "Package: test-integration") {
		t.Errorf("missing Package field in info")
	}
	if !strings.Contains(info, "Depends: libc6") {
		t.Errorf("missing Depends field in info")
	}

	// Validate contents
	out, err = exec.Command("dpkg-deb", "--contents", debPath).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --contents failed: %v\n%s", err, out)
	}
	contents := string(out)
	if !strings.Contains(contents, "./usr/bin/hello") {
		t.Errorf("missing file in contents: %s", contents)
	}
}
