package deb

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldArchitecture ControlField = "Architecture"
	FieldMaintainer   ControlField = "Maintainer"
	FieldSection      ControlField = "Section"
	FieldPriority     ControlField = "Priority"
	FieldHomepage     ControlField = "Homepage"
	FieldDepends      ControlField = "Depends"
	FieldPreDepends   ControlField = "Pre-Depends"
	FieldRecommends   ControlField = "Recommends"
	FieldSuggests     ControlField = "Suggests"
	FieldEnhances     ControlField = "Enhances"
	FieldConflicts    ControlField = "Conflicts"
	FieldBreaks       ControlField = "Breaks"
	FieldReplaces     ControlField = "Replaces"
	FieldProvides     ControlField = "Provides"
	FieldDescription  ControlField = "Description"
)

// relationFields is the canonical emission order of the relationship fields in
// a generated control file. Rendering walks this table; the order is part of
// the observable output and must not depend on map iteration.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html
var relationFields = []ControlField{
	FieldDepends,
	FieldPreDepends,
	FieldRecommends,
	FieldSuggests,
	FieldEnhances,
	FieldConflicts,
	FieldBreaks,
	FieldReplaces,
	FieldProvides,
}

// ControlFile represents a standard file found in the control archive.
type ControlFile string

const (
	FileControl   ControlFile = "control"
	FileMd5sums   ControlFile = "md5sums"
	FileConffiles ControlFile = "conffiles"
	FilePreinst   ControlFile = "preinst"
	FilePostinst  ControlFile = "postinst"
	FilePrerm     ControlFile = "prerm"
	FilePostrm    ControlFile = "postrm"
	FileConfig    ControlFile = "config"
)

// PackageFile represents a standard member of the .deb archive (ar format).
// The compressed members carry a suffix chosen by the Compression setting.
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTar   PackageFile = "control.tar"
	PkgDataTar      PackageFile = "data.tar"
)

// debianBinaryVersion is the content of the debian-binary member, naming the
// binary package format revision.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
const debianBinaryVersion = "2.0\n"

// docDir is where an empty package plants its documentation directory so that
// the data archive always carries a well-formed tree.
const docDir = "usr/share/doc"
