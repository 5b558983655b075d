// Package manifest loads YAML package definitions for batch generation.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/v2bv/spiral/deb"
)

// Load reads a YAML manifest file and returns the package definitions it
// declares. See Parse for the expected document shape.
func Load(path string) ([]*deb.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML manifest of the form:
//
//	packages:
//	  - name: hello-stub
//	    version: 1.0-1
//	    architecture: all
//	    maintainer: Someone <s@example.com>
//	    description: Placeholder for hello
//	    depends: [libc6]
//	    files:
//	      - path: usr/bin/hello
//	        mode: 0755
//	        content: "#!/bin/sh\nexit 0\n"
//
// Architecture defaults to "all" and accepts the same aliases as
// deb.ParseArchitecture. File mode defaults to 0644. Descriptor-level
// validation is left to deb.Package.Build.
func Parse(data []byte) ([]*deb.Package, error) {
	// Internal DTOs for YAML deserialization
	type yamlFile struct {
		Path    string `yaml:"path"`
		Mode    int64  `yaml:"mode"`
		Content string `yaml:"content"`
		Conf    bool   `yaml:"conf"`
	}
	type yamlPackage struct {
		Name         string     `yaml:"name"`
		Version      string     `yaml:"version"`
		Architecture string     `yaml:"architecture"`
		Maintainer   string     `yaml:"maintainer"`
		Description  string     `yaml:"description"`
		Section      string     `yaml:"section"`
		Priority     string     `yaml:"priority"`
		Homepage     string     `yaml:"homepage"`
		Depends      []string   `yaml:"depends"`
		PreDepends   []string   `yaml:"pre_depends"`
		Recommends   []string   `yaml:"recommends"`
		Suggests     []string   `yaml:"suggests"`
		Enhances     []string   `yaml:"enhances"`
		Conflicts    []string   `yaml:"conflicts"`
		Breaks       []string   `yaml:"breaks"`
		Replaces     []string   `yaml:"replaces"`
		Provides     []string   `yaml:"provides"`
		Files        []yamlFile `yaml:"files"`
	}
	type yamlManifest struct {
		Packages []yamlPackage `yaml:"packages"`
	}

	var dto yamlManifest
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	// Map DTOs to business objects
	pkgs := make([]*deb.Package, 0, len(dto.Packages))
	for _, yp := range dto.Packages {
		arch := deb.ArchAll
		if yp.Architecture != "" {
			var err error
			arch, err = deb.ParseArchitecture(yp.Architecture)
			if err != nil {
				return nil, fmt.Errorf("package %q: %w", yp.Name, err)
			}
		}

		pkg := &deb.Package{
			Metadata: deb.Metadata{
				Package:      yp.Name,
				Version:      yp.Version,
				Architecture: arch,
				Maintainer:   yp.Maintainer,
				Description:  yp.Description,
				Section:      yp.Section,
				Priority:     yp.Priority,
				Homepage:     yp.Homepage,
				Depends:      yp.Depends,
				PreDepends:   yp.PreDepends,
				Recommends:   yp.Recommends,
				Suggests:     yp.Suggests,
				Enhances:     yp.Enhances,
				Conflicts:    yp.Conflicts,
				Breaks:       yp.Breaks,
				Replaces:     yp.Replaces,
				Provides:     yp.Provides,
			},
		}
		for _, yf := range yp.Files {
			mode := yf.Mode
			if mode == 0 {
				mode = 0644
			}
			pkg.Files = append(pkg.Files, deb.File{
				Path:   yf.Path,
				Mode:   mode,
				Body:   yf.Content,
				IsConf: yf.Conf,
			})
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}
