// Command spiral generates placeholder Debian packages, one from flags or a
// batch from a YAML manifest.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/v2bv/spiral/deb"
	"github.com/v2bv/spiral/manifest"
)

const (
	defaultMaintainer  = "Spiral Admin <admin@spiral.v2bv.net>"
	defaultDescription = "Spiral placeholder package"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spiral",
		Short: "Generate placeholder Debian packages",
		Long: `Spiral builds syntactically valid .deb archives whose payload is empty
or synthetic. It is meant for dependency-graph experiments, repository
scaffolding and build-pipeline fixtures where building real packages is
overkill.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.AddCommand(newGenerateCmd())

	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	var (
		name         string
		version      string
		archName     string
		maintainer   string
		description  string
		depends      []string
		compression  string
		output       string
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one package from flags, or a batch from a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := parseCompression(compression)
			if err != nil {
				return err
			}

			if manifestPath != "" {
				return generateBatch(manifestPath, output, comp)
			}

			if name == "" || version == "" {
				return fmt.Errorf("--name and --package-version are required without --manifest")
			}
			arch, err := deb.ParseArchitecture(archName)
			if err != nil {
				return err
			}

			pkg := &deb.Package{
				Metadata: deb.Metadata{
					Package:      name,
					Version:      version,
					Architecture: arch,
					Maintainer:   maintainer,
					Description:  description,
					Depends:      depends,
				},
				Compression: comp,
			}
			out := output
			if out == "" {
				out = pkg.StandardFilename()
			}
			return writePackage(pkg, out)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the package")
	cmd.Flags().StringVarP(&version, "package-version", "p", "", "Version of the package")
	cmd.Flags().StringVar(&archName, "arch", "all", "Target architecture")
	cmd.Flags().StringVar(&maintainer, "maintainer", defaultMaintainer, "Maintainer of the package")
	cmd.Flags().StringVar(&description, "description", defaultDescription, "Description of the package")
	cmd.Flags().StringSliceVarP(&depends, "depend", "d", nil, "Dependencies of the package")
	cmd.Flags().StringVar(&compression, "compression", "gzip", "Member compression (gzip or xz)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (single package) or directory (manifest)")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest of packages to generate")

	return cmd
}

func parseCompression(s string) (deb.Compression, error) {
	switch s {
	case "", "gzip", "gz":
		return deb.Gzip, nil
	case "xz":
		return deb.Xz, nil
	}
	return 0, fmt.Errorf("unknown compression %q (want gzip or xz)", s)
}

func generateBatch(manifestPath, outDir string, comp deb.Compression) error {
	pkgs, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	logrus.Debugf("Loaded %d package definitions from %s", len(pkgs), manifestPath)

	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	for _, pkg := range pkgs {
		pkg.Compression = comp
		if err := writePackage(pkg, filepath.Join(outDir, pkg.StandardFilename())); err != nil {
			return err
		}
	}
	return nil
}

func writePackage(pkg *deb.Package, path string) error {
	body, err := pkg.Build()
	if err != nil {
		return fmt.Errorf("building %s: %w", pkg.Metadata.Package, err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return err
	}
	logrus.Infof("Wrote %s (%d bytes)", path, len(body))
	return nil
}
