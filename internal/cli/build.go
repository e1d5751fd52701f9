package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mothman/mothman/internal/depiction"
	"github.com/mothman/mothman/internal/generator"
	"github.com/mothman/mothman/internal/generator/deb"
	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	root       string
	configPath string
	flags      models.RepositoryConfig
}

// NewBuildCmd creates the build command
func NewBuildCmd(log *logrus.Logger) *cobra.Command {
	var opts buildOptions
	defaults := models.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the Packages index and update Release",
		Long: `Scans the package directory and rewrites the Packages index in every
requested encoding, then records their checksums in the Release file at the
repository root. The Release file must already exist (see "mothman init").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadBuildConfig(cmd, &opts)
			if err != nil {
				return err
			}

			log.Info("Starting repository build...")
			log.Debugf("Configuration: %+v", *config)

			report, err := runBuild(cmd.Context(), log, config)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.root, "path", "p", ".", "Repository root")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file (default <path>/"+models.ConfigFileName+" if present)")

	cmd.Flags().StringVarP(&opts.flags.DebPath, "deb-path", "d", defaults.DebPath, "Package directory, relative to the repository root")
	cmd.Flags().StringVarP(&opts.flags.PackageType, "type", "t", defaults.PackageType, "Package file type to index (deb, udeb)")
	cmd.Flags().StringVarP(&opts.flags.Arch, "arch", "a", "", "Only index packages of this architecture (and 'all')")
	cmd.Flags().BoolVarP(&opts.flags.Multiversion, "multiversion", "m", false, "Index every version of a package, not only the latest")
	cmd.Flags().StringSliceVar(&opts.flags.Compress, "compress", defaults.Compress, "Index encodings to write (cat, gz, bz2, xz, zst)")
	cmd.Flags().BoolVar(&opts.flags.StampDate, "stamp-date", false, "Set the Release Date field")

	// Cydia/Sileo repositories
	cmd.Flags().StringVar(&opts.flags.Host, "host", "", "URL the repository is served at, used in depiction links")
	cmd.Flags().StringVar(&opts.flags.Template, "template", "", "Repository template (repo.me, Reposi3)")

	return cmd
}

// loadBuildConfig reads the configuration file, if any, and applies the
// flags the user set explicitly on top of it.
func loadBuildConfig(cmd *cobra.Command, opts *buildOptions) (*models.RepositoryConfig, error) {
	config := models.DefaultConfig()

	path := opts.configPath
	if path == "" {
		if candidate := filepath.Join(opts.root, models.ConfigFileName); utils.FileExists(candidate) {
			path = candidate
		}
	}
	if path != "" {
		loaded, err := models.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		config = *loaded
	}
	config.Root = opts.root

	flags := cmd.Flags()
	if flags.Changed("deb-path") {
		config.DebPath = opts.flags.DebPath
	}
	if flags.Changed("type") {
		config.PackageType = opts.flags.PackageType
	}
	if flags.Changed("arch") {
		config.Arch = opts.flags.Arch
	}
	if flags.Changed("multiversion") {
		config.Multiversion = opts.flags.Multiversion
	}
	if flags.Changed("compress") {
		config.Compress = opts.flags.Compress
	}
	if flags.Changed("stamp-date") {
		config.StampDate = opts.flags.StampDate
	}
	if flags.Changed("host") {
		config.Host = opts.flags.Host
	}
	if flags.Changed("template") {
		config.Template = opts.flags.Template
	}

	if err := validateConfig(&config, flags.Changed("deb-path")); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateConfig checks the settings that the generator does not know
// about. A template moves the package directory to the template's unless
// one was given explicitly.
func validateConfig(config *models.RepositoryConfig, explicitDebPath bool) error {
	if config.Template == "" {
		return nil
	}

	tmpl, err := depiction.LookupTemplate(config.Template)
	if err != nil {
		return &models.Error{Type: models.ErrConfig, Err: err}
	}
	if config.Host == "" {
		return &models.Error{
			Type: models.ErrConfig,
			Err:  fmt.Errorf("template %s needs --host for depiction links", tmpl.Name),
		}
	}
	if !explicitDebPath {
		config.DebPath = tmpl.DebPath
	}
	return nil
}

func runBuild(ctx context.Context, log *logrus.Logger, config *models.RepositoryConfig) (*generator.Report, error) {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, &models.Error{Type: models.ErrConfig, Path: config.Root, Err: err}
	}

	opts := []deb.Option{deb.WithLogger(log)}

	var tmpl depiction.Template
	if config.Template != "" {
		if tmpl, err = depiction.LookupTemplate(config.Template); err != nil {
			return nil, &models.Error{Type: models.ErrConfig, Err: err}
		}

		writer, err := depiction.NewWriter(root, config.Host, tmpl,
			depiction.WithLogger(log),
			depiction.WithExtras(config.Extras),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, deb.WithAnnotator(writer))
	}

	gen, err := deb.NewGenerator(config, opts...)
	if err != nil {
		return nil, err
	}

	if tmpl.AptConf != "" {
		confPath := filepath.Join(root, filepath.FromSlash(tmpl.AptConf))
		if !utils.FileExists(confPath) {
			log.WithField("file", confPath).Warn("template apt configuration not found, Release headers left as is")
		} else {
			n, err := gen.Manifest().ApplyAptConf(confPath)
			if err != nil {
				return nil, err
			}
			log.WithField("file", confPath).Infof("applied %d Release headers", n)
		}
	}

	var g generator.Generator = gen
	report, err := g.Build(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("Repository build completed successfully!")
	return report, nil
}

func printReport(w io.Writer, report *generator.Report) {
	fmt.Fprintf(w, "Indexed %d packages (%d records)\n", report.Packages, report.Records)
	for _, f := range report.Files {
		fmt.Fprintf(w, "  %-12s %8d bytes  sha256 %s\n", f.Name, f.Checksum.Size, f.Checksum.SHA256)
	}
	if n := len(report.SoftErrors); n > 0 {
		fmt.Fprintf(w, "%d depiction errors:\n", n)
		for _, err := range report.SoftErrors {
			fmt.Fprintf(w, "  %v\n", err)
		}
	}
}
