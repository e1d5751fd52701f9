package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mothman/mothman/internal/depiction"
	"github.com/mothman/mothman/internal/generator/deb"
	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/release"
	"github.com/mothman/mothman/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type initOptions struct {
	root   string
	force  bool
	config models.RepositoryConfig

	origin        string
	label         string
	suite         string
	version       string
	codename      string
	architectures string
	components    string
	description   string
}

// NewInitCmd creates the init command
func NewInitCmd(log *logrus.Logger) *cobra.Command {
	var opts initOptions
	defaults := models.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the Release file and configuration of a new repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfig(&opts.config, cmd.Flags().Changed("deb-path")); err != nil {
				return err
			}
			return runInit(log, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.root, "path", "p", ".", "Repository root")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing Release file")

	// Repository metadata flags
	cmd.Flags().StringVar(&opts.origin, "origin", "", "Repository origin name")
	cmd.Flags().StringVar(&opts.label, "label", "", "Repository label (defaults to origin)")
	cmd.Flags().StringVar(&opts.suite, "suite", "stable", "Suite")
	cmd.Flags().StringVar(&opts.version, "version", "1.0.0", "Repository version")
	cmd.Flags().StringVar(&opts.codename, "codename", "tangelo", "Codename")
	cmd.Flags().StringVar(&opts.architectures, "architectures", "iphoneos-arm", "Architectures served")
	cmd.Flags().StringVar(&opts.components, "components", "main", "Components")
	cmd.Flags().StringVar(&opts.description, "description", "", "Repository description")

	// Saved to the configuration file
	cmd.Flags().StringVarP(&opts.config.DebPath, "deb-path", "d", defaults.DebPath, "Package directory, relative to the repository root")
	cmd.Flags().StringSliceVar(&opts.config.Compress, "compress", defaults.Compress, "Index encodings to write (cat, gz, bz2, xz, zst)")
	cmd.Flags().StringVar(&opts.config.Host, "host", "", "URL the repository is served at")
	cmd.Flags().StringVar(&opts.config.Template, "template", "", "Repository template (repo.me, Reposi3)")

	return cmd
}

// releaseHeaders returns the header fields of a new Release file in the
// order they are written.
func (o *initOptions) releaseHeaders() []release.Declaration {
	origin := o.origin
	if origin == "" {
		origin = "Mothman Repository"
	}
	label := o.label
	if label == "" {
		label = origin
	}

	headers := []release.Declaration{
		{Key: "Origin", Value: origin},
		{Key: "Label", Value: label},
		{Key: "Suite", Value: o.suite},
		{Key: "Version", Value: o.version},
		{Key: "Codename", Value: o.codename},
		{Key: "Architectures", Value: o.architectures},
		{Key: "Components", Value: o.components},
	}
	if o.description != "" {
		headers = append(headers, release.Declaration{Key: "Description", Value: o.description})
	}
	return headers
}

func runInit(log *logrus.Logger, opts *initOptions) error {
	root, err := filepath.Abs(opts.root)
	if err != nil {
		return &models.Error{Type: models.ErrConfig, Path: opts.root, Err: err}
	}
	if _, err := utils.ResolveCompressions(opts.config.Compress); err != nil {
		return &models.Error{Type: models.ErrConfig, Err: err}
	}

	releasePath := filepath.Join(root, deb.ReleaseName)
	if utils.FileExists(releasePath) && !opts.force {
		return &models.Error{
			Type: models.ErrConfig,
			Path: releasePath,
			Err:  fmt.Errorf("repository already initialised, use --force to overwrite"),
		}
	}

	debDir := filepath.Join(root, filepath.FromSlash(opts.config.DebPath))
	if err := utils.EnsureDir(debDir); err != nil {
		return &models.Error{Type: models.ErrIO, Path: debDir, Err: err}
	}

	headers := opts.releaseHeaders()
	manifest := release.New()
	for _, h := range headers {
		manifest.Set(h.Key, h.Value)
	}
	if err := manifest.WriteFile(releasePath); err != nil {
		return err
	}
	log.WithField("file", releasePath).Info("wrote Release")

	configPath := filepath.Join(root, models.ConfigFileName)
	config := models.DefaultConfig()
	config.DebPath = opts.config.DebPath
	config.Compress = opts.config.Compress
	config.Host = opts.config.Host
	config.Template = opts.config.Template
	if err := models.WriteConfigFile(configPath, &config); err != nil {
		return &models.Error{Type: models.ErrIO, Path: configPath, Err: err}
	}
	log.WithField("file", configPath).Info("wrote configuration")

	if config.Template == "" {
		return nil
	}

	// templates with an apt configuration read their headers from it on build
	tmpl, err := depiction.LookupTemplate(config.Template)
	if err != nil {
		return &models.Error{Type: models.ErrConfig, Err: err}
	}
	if tmpl.AptConf != "" {
		confPath := filepath.Join(root, filepath.FromSlash(tmpl.AptConf))
		if err := utils.WriteFile(confPath, []byte(release.DumpAptConf(headers)), 0644); err != nil {
			return &models.Error{Type: models.ErrIO, Path: confPath, Err: err}
		}
		log.WithField("file", confPath).Info("wrote apt configuration")
	}
	return nil
}
