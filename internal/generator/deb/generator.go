package deb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	debversion "github.com/knqyf263/go-deb-version"
	"github.com/mothman/mothman/internal/generator"
	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/release"
	"github.com/mothman/mothman/internal/scanner"
	"github.com/mothman/mothman/internal/tree"
	"github.com/mothman/mothman/internal/utils"
	"github.com/sirupsen/logrus"
)

// ReleaseName is the manifest file at the repository root.
const ReleaseName = "Release"

// Annotator is given each finalized package before it is serialized. It may
// write auxiliary files and returns fields to merge into the paragraph. An
// error is reported but does not stop the build; any fields returned along
// with it are still merged.
type Annotator interface {
	Annotate(ctx context.Context, pkg *models.Package) (*models.Fields, error)
}

// Generator builds a flat Debian repository index (Packages + Release) at
// the repository root.
//
// A Generator is single use: Discover, Emit, Publish and Build each run
// once, in that order.
type Generator struct {
	config       *models.RepositoryConfig
	root         string
	debDir       string
	releasePath  string
	pkgType      scanner.PackageType
	compressions []utils.Compression

	scanner   scanner.Scanner
	extractor Extractor
	annotator Annotator
	log       logrus.FieldLogger
	now       func() time.Time

	manifest   *release.Manifest
	tree       *tree.Tree
	discovered bool
	emitted    bool
	published  bool
	built      bool
}

var _ generator.Generator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithLogger routes progress events to log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Generator) { g.log = log }
}

// WithExtractor replaces the .deb control extractor.
func WithExtractor(e Extractor) Option {
	return func(g *Generator) { g.extractor = e }
}

// WithAnnotator sets the collaborator that decorates finalized packages.
func WithAnnotator(a Annotator) Option {
	return func(g *Generator) { g.annotator = a }
}

// WithClock sets the time source used for the Release Date field.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewGenerator validates config and loads the repository's Release file.
// Configuration errors are reported before any file is touched.
func NewGenerator(config *models.RepositoryConfig, opts ...Option) (*Generator, error) {
	compressions, err := utils.ResolveCompressions(config.Compress)
	if err != nil {
		return nil, &models.Error{Type: models.ErrConfig, Err: err}
	}

	pkgType, err := scanner.ParsePackageType(config.PackageType)
	if err != nil {
		return nil, &models.Error{Type: models.ErrConfig, Err: err}
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, &models.Error{Type: models.ErrConfig, Path: config.Root, Err: err}
	}

	debDir := config.DebPath
	if !filepath.IsAbs(debDir) {
		debDir = filepath.Join(root, debDir)
	}
	if rel, err := filepath.Rel(root, debDir); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, &models.Error{
			Type: models.ErrConfig,
			Path: debDir,
			Err:  fmt.Errorf("package directory must be inside the repository root %s", root),
		}
	}

	g := &Generator{
		config:       config,
		root:         root,
		debDir:       debDir,
		releasePath:  filepath.Join(root, ReleaseName),
		pkgType:      pkgType,
		compressions: compressions,
		extractor:    ControlExtractor,
		log:          discardLogger(),
		now:          time.Now,
		tree:         tree.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.scanner = scanner.NewFileSystemScanner(pkgType, g.log)

	g.log.WithField("root", root).Debug("initialising repository")

	g.manifest, err = release.LoadFile(g.releasePath)
	if err != nil {
		return nil, err
	}
	// erase existing hashes of the index files, they are added back on build
	g.manifest.ClearHashes()

	return g, nil
}

// Manifest returns the Release manifest being built.
func (g *Generator) Manifest() *release.Manifest {
	return g.manifest
}

// Tree returns the package tree populated by Discover.
func (g *Generator) Tree() *tree.Tree {
	return g.tree
}

// Discover extracts every package file in the package directory into the
// tree. Any file that cannot be extracted aborts discovery. It may only be
// called once.
func (g *Generator) Discover(ctx context.Context) error {
	if g.discovered {
		return &models.Error{Type: models.ErrState, Err: errors.New("packages have already been discovered")}
	}
	g.discovered = true

	g.log.WithField("dir", g.debDir).Info("finding packages")

	scanned, err := g.scanner.Scan(ctx, g.debDir)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &models.Error{Type: models.ErrIO, Path: g.debDir, Err: err}
	}

	for _, s := range scanned {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkg, err := g.extractor.Extract(s.Path)
		if err != nil {
			var e *models.Error
			if errors.As(err, &e) {
				return err
			}
			return &models.Error{Type: models.ErrExtraction, Path: s.Path, Err: err}
		}
		if pkg.SourcePath == "" {
			pkg.SourcePath = s.Path
		}
		if pkg.Fields == nil {
			pkg.Fields = models.NewFields()
		}
		// the name ends up in paths below the repository root
		if err := pkg.Validate(); err != nil {
			return &models.Error{Type: models.ErrExtraction, Path: s.Path, Err: err}
		}

		log := g.log.WithField("package", pkg.DebName())

		if g.config.Arch != "" && pkg.Architecture != g.config.Arch && pkg.Architecture != "all" {
			log.Debugf("skipping, architecture is not %s", g.config.Arch)
			continue
		}

		if !debversion.Valid(pkg.Version) {
			log.Warnf("version %q is not policy compliant, ordering is best effort", pkg.Version)
		}

		log.Debug("adding package")
		g.tree.Insert(pkg)
	}

	return nil
}

// Emit serializes the selected records of every package, names in
// alphabetical order and versions newest first. Depiction failures are
// returned as soft errors. It may only be called once.
func (g *Generator) Emit(ctx context.Context) ([]byte, []*models.Package, []error, error) {
	if !g.discovered {
		return nil, nil, nil, &models.Error{Type: models.ErrState, Err: errors.New("packages have not been discovered")}
	}
	if g.emitted {
		return nil, nil, nil, &models.Error{Type: models.ErrState, Err: errors.New("index has already been emitted")}
	}
	g.emitted = true

	var finalized []*models.Package
	var soft []error

	for _, name := range g.tree.PackageNames() {
		g.log.WithField("package", name).Debug("sorting versions")

		for _, v := range g.tree.SelectedVersions(name, g.config.Multiversion) {
			for _, record := range g.tree.RecordsFor(name, v) {
				if err := ctx.Err(); err != nil {
					return nil, nil, nil, err
				}

				e, err := g.finalize(ctx, record)
				if err != nil {
					return nil, nil, nil, err
				}
				if e.soft != nil {
					soft = append(soft, e.soft)
				}
				finalized = append(finalized, e.pkg)
			}
		}
	}

	text, err := GeneratePackagesFile(finalized)
	if err != nil {
		return nil, nil, nil, err
	}

	g.log.Infof("%s successfully built (total %d unique packages)", IndexName, g.tree.Len())
	return text, finalized, soft, nil
}

// entry is a finalized record along with its depiction failure, if any.
type entry struct {
	pkg  *models.Package
	soft error
}

// finalize copies record and fills in the fields that depend on the
// repository root: Filename, Size, hashes and any annotator fields.
func (g *Generator) finalize(ctx context.Context, record *models.Package) (entry, error) {
	pkg := record.Clone()
	log := g.log.WithField("package", pkg.DebName())

	rel, err := filepath.Rel(g.root, pkg.SourcePath)
	if err != nil {
		return entry{}, &models.Error{Type: models.ErrIO, Package: pkg.DebName(), Path: pkg.SourcePath, Err: err}
	}
	pkg.Filename = filepath.ToSlash(rel)

	checksums, err := utils.CalculateChecksums(pkg.SourcePath)
	if err != nil {
		return entry{}, &models.Error{
			Type:    models.ErrIO,
			Package: pkg.DebName(),
			Path:    pkg.SourcePath,
			Err:     fmt.Errorf("failed to calculate checksums: %w", err),
		}
	}
	pkg.Size = checksums.Size
	pkg.Checksums = checksums.Digests()
	for _, alg := range utils.Algorithms {
		log.Debugf("adding %s hash to %s", utils.PackagesField(alg), IndexName)
	}

	e := entry{pkg: pkg}
	if g.annotator != nil {
		extra, err := g.annotator.Annotate(ctx, pkg)
		if err != nil {
			log.WithError(err).Warn("depiction failed")
			e.soft = &models.Error{Type: models.ErrDepiction, Package: pkg.DebName(), Err: err}
		}
		if extra != nil {
			accepted := models.NewFields()
			for _, key := range extra.Keys() {
				if identityFields[key] || IsSynthesized(key) {
					log.Warnf("ignoring reserved field %s from depiction", key)
					continue
				}
				accepted.Set(key, extra.Value(key))
			}
			pkg.Fields.Merge(accepted)
		}
	}

	log.Infof("adding to %s", IndexName)
	return e, nil
}

// Publish writes text through every requested encoding, records each
// written file in the Release manifest and persists the manifest. The
// manifest is only written once every encoding succeeded. It may only be
// called once, after Emit.
func (g *Generator) Publish(ctx context.Context, text []byte) ([]generator.IndexFile, error) {
	if !g.emitted {
		return nil, &models.Error{Type: models.ErrState, Err: errors.New("index has not been emitted")}
	}
	if g.published {
		return nil, &models.Error{Type: models.ErrState, Err: errors.New("index has already been published")}
	}
	g.published = true

	if err := g.removeStale(); err != nil {
		return nil, err
	}

	var files []generator.IndexFile
	for _, c := range g.compressions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := IndexName + c.Suffix()
		path := filepath.Join(g.root, name)
		log := g.log.WithFields(logrus.Fields{"file": name, "encoding": c.Name()})

		log.Info("compressing")
		err := utils.WriteAtomically(path, func(w io.Writer) error {
			return utils.Compress(c, w, text)
		})
		if err != nil {
			return nil, &models.Error{Type: models.ErrIO, Path: path, Err: fmt.Errorf("failed to write %s: %w", name, err)}
		}

		checksum, err := utils.CalculateChecksums(path)
		if err != nil {
			return nil, &models.Error{Type: models.ErrIO, Path: path, Err: fmt.Errorf("failed to calculate checksum for %s: %w", name, err)}
		}

		// add hash of the index file to Release
		digests := checksum.Digests()
		for _, alg := range utils.Algorithms {
			log.Debugf("adding %s hash to %s", utils.ReleaseField(alg), ReleaseName)
			g.manifest.AppendHash(utils.ReleaseField(alg), digests[alg], checksum.Size, name)
		}

		files = append(files, generator.IndexFile{Name: name, Compression: c.Name(), Checksum: checksum})
	}

	if g.config.StampDate {
		g.manifest.Set("Date", g.now().UTC().Format(time.RFC1123Z))
	}

	g.log.Infof("building %s file", ReleaseName)
	if err := g.manifest.WriteFile(g.releasePath); err != nil {
		return nil, err
	}

	return files, nil
}

// removeStale deletes index encodings left over from earlier builds that
// were not requested this time.
func (g *Generator) removeStale() error {
	requested := make(map[string]bool, len(g.compressions))
	for _, c := range g.compressions {
		requested[c.Name()] = true
	}

	for _, c := range utils.Compressions {
		if requested[c.Name()] {
			continue
		}
		path := filepath.Join(g.root, IndexName+c.Suffix())
		err := os.Remove(path)
		switch {
		case err == nil:
			g.log.WithField("file", filepath.Base(path)).Info("removed stale index")
		case !os.IsNotExist(err):
			return &models.Error{Type: models.ErrIO, Path: path, Err: err}
		}
	}
	return nil
}

// Build runs discovery (unless already done), emission and publishing.
func (g *Generator) Build(ctx context.Context) (*generator.Report, error) {
	if g.built {
		return nil, &models.Error{Type: models.ErrState, Err: errors.New("repository has already been built")}
	}
	g.built = true

	if !g.discovered {
		if err := g.Discover(ctx); err != nil {
			return nil, err
		}
	}

	text, finalized, soft, err := g.Emit(ctx)
	if err != nil {
		return nil, err
	}

	files, err := g.Publish(ctx, text)
	if err != nil {
		return nil, err
	}

	return &generator.Report{
		Packages:   g.tree.Len(),
		Records:    len(finalized),
		Files:      files,
		SoftErrors: soft,
		Index:      text,
	}, nil
}
