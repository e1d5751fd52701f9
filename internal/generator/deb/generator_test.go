package deb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/release"
	"github.com/mothman/mothman/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRelease = `Origin: Test
Label: Test
Suite: stable
Version: 1.0.0
Codename: tangelo
Architectures: iphoneos-arm
Components: main
Description: Test repository
MD5Sum:
 d41d8cd98f00b204e9800998ecf8427e 0 Packages.lzma
`

type testRepo struct {
	root   string
	debDir string
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	root := t.TempDir()
	debDir := filepath.Join(root, "debs")
	require.NoError(t, os.MkdirAll(debDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ReleaseName), []byte(testRelease), 0644))
	return &testRepo{root: root, debDir: debDir}
}

func (r *testRepo) config(compress ...string) *models.RepositoryConfig {
	if len(compress) == 0 {
		compress = []string{"cat", "gz"}
	}
	return &models.RepositoryConfig{
		Root:        r.root,
		DebPath:     "debs",
		PackageType: "deb",
		Compress:    compress,
	}
}

func (r *testRepo) readRelease(t *testing.T) *release.Manifest {
	t.Helper()
	m, err := release.LoadFile(filepath.Join(r.root, ReleaseName))
	require.NoError(t, err)
	return m
}

func build(t *testing.T, config *models.RepositoryConfig, opts ...Option) *testReport {
	t.Helper()
	gen, err := NewGenerator(config, opts...)
	require.NoError(t, err)
	report, err := gen.Build(context.Background())
	require.NoError(t, err)

	paragraphs, err := ParseParagraphs(bytes.NewReader(report.Index))
	require.NoError(t, err)
	return &testReport{Records: report.Records, Packages: report.Packages, Index: report.Index, Paragraphs: paragraphs, SoftErrors: report.SoftErrors}
}

type testReport struct {
	Packages   int
	Records    int
	Index      []byte
	Paragraphs []*models.Fields
	SoftErrors []error
}

func (r *testReport) identities() []string {
	var out []string
	for _, p := range r.Paragraphs {
		out = append(out, p.Value("Package")+" "+p.Value("Version")+" "+p.Value("Architecture"))
	}
	return out
}

func TestBuildLatestVersionOnly(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0-1", "arm")
	writeSimpleDeb(t, repo.debDir, "foo", "1.0-1", "arm64")
	writeSimpleDeb(t, repo.debDir, "foo", "2.0-1", "arm")

	report := build(t, repo.config())

	assert.Equal(t, []string{"foo 2.0-1 arm"}, report.identities())
	assert.Equal(t, 1, report.Packages)
	assert.Equal(t, 1, report.Records)
}

func TestBuildLatestVersionKeepsEveryArchitecture(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0-1", "arm")
	writeSimpleDeb(t, repo.debDir, "foo", "1.0-1", "arm64")
	writeSimpleDeb(t, repo.debDir, "foo", "2.0-1", "arm")
	writeSimpleDeb(t, repo.debDir, "foo", "2.0-1", "arm64")
	writeSimpleDeb(t, repo.debDir, "bar", "0.9~beta1", "all")

	report := build(t, repo.config())

	assert.Equal(t, []string{
		"bar 0.9~beta1 all",
		"foo 2.0-1 arm",
		"foo 2.0-1 arm64",
	}, report.identities())
}

func TestBuildMultiversion(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0-1", "arm")
	writeSimpleDeb(t, repo.debDir, "foo", "1.0-1", "arm64")
	writeSimpleDeb(t, repo.debDir, "foo", "1.10-1", "arm")
	writeSimpleDeb(t, repo.debDir, "foo", "1.9-1", "arm")

	config := repo.config()
	config.Multiversion = true
	report := build(t, config)

	assert.Equal(t, []string{
		"foo 1.10-1 arm",
		"foo 1.9-1 arm",
		"foo 1.0-1 arm",
		"foo 1.0-1 arm64",
	}, report.identities())
}

func TestBuildFinalizesFileFields(t *testing.T) {
	repo := newTestRepo(t)
	path := writeSimpleDeb(t, repo.debDir, "foo", "1.0", "arm64")

	report := build(t, repo.config())
	require.Len(t, report.Paragraphs, 1)
	p := report.Paragraphs[0]

	checksum, err := utils.CalculateChecksums(path)
	require.NoError(t, err)

	assert.Equal(t, "debs/foo_1.0_arm64.deb", p.Value("Filename"))
	assert.Equal(t, "1.0", p.Value("Version"))
	assert.Equal(t, checksum.MD5, p.Value("MD5sum"))
	assert.Equal(t, checksum.SHA1, p.Value("SHA1"))
	assert.Equal(t, checksum.SHA256, p.Value("SHA256"))
	assert.Equal(t, checksum.SHA512, p.Value("SHA512"))
	assert.Equal(t, "Test <test@example.com>", p.Value("Maintainer"))
}

func TestBuildArchitectureFilter(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "pkg-a", "1", "arm64")
	writeSimpleDeb(t, repo.debDir, "pkg-b", "1", "all")
	writeSimpleDeb(t, repo.debDir, "pkg-c", "1", "armhf")

	config := repo.config()
	config.Arch = "arm64"
	report := build(t, config)

	// like dpkg-scanpackages --arch, architecture-independent packages stay
	// in the index; an exact architecture match alone would drop pkg-b
	assert.Equal(t, []string{"pkg-a 1 arm64", "pkg-b 1 all"}, report.identities())
}

func TestBuildEmptyDirectory(t *testing.T) {
	repo := newTestRepo(t)

	report := build(t, repo.config())
	assert.Empty(t, report.Index)
	assert.Zero(t, report.Records)

	plain, err := os.ReadFile(filepath.Join(repo.root, "Packages"))
	require.NoError(t, err)
	assert.Empty(t, plain)

	f, err := os.Open(filepath.Join(repo.root, "Packages.gz"))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := utils.Decompress(utils.Gzip, f)
	require.NoError(t, err)
	assert.Empty(t, decoded)

	assert.Len(t, repo.readRelease(t).Hashes("SHA256"), 2)
}

func TestBuildReleaseHashes(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0", "arm")

	// a previous build with other encodings
	build(t, repo.config("cat", "xz", "bz2"))
	require.FileExists(t, filepath.Join(repo.root, "Packages.xz"))

	build(t, repo.config("cat", "gz"))

	assert.NoFileExists(t, filepath.Join(repo.root, "Packages.xz"))
	assert.NoFileExists(t, filepath.Join(repo.root, "Packages.bz2"))

	m := repo.readRelease(t)
	for _, name := range release.HashFields {
		entries := m.Hashes(name)
		require.Len(t, entries, 2, name)
		assert.Equal(t, "Packages", entries[0].Filename)
		assert.Equal(t, "Packages.gz", entries[1].Filename)
	}

	for _, entry := range m.Hashes("SHA256") {
		checksum, err := utils.CalculateChecksums(filepath.Join(repo.root, entry.Filename))
		require.NoError(t, err)
		assert.Equal(t, checksum.SHA256, entry.Digest)
		assert.Equal(t, checksum.Size, entry.Size)
	}

	// header fields pass through untouched
	assert.Equal(t, []string{
		"Origin", "Label", "Suite", "Version", "Codename", "Architectures",
		"Components", "Description", "MD5Sum", "SHA1", "SHA256", "SHA512",
	}, m.Names())
	description, _ := m.Get("Description")
	assert.Equal(t, "Test repository", description)
}

func TestBuildIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0", "arm")
	writeSimpleDeb(t, repo.debDir, "bar", "2.0", "arm")

	first := build(t, repo.config())
	firstRelease, err := os.ReadFile(filepath.Join(repo.root, ReleaseName))
	require.NoError(t, err)

	second := build(t, repo.config())
	secondRelease, err := os.ReadFile(filepath.Join(repo.root, ReleaseName))
	require.NoError(t, err)

	assert.Equal(t, first.Index, second.Index)
	assert.Equal(t, string(firstRelease), string(secondRelease))
}

func TestBuildStampDate(t *testing.T) {
	repo := newTestRepo(t)
	config := repo.config()
	config.StampDate = true

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	build(t, config, WithClock(func() time.Time { return now }))

	date, ok := repo.readRelease(t).Get("Date")
	require.True(t, ok)
	assert.Equal(t, "Fri, 01 Mar 2024 11:00:00 +0000", date)
}

func TestNewGeneratorConfigErrors(t *testing.T) {
	repo := newTestRepo(t)

	tests := []struct {
		name   string
		mutate func(*models.RepositoryConfig)
	}{
		{"no encodings", func(c *models.RepositoryConfig) { c.Compress = nil }},
		{"unknown encoding", func(c *models.RepositoryConfig) { c.Compress = []string{"cat", "lzma"} }},
		{"unsupported type", func(c *models.RepositoryConfig) { c.PackageType = "rpm" }},
		{"deb path outside root", func(c *models.RepositoryConfig) { c.DebPath = "../elsewhere" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := repo.config()
			tt.mutate(config)

			_, err := NewGenerator(config)
			require.Error(t, err)
			assert.True(t, models.IsType(err, models.ErrConfig), err)
		})
	}

	// nothing was touched
	content, err := os.ReadFile(filepath.Join(repo.root, ReleaseName))
	require.NoError(t, err)
	assert.Equal(t, testRelease, string(content))
	assert.NoFileExists(t, filepath.Join(repo.root, "Packages"))
}

func TestNewGeneratorMissingRelease(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, os.Remove(filepath.Join(repo.root, ReleaseName)))

	_, err := NewGenerator(repo.config())
	assert.True(t, models.IsType(err, models.ErrIO), err)
}

func TestBuildMissingPackageDirectory(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, os.Remove(repo.debDir))

	gen, err := NewGenerator(repo.config())
	require.NoError(t, err)
	_, err = gen.Build(context.Background())
	assert.True(t, models.IsType(err, models.ErrIO), err)
}

func TestBuildExtractionFailureIsFatal(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0", "arm")
	broken := filepath.Join(repo.debDir, "broken.deb")
	require.NoError(t, os.WriteFile(broken, []byte("not a package"), 0644))

	gen, err := NewGenerator(repo.config())
	require.NoError(t, err)
	_, err = gen.Build(context.Background())
	require.Error(t, err)

	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, models.ErrExtraction, e.Type)
	assert.Equal(t, broken, e.Path)

	content, err := os.ReadFile(filepath.Join(repo.root, ReleaseName))
	require.NoError(t, err)
	assert.Equal(t, testRelease, string(content))
	assert.NoFileExists(t, filepath.Join(repo.root, "Packages"))
}

func TestGeneratorPhasesRunOnce(t *testing.T) {
	repo := newTestRepo(t)

	gen, err := NewGenerator(repo.config())
	require.NoError(t, err)

	_, _, _, err = gen.Emit(context.Background())
	assert.True(t, models.IsType(err, models.ErrState), "emit before discover")

	require.NoError(t, gen.Discover(context.Background()))
	err = gen.Discover(context.Background())
	assert.True(t, models.IsType(err, models.ErrState), "second discover")

	_, err = gen.Publish(context.Background(), nil)
	assert.True(t, models.IsType(err, models.ErrState), "publish before emit")

	_, err = gen.Build(context.Background())
	require.NoError(t, err)
	_, err = gen.Build(context.Background())
	assert.True(t, models.IsType(err, models.ErrState), "second build")
}

func TestGeneratorEmitAndPublishRunOnce(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0", "arm")

	gen, err := NewGenerator(repo.config("cat", "gz"))
	require.NoError(t, err)
	require.NoError(t, gen.Discover(context.Background()))

	text, _, _, err := gen.Emit(context.Background())
	require.NoError(t, err)
	_, _, _, err = gen.Emit(context.Background())
	assert.True(t, models.IsType(err, models.ErrState), "second emit")

	_, err = gen.Publish(context.Background(), text)
	require.NoError(t, err)
	_, err = gen.Publish(context.Background(), text)
	assert.True(t, models.IsType(err, models.ErrState), "second publish")

	// one entry per encoding, not doubled by the rejected publish
	assert.Len(t, gen.Manifest().Hashes("SHA256"), 2)
	reloaded, err := release.LoadFile(filepath.Join(repo.root, ReleaseName))
	require.NoError(t, err)
	assert.Len(t, reloaded.Hashes("SHA256"), 2)
}

func TestBuildRejectsHostilePackageName(t *testing.T) {
	repo := newTestRepo(t)
	path := filepath.Join(repo.debDir, "escaped.deb")
	writeDeb(t, path, "Package: ../../escaped\nVersion: 1.0\nArchitecture: all\n", utils.Gzip)

	gen, err := NewGenerator(repo.config(), WithAnnotator(stubAnnotator{}))
	require.NoError(t, err)
	_, err = gen.Build(context.Background())
	require.Error(t, err)

	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, models.ErrExtraction, e.Type)
	assert.Equal(t, path, e.Path)
	assert.ErrorContains(t, err, "invalid package name")
	assert.NoFileExists(t, filepath.Join(repo.root, "Packages"))
}

func TestDiscoverValidatesExtractedNames(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "1.0", "arm")

	extractor := ExtractorFunc(func(path string) (*models.Package, error) {
		return &models.Package{Name: "../escaped", Version: "1.0", Architecture: "all", SourcePath: path}, nil
	})
	gen, err := NewGenerator(repo.config(), WithExtractor(extractor))
	require.NoError(t, err)
	err = gen.Discover(context.Background())
	assert.True(t, models.IsType(err, models.ErrExtraction), err)
	assert.Equal(t, 0, gen.Tree().Records())
}

type stubAnnotator struct {
	fail map[string]bool
}

func (a stubAnnotator) Annotate(_ context.Context, pkg *models.Package) (*models.Fields, error) {
	if a.fail[pkg.Name] {
		return nil, errors.New("no Description")
	}
	f := models.NewFields()
	f.Set("Depiction", "https://repo.example.com/?p="+pkg.Name)
	f.Set("Size", "1")
	return f, nil
}

func TestBuildDepictionFailureIsSoft(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "bad", "1.0", "arm")
	writeSimpleDeb(t, repo.debDir, "good", "1.0", "arm")

	log, hook := test.NewNullLogger()
	report := build(t, repo.config(),
		WithLogger(log),
		WithAnnotator(stubAnnotator{fail: map[string]bool{"bad": true}}),
	)

	assert.Equal(t, []string{"bad 1.0 arm", "good 1.0 arm"}, report.identities())
	assert.False(t, report.Paragraphs[0].Has("Depiction"))
	assert.Equal(t, "https://repo.example.com/?p=good", report.Paragraphs[1].Value("Depiction"))
	// reserved fields cannot be overridden
	assert.NotEqual(t, "1", report.Paragraphs[1].Value("Size"))

	require.Len(t, report.SoftErrors, 1)
	var e *models.Error
	require.True(t, errors.As(report.SoftErrors[0], &e))
	assert.Equal(t, models.ErrDepiction, e.Type)
	assert.Equal(t, "bad_1.0_arm", e.Package)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["package"] == "bad_1.0_arm" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestDiscoverWarnsOnInvalidVersion(t *testing.T) {
	repo := newTestRepo(t)
	writeSimpleDeb(t, repo.debDir, "foo", "v1.0", "arm")

	log, hook := test.NewNullLogger()
	gen, err := NewGenerator(repo.config(), WithLogger(log))
	require.NoError(t, err)
	require.NoError(t, gen.Discover(context.Background()))

	assert.Equal(t, 1, gen.Tree().Records())
	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}
