package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsKeepInsertionOrder(t *testing.T) {
	f := NewFields()
	f.Set("Maintainer", "a")
	f.Set("Depends", "b")
	f.Set("Description", "c")
	f.Set("Depends", "b2")

	assert.Equal(t, []string{"Maintainer", "Depends", "Description"}, f.Keys())
	assert.Equal(t, "b2", f.Value("Depends"))

	f.Delete("Depends")
	f.Delete("Missing")
	assert.Equal(t, []string{"Maintainer", "Description"}, f.Keys())
	assert.False(t, f.Has("Depends"))
	assert.Equal(t, 2, f.Len())

	// keys are case-sensitive
	f.Set("description", "lower")
	assert.Equal(t, "c", f.Value("Description"))
	assert.Equal(t, 3, f.Len())
}

func TestFieldsCloneAndMerge(t *testing.T) {
	f := NewFields()
	f.Set("A", "1")

	c := f.Clone()
	c.Set("B", "2")
	assert.False(t, f.Has("B"))

	other := NewFields()
	other.Set("C", "3")
	other.Set("A", "overridden")
	f.Merge(other)
	f.Merge(nil)
	assert.Equal(t, []string{"A", "C"}, f.Keys())
	assert.Equal(t, "overridden", f.Value("A"))
}

func TestNilFieldsReadAsEmpty(t *testing.T) {
	var f *Fields
	assert.Equal(t, "", f.Value("A"))
	assert.False(t, f.Has("A"))
	_, ok := f.Get("A")
	assert.False(t, ok)
}

func TestPackageCloneIsDeep(t *testing.T) {
	p := &Package{Name: "foo", Version: "1", Architecture: "all", Fields: NewFields(), Checksums: map[string]string{"md5": "x"}}
	p.Fields.Set("Section", "utils")

	c := p.Clone()
	c.Fields.Set("Section", "games")
	c.Checksums["md5"] = "y"

	assert.Equal(t, "utils", p.Fields.Value("Section"))
	assert.Equal(t, "x", p.Checksums["md5"])
	assert.Equal(t, "foo_1_all", c.DebName())

	bare := (&Package{Name: "bar"}).Clone()
	assert.NotNil(t, bare.Fields)
}

func TestPackageValidate(t *testing.T) {
	assert.NoError(t, (&Package{Name: "ab", Version: "1", Architecture: "all"}).Validate())
	assert.NoError(t, (&Package{Name: "com.example.tweak+b1", Version: "1", Architecture: "all"}).Validate())
	assert.Error(t, (&Package{Version: "1", Architecture: "all"}).Validate())
	assert.Error(t, (&Package{Name: "ab", Architecture: "all"}).Validate())
	assert.Error(t, (&Package{Name: "ab", Version: "1"}).Validate())

	for _, name := range []string{"a", "../../escaped", "foo/bar", "Foo", "-foo", ".hidden", "foo bar"} {
		err := (&Package{Name: name, Version: "1", Architecture: "all"}).Validate()
		assert.ErrorContains(t, err, "invalid package name", name)
	}
}

func TestErrorTypes(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", &Error{Type: ErrExtraction, Path: "/x.deb", Err: base})

	assert.True(t, IsType(err, ErrExtraction))
	assert.False(t, IsType(err, ErrIO))
	assert.False(t, IsType(base, ErrExtraction))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "wrapped: [Extraction] /x.deb: boom", err.Error())

	assert.Equal(t, "[Config] boom", (&Error{Type: ErrConfig, Err: base}).Error())
	assert.Equal(t, "[Depiction] foo_1_all: boom", (&Error{Type: ErrDepiction, Package: "foo_1_all", Path: "/p", Err: base}).Error())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	content := `deb_path: debians
arch: iphoneos-arm
compress: [cat, xz]
template: repo.me
host: https://repo.example.com
packages:
  com.example.tweak:
    price: "$1.99"
    header_image: https://repo.example.com/banner.png
    screenshots:
      - https://repo.example.com/1.png
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debians", config.DebPath)
	assert.Equal(t, "deb", config.PackageType, "defaults fill unset keys")
	assert.Equal(t, "iphoneos-arm", config.Arch)
	assert.Equal(t, []string{"cat", "xz"}, config.Compress)
	assert.Equal(t, "repo.me", config.Template)
	assert.Equal(t, DepictionExtras{
		Price:       "$1.99",
		HeaderImage: "https://repo.example.com/banner.png",
		Screenshots: []string{"https://repo.example.com/1.png"},
	}, config.Extras["com.example.tweak"])
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.True(t, IsType(err, ErrIO))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("compress: [unterminated\n"), 0644))
	_, err = LoadConfigFile(bad)
	assert.True(t, IsType(err, ErrConfig))
}

func TestWriteConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	config := DefaultConfig()
	config.Template = "Reposi3"
	config.Multiversion = true

	require.NoError(t, WriteConfigFile(path, &config))
	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)

	config.Root = loaded.Root
	assert.Equal(t, config, *loaded)
}
