package deb

import (
	"bytes"
	"io"
	"strconv"

	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/utils"
)

// IndexName is the base name of the index file; encodings append a suffix.
const IndexName = "Packages"

// FieldOrder is the canonical order of paragraph fields. Fields not listed
// follow in the order they were added.
var FieldOrder = []string{
	"Package",
	"Version",
	"Architecture",
	"Maintainer",
	"Depends",
	"Conflicts",
	"Breaks",
	"Replaces",
	"Filename",
	"Size",
	"MD5sum",
	"SHA1",
	"SHA256",
	"SHA512",
	"Section",
	"Description",
}

var canonical = func() map[string]bool {
	m := make(map[string]bool, len(FieldOrder))
	for _, k := range FieldOrder {
		m[k] = true
	}
	return m
}()

// IsSynthesized reports whether key is computed at emission time rather
// than taken from the package's control data.
func IsSynthesized(key string) bool {
	switch key {
	case "Filename", "Size":
		return true
	}
	for _, alg := range utils.Algorithms {
		if key == utils.PackagesField(alg) {
			return true
		}
	}
	return false
}

// PackageFields assembles the paragraph of a finalized package: identity,
// control fields, then the synthesized file fields.
func PackageFields(pkg *models.Package) *models.Fields {
	f := models.NewFields()
	f.Set("Package", pkg.Name)
	f.Set("Version", pkg.Version)
	f.Set("Architecture", pkg.Architecture)

	if pkg.Fields != nil {
		for _, key := range pkg.Fields.Keys() {
			if identityFields[key] || IsSynthesized(key) {
				continue
			}
			f.Set(key, pkg.Fields.Value(key))
		}
	}

	// File information
	if pkg.Filename != "" {
		f.Set("Filename", pkg.Filename)
		f.Set("Size", strconv.FormatInt(pkg.Size, 10))
	}
	for _, alg := range utils.Algorithms {
		if digest, ok := pkg.Checksums[alg]; ok && digest != "" {
			f.Set(utils.PackagesField(alg), digest)
		}
	}
	return f
}

// OrderedKeys returns the keys of f in emission order.
func OrderedKeys(f *models.Fields) []string {
	keys := make([]string, 0, f.Len())
	for _, k := range FieldOrder {
		if f.Has(k) {
			keys = append(keys, k)
		}
	}
	for _, k := range f.Keys() {
		if !canonical[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// WriteParagraph writes f as one paragraph followed by a blank line.
// Multi-line values are written as continuation lines.
func WriteParagraph(w io.Writer, f *models.Fields) error {
	var buf bytes.Buffer
	for _, key := range OrderedKeys(f) {
		if err := utils.WriteField(&buf, key, f.Value(key)); err != nil {
			return err
		}
	}

	// Blank line between packages
	buf.WriteString("\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// GeneratePackagesFile creates a Debian Packages file from finalized
// packages, in the order given.
func GeneratePackagesFile(packages []*models.Package) ([]byte, error) {
	var buf bytes.Buffer
	for _, pkg := range packages {
		if err := WriteParagraph(&buf, PackageFields(pkg)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
