package models

import (
	"fmt"
	"regexp"
)

// namePattern is the Debian policy syntax for package names. Names end up
// in depiction paths, so anything else is rejected.
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// Package is one discovered package file.
//
// Identity and Fields come from the extractor. SourcePath is set at scan time;
// Filename, Size and Checksums are only filled in when the record is
// finalized for emission, because the repository root is fixed by then.
type Package struct {
	// Identity
	Name         string
	Version      string
	Architecture string

	// Control metadata other than the identity fields, in control-file order.
	// Never holds Filename, Size or hash keys.
	Fields *Fields

	// File information
	SourcePath string
	Filename   string
	Size       int64
	Checksums  map[string]string
}

// DebName returns the conventional name_version_arch label used in logs.
func (p *Package) DebName() string {
	return fmt.Sprintf("%s_%s_%s", p.Name, p.Version, p.Architecture)
}

// Validate checks that the identity fields are present and that the name
// follows Debian policy.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("package missing name: %s", p.SourcePath)
	}
	if !namePattern.MatchString(p.Name) {
		return fmt.Errorf("invalid package name %q", p.Name)
	}
	if p.Version == "" {
		return fmt.Errorf("package %s missing version", p.Name)
	}
	if p.Architecture == "" {
		return fmt.Errorf("package %s missing architecture", p.Name)
	}
	return nil
}

// Clone returns a deep copy, so finalization never touches the tree's record.
func (p *Package) Clone() *Package {
	c := *p
	if p.Fields != nil {
		c.Fields = p.Fields.Clone()
	} else {
		c.Fields = NewFields()
	}
	if p.Checksums != nil {
		c.Checksums = make(map[string]string, len(p.Checksums))
		for k, v := range p.Checksums {
			c.Checksums[k] = v
		}
	}
	return &c
}
