// Package tree aggregates discovered packages by name, version and
// architecture.
package tree

import (
	"fmt"
	"sort"

	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/version"
)

// Tree maps name -> version -> architecture -> record.
//
// Architecture is the innermost key so that two builds of the same version
// for different architectures never overwrite each other. Versions and
// architectures remember the order they were first inserted in.
type Tree struct {
	packages map[string]*versions
	records  int
}

type versions struct {
	order []string
	byKey map[string]*arches
}

type arches struct {
	order  []string
	byArch map[string]*models.Package
}

// New creates an empty tree
func New() *Tree {
	return &Tree{packages: make(map[string]*versions)}
}

// Insert adds pkg, replacing any record with the same name, version and
// architecture. A replaced record keeps its position.
func (t *Tree) Insert(pkg *models.Package) {
	vs, ok := t.packages[pkg.Name]
	if !ok {
		vs = &versions{byKey: make(map[string]*arches)}
		t.packages[pkg.Name] = vs
	}

	as, ok := vs.byKey[pkg.Version]
	if !ok {
		as = &arches{byArch: make(map[string]*models.Package)}
		vs.byKey[pkg.Version] = as
		vs.order = append(vs.order, pkg.Version)
	}

	if _, ok := as.byArch[pkg.Architecture]; !ok {
		as.order = append(as.order, pkg.Architecture)
		t.records++
	}
	as.byArch[pkg.Architecture] = pkg
}

// PackageNames returns every name, sorted as plain strings.
func (t *Tree) PackageNames() []string {
	names := make([]string, 0, len(t.packages))
	for name := range t.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OrderedVersions returns the version keys of name, newest first.
// It panics if name is not in the tree.
func (t *Tree) OrderedVersions(name string) []string {
	vs := t.mustGet(name)
	out := make([]string, len(vs.order))
	copy(out, vs.order)
	version.SortDescending(out)
	return out
}

// SelectedVersions returns OrderedVersions(name) when multiversion is set.
// Otherwise it returns only the keys equal to the newest one, ignoring any
// "/arch" suffix, so every architecture of the latest version is kept.
func (t *Tree) SelectedVersions(name string, multiversion bool) []string {
	ordered := t.OrderedVersions(name)
	if multiversion || len(ordered) == 0 {
		return ordered
	}

	latest := version.Strip(ordered[0])
	selected := ordered[:0]
	for _, v := range ordered {
		if version.Strip(v) == latest {
			selected = append(selected, v)
		}
	}
	return selected
}

// RecordsFor returns the architecture variants stored under name and
// version, in insertion order. It panics if either is unknown.
func (t *Tree) RecordsFor(name, ver string) []*models.Package {
	as, ok := t.mustGet(name).byKey[ver]
	if !ok {
		panic(fmt.Sprintf("tree: package %q has no version %q", name, ver))
	}
	out := make([]*models.Package, 0, len(as.order))
	for _, arch := range as.order {
		out = append(out, as.byArch[arch])
	}
	return out
}

// Len returns the number of unique package names.
func (t *Tree) Len() int {
	return len(t.packages)
}

// Records returns the number of stored records.
func (t *Tree) Records() int {
	return t.records
}

func (t *Tree) mustGet(name string) *versions {
	vs, ok := t.packages[name]
	if !ok {
		panic(fmt.Sprintf("tree: unknown package %q", name))
	}
	return vs
}
