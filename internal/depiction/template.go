package depiction

import (
	"fmt"
	"sort"
	"strings"
)

// Target says where a depiction is written, relative to the repository
// root, and the URL it is served at. Both may contain the {package} and
// {host} placeholders.
type Target struct {
	Path string
	URL  string
}

// Template describes the layout of a hosted repository template.
type Template struct {
	Name string
	// Source is the GitHub repository the template comes from.
	Source string
	// DebPath is where the template keeps package files.
	DebPath string
	// AptConf is the FTPArchive overlay for Release headers, if any.
	AptConf string
	// Depictions maps a depiction kind to its location.
	Depictions map[string]Target
}

// Templates are the supported repository templates.
var Templates = map[string]Template{
	"repo.me": {
		Name:    "repo.me",
		Source:  "syns/repo.me",
		DebPath: "debians",
		AptConf: "assets/repo/repo.conf",
		Depictions: map[string]Target{
			KindCydia: {
				Path: "depictions/web/{package}/info.xml",
				URL:  "{host}/depictions/web/?p={package}",
			},
			KindSileo: {
				Path: "depictions/native/{package}/depiction.json",
				URL:  "{host}/depictions/native/{package}/depiction.json",
			},
		},
	},
	"Reposi3": {
		Name:    "Reposi3",
		Source:  "supermamon/Reposi3",
		DebPath: "debs",
		// no Sileo support
		Depictions: map[string]Target{
			KindCydia: {
				Path: "depictions/{package}/info.xml",
				URL:  "{host}/depictions/?p={package}",
			},
		},
	},
}

// LookupTemplate returns the template registered under name.
func LookupTemplate(name string) (Template, error) {
	t, ok := Templates[name]
	if !ok {
		names := make([]string, 0, len(Templates))
		for n := range Templates {
			names = append(names, n)
		}
		sort.Strings(names)
		return Template{}, fmt.Errorf("unknown template %q (available: %s)", name, strings.Join(names, ", "))
	}
	return t, nil
}

// Kinds returns the depiction kinds the template supports, sorted.
func (t Template) Kinds() []string {
	kinds := make([]string, 0, len(t.Depictions))
	for k := range t.Depictions {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func expand(pattern, host, pkg string) string {
	return strings.NewReplacer("{host}", strings.TrimRight(host, "/"), "{package}", pkg).Replace(pattern)
}
