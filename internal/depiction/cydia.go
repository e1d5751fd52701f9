package depiction

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mothman/mothman/internal/models"
	"pault.ag/go/debian/dependency"
)

// firmwarePackage is the virtual package iOS repositories use to express
// which OS versions a package supports.
const firmwarePackage = "firmware"

type cydiaPackage struct {
	XMLName          xml.Name          `xml:"package"`
	ID               string            `xml:"id"`
	Name             string            `xml:"name"`
	Version          string            `xml:"version"`
	Compatibility    cydiaCompat       `xml:"compatibility"`
	Dependencies     []string          `xml:"dependencies>package"`
	ShortDescription string            `xml:"shortDescription"`
	Descriptions     []string          `xml:"descriptionlist>description"`
	Screenshots      []cydiaScreenshot `xml:"screenshots>screenshot"`
	Changes          []string          `xml:"changelog>change"`
	Links            []cydiaLink       `xml:"links>link"`
}

type cydiaCompat struct {
	Firmware cydiaFirmware `xml:"firmware"`
}

type cydiaFirmware struct {
	Min string `xml:"miniOS,omitempty"`
	Max string `xml:"maxiOS,omitempty"`
}

type cydiaScreenshot struct {
	Description string `xml:"description"`
	Image       string `xml:"image"`
}

type cydiaLink struct {
	Name      string `xml:"name"`
	URL       string `xml:"url"`
	IconClass string `xml:"iconclass"`
}

var defaultLinks = []cydiaLink{
	{Name: "/r/jailbreak", URL: "https://www.reddit.com/r/jailbreak", IconClass: "fa fa-reddit"},
}

// CydiaBuilder renders the XML read by the web depiction pages of the
// repo.me and Reposi3 templates.
type CydiaBuilder struct{}

// Build implements Builder.
func (CydiaBuilder) Build(pkg *models.Package, extras models.DepictionExtras) ([]byte, error) {
	description, ok := pkg.Fields.Get("Description")
	if !ok || strings.TrimSpace(description) == "" {
		return nil, ErrNoDescription
	}
	lines := descriptionLines(description)
	if len(lines) == 0 {
		return nil, ErrNoDescription
	}

	doc := cydiaPackage{
		ID:               pkg.Name,
		Name:             displayName(pkg),
		Version:          pkg.Version,
		ShortDescription: lines[0],
		Descriptions:     lines,
		Changes:          []string{pkg.Version, "Initial release."},
		Links:            defaultLinks,
	}

	if depends := pkg.Fields.Value("Depends"); depends != "" {
		for _, d := range strings.Split(depends, ",") {
			if d = strings.TrimSpace(d); d != "" {
				doc.Dependencies = append(doc.Dependencies, d)
			}
		}

		firmware, err := firmwareRange(depends)
		if err != nil {
			return nil, err
		}
		doc.Compatibility.Firmware = firmware
	}

	for i, url := range extras.Screenshots {
		doc.Screenshots = append(doc.Screenshots, cydiaScreenshot{
			Description: fmt.Sprintf("Screenshot %d", i+1),
			Image:       url,
		})
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// firmwareRange reads the supported iOS range from firmware relations in a
// Depends value. Strict and non-strict bounds are not told apart.
func firmwareRange(depends string) (cydiaFirmware, error) {
	var fw cydiaFirmware

	dep, err := dependency.Parse(depends)
	if err != nil {
		return fw, fmt.Errorf("failed to parse Depends: %w", err)
	}

	for _, rel := range dep.Relations {
		for _, poss := range rel.Possibilities {
			if poss.Name != firmwarePackage || poss.Version == nil {
				continue
			}
			switch poss.Version.Operator {
			case "<<", "<=":
				fw.Max = poss.Version.Number
			case ">>", ">=":
				fw.Min = poss.Version.Number
			case "=":
				fw.Min = poss.Version.Number
				fw.Max = poss.Version.Number
			}
		}
	}
	return fw, nil
}

// descriptionLines splits a Description value into display lines. Blank
// lines and the "." placeholder are dropped.
func descriptionLines(description string) []string {
	var lines []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "." {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
