package depiction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mothman/mothman/internal/models"
)

// sileoView is one entry of a DepictionStackView. Keys are marshalled in
// sorted order.
type sileoView map[string]any

type sileoTab struct {
	Name  string      `json:"tabname"`
	Views []sileoView `json:"views"`
	Class string      `json:"class"`
}

type sileoDepiction struct {
	MinVersion  string     `json:"minVersion"`
	HeaderImage string     `json:"headerImage,omitempty"`
	Class       string     `json:"class"`
	TintColor   string     `json:"tintColor"`
	Tabs        []sileoTab `json:"tabs"`
}

// SileoBuilder renders native Sileo depictions.
type SileoBuilder struct {
	// Now supplies the Released date.
	Now func() time.Time
}

// Build implements Builder.
func (b SileoBuilder) Build(pkg *models.Package, extras models.DepictionExtras) ([]byte, error) {
	description, ok := pkg.Fields.Get("Description")
	if !ok || strings.TrimSpace(description) == "" {
		return nil, ErrNoDescription
	}
	short, _, _ := strings.Cut(description, "\n")

	now := b.Now
	if now == nil {
		now = time.Now
	}

	var views []sileoView
	add := func(class string, props sileoView) {
		props["class"] = class
		views = append(views, props)
	}
	spacer := func() {
		add("DepictionSpacerView", sileoView{"spacing": 8})
	}

	add("DepictionSubheaderView", sileoView{
		"title":           displayName(pkg),
		"useBoldText":     true,
		"useBottomMargin": false,
	})
	add("DepictionMarkdownView", sileoView{
		"markdown":   short,
		"useSpacing": true,
	})
	spacer()

	if len(extras.Screenshots) > 0 {
		shots := make([]sileoView, 0, len(extras.Screenshots))
		for i, url := range extras.Screenshots {
			shots = append(shots, sileoView{
				"accessibilityText": fmt.Sprintf("Screenshot%d", i+1),
				"url":               url,
			})
		}
		add("DepictionScreenshotsView", sileoView{
			"itemCornerRadius": 6,
			"itemSize":         "{160, 275.41333333333336}",
			"screenshots":      shots,
		})
	}

	add("DepictionMarkdownView", sileoView{
		"title":           "markdown-description",
		"markdown":        strings.Join(descriptionLines(description), "\n"),
		"useBoldText":     true,
		"useBottomMargin": false,
	})
	spacer()

	price := extras.Price
	if price == "" {
		price = "Free"
	}
	add("DepictionTableTextView", sileoView{"title": "Version", "text": pkg.Version})
	add("DepictionTableTextView", sileoView{"title": "Released", "text": now().Format("01-02-2006")})
	add("DepictionTableTextView", sileoView{"title": "Price", "text": price})
	spacer()

	developer := pkg.Fields.Value("Author")
	if developer == "" {
		developer = pkg.Fields.Value("Maintainer")
	}
	add("DepictionTableTextView", sileoView{"title": "Developer", "text": developer})

	doc := sileoDepiction{
		MinVersion:  "0.1",
		HeaderImage: extras.HeaderImage,
		Class:       "DepictionTabView",
		TintColor:   "#0657bb",
		Tabs: []sileoTab{{
			Name:  "Details",
			Views: views,
			Class: "DepictionStackView",
		}},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
