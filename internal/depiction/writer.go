package depiction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/utils"
	"github.com/sirupsen/logrus"
)

// Writer writes the depictions of a template for every package it is given
// and returns the paragraph fields linking them. It satisfies the index
// builder's Annotator interface.
type Writer struct {
	root     string
	host     string
	template Template
	extras   map[string]models.DepictionExtras
	builders map[string]Builder
	log      logrus.FieldLogger
	now      func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger routes depiction events to log.
func WithLogger(log logrus.FieldLogger) WriterOption {
	return func(w *Writer) { w.log = log }
}

// WithClock sets the time source for release dates.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// WithExtras supplies per-package data keyed by package name.
func WithExtras(extras map[string]models.DepictionExtras) WriterOption {
	return func(w *Writer) { w.extras = extras }
}

// NewWriter creates a depiction writer for the repository at root, served
// at host.
func NewWriter(root, host string, template Template, opts ...WriterOption) (*Writer, error) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	w := &Writer{
		root:     root,
		host:     host,
		template: template,
		builders: make(map[string]Builder),
		log:      l,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, kind := range template.Kinds() {
		b, err := NewBuilder(kind, w.now)
		if err != nil {
			return nil, &models.Error{Type: models.ErrConfig, Err: fmt.Errorf("template %s: %w", template.Name, err)}
		}
		w.builders[kind] = b
	}
	return w, nil
}

// Annotate writes every depiction of pkg. Kinds that fail are skipped and
// reported together; the fields of the ones written are still returned.
func (w *Writer) Annotate(ctx context.Context, pkg *models.Package) (*models.Fields, error) {
	fields := models.NewFields()
	extras := w.extras[pkg.Name]

	var errs []error
	for _, kind := range w.template.Kinds() {
		if err := ctx.Err(); err != nil {
			return fields, err
		}

		log := w.log.WithFields(logrus.Fields{"package": pkg.Name, "depiction": kind})
		log.Debugf("making %s depiction", kind)

		content, err := w.builders[kind].Build(pkg, extras)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}

		target := w.template.Depictions[kind]
		path := filepath.Join(w.root, filepath.FromSlash(expand(target.Path, w.host, pkg.Name)))
		if !within(w.root, path) {
			errs = append(errs, fmt.Errorf("%s: %s is outside the repository root", kind, path))
			continue
		}
		if err := utils.WriteFile(path, content, 0644); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		log.WithField("file", path).Debug("wrote depiction")

		fields.Set(kind, expand(target.URL, w.host, pkg.Name))
	}

	return fields, errors.Join(errs...)
}

// within reports whether path lies inside root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
