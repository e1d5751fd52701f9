// Package depiction renders the descriptor files Cydia and Sileo clients
// show for a package, and links them from the package's index paragraph.
package depiction

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mothman/mothman/internal/models"
)

// Builder renders one kind of depiction for a finalized package.
type Builder interface {
	Build(pkg *models.Package, extras models.DepictionExtras) ([]byte, error)
}

// Kind tags, also the name of the paragraph field that links the file.
const (
	KindCydia = "Depiction"
	KindSileo = "SileoDepiction"
)

// ErrNoDescription is returned for packages without a Description field.
var ErrNoDescription = errors.New("package has no Description")

var kinds = map[string]func(now func() time.Time) Builder{
	KindCydia: func(func() time.Time) Builder { return CydiaBuilder{} },
	KindSileo: func(now func() time.Time) Builder { return SileoBuilder{Now: now} },
}

// NewBuilder returns the builder registered for kind.
func NewBuilder(kind string, now func() time.Time) (Builder, error) {
	mk, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown depiction kind %q", kind)
	}
	if now == nil {
		now = time.Now
	}
	return mk(now), nil
}

// Kinds lists the known depiction kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// displayName is the Name field when present, else the package name.
func displayName(pkg *models.Package) string {
	if name := pkg.Fields.Value("Name"); name != "" {
		return name
	}
	return pkg.Name
}
