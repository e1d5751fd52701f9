package scanner

import (
	"context"
	"fmt"
	"strings"
)

// PackageType represents the type of package
type PackageType int

const (
	TypeUnknown PackageType = iota
	TypeDeb
	TypeUdeb
)

// String returns the string representation of PackageType
func (pt PackageType) String() string {
	switch pt {
	case TypeDeb:
		return "deb"
	case TypeUdeb:
		return "udeb"
	default:
		return "unknown"
	}
}

// Extension returns the file extension scanned for, with its dot.
func (pt PackageType) Extension() string {
	return "." + pt.String()
}

// ParsePackageType resolves a package type filter such as "deb".
func ParsePackageType(s string) (PackageType, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "deb":
		return TypeDeb, nil
	case "udeb":
		return TypeUdeb, nil
	default:
		return TypeUnknown, fmt.Errorf("unsupported package type %q", s)
	}
}

// ScannedPackage represents a package file found during scanning
type ScannedPackage struct {
	Path string
	Type PackageType
	Size int64
}

// Scanner interface for detecting and scanning packages
type Scanner interface {
	// Scan lists the package files directly inside dir
	Scan(ctx context.Context, dir string) ([]ScannedPackage, error)

	// DetectType determines the package type of a file
	DetectType(path string) (PackageType, error)
}
