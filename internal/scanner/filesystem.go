package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct {
	pkgType PackageType
	log     logrus.FieldLogger
}

// NewFileSystemScanner creates a scanner for files of the given type
func NewFileSystemScanner(pkgType PackageType, log logrus.FieldLogger) *FileSystemScanner {
	return &FileSystemScanner{pkgType: pkgType, log: log}
}

// Scan lists the files of the scanner's type directly inside dir, in name
// order. Subdirectories are not descended into. Files are returned whether
// or not they look like valid packages: a bad candidate must fail the
// build at extraction rather than vanish from the index.
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	var packages []ScannedPackage
	for _, entry := range entries {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if entry.IsDir() || filepath.Ext(entry.Name()) != s.pkgType.Extension() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if pkgType, err := s.DetectType(path); err != nil || pkgType == TypeUnknown {
			s.log.WithField("file", path).Warn("file does not carry a Debian archive header")
		}

		s.log.WithField("file", path).Debugf("found %s package", s.pkgType)
		packages = append(packages, ScannedPackage{
			Path: path,
			Type: s.pkgType,
			Size: info.Size(),
		})
	}

	s.log.Infof("found %d packages in %s", len(packages), dir)
	return packages, nil
}

// DetectType determines the package type of a file
func (s *FileSystemScanner) DetectType(path string) (PackageType, error) {
	return DetectPackageType(path)
}
