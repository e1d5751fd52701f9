package scanner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Debian packages start with the ar global header followed by the
// debian-binary member.
var debMagic = []byte("!<arch>\ndebian")

// DetectPackageType determines the package type based on magic bytes and
// file extension. A file with a package extension but without the ar header
// is reported as unknown.
func DetectPackageType(path string) (PackageType, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, len(debMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return TypeUnknown, err
	}
	header = header[:n]

	if !bytes.Equal(header, debMagic) {
		return TypeUnknown, nil
	}

	switch filepath.Ext(path) {
	case ".udeb":
		return TypeUdeb, nil
	default:
		return TypeDeb, nil
	}
}
