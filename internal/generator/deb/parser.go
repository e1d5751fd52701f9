package deb

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/utils"
)

// Extractor reads the identity and control fields of a package file.
type Extractor interface {
	Extract(path string) (*models.Package, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(path string) (*models.Package, error)

// Extract calls f(path).
func (f ExtractorFunc) Extract(path string) (*models.Package, error) {
	return f(path)
}

// ControlExtractor reads the control file embedded in .deb archives.
var ControlExtractor Extractor = ExtractorFunc(ParsePackage)

// identityFields are lifted out of the control file into Package fields.
var identityFields = map[string]bool{
	"Package":      true,
	"Version":      true,
	"Architecture": true,
}

// ParsePackage parses a .deb file and extracts metadata. Fields that the
// index synthesizes (Filename, Size and hashes) are dropped from the
// control data.
func ParsePackage(path string) (*models.Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	// Extract control file from the .deb
	control, err := extractControl(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract control: %w", err)
	}

	// Parse control file
	paragraphs, err := ParseParagraphs(bytes.NewReader(control))
	if err != nil {
		return nil, fmt.Errorf("failed to parse control: %w", err)
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("control file is empty")
	}

	fields := paragraphs[0]
	pkg := &models.Package{
		Name:         fields.Value("Package"),
		Version:      fields.Value("Version"),
		Architecture: fields.Value("Architecture"),
		Fields:       models.NewFields(),
		SourcePath:   path,
		Size:         info.Size(),
	}
	for _, key := range fields.Keys() {
		if identityFields[key] || IsSynthesized(key) {
			continue
		}
		pkg.Fields.Set(key, fields.Value(key))
	}

	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// extractControl extracts the control file from a .deb package
func extractControl(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(ar.GLOBAL_HEADER))
	if err != nil || string(magic) != ar.GLOBAL_HEADER {
		return nil, fmt.Errorf("not an ar archive")
	}

	reader := ar.NewReader(br)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ar header: %w", err)
		}

		// GNU ar terminates member names with a slash
		name := strings.TrimRight(strings.TrimSpace(header.Name), "/")
		if !strings.HasPrefix(name, "control.tar") {
			continue
		}

		return extractControlFromTar(reader, name)
	}

	return nil, fmt.Errorf("control.tar not found in package")
}

// extractControlFromTar extracts the control file from control.tar*
func extractControlFromTar(r io.Reader, filename string) ([]byte, error) {
	compression, err := utils.LookupCompression(strings.TrimPrefix(filepath.Ext(filename), ".tar"))
	if err != nil {
		return nil, fmt.Errorf("unsupported control archive %s: %w", filename, err)
	}

	cr, err := compression.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	tarReader := tar.NewReader(cr)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if header.Name == "./control" || header.Name == "control" {
			return io.ReadAll(tarReader)
		}
	}

	return nil, fmt.Errorf("control file not found in %s", filename)
}

// ParseParagraphs parses Debian control data (a control file or a Packages
// index) into one ordered field set per paragraph. Blank description lines
// written as " ." read back as empty lines, so a value survives a round
// trip through WriteParagraph.
func ParseParagraphs(r io.Reader) ([]*models.Fields, error) {
	paragraphs, err := utils.ReadParagraphs(r)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Fields, 0, len(paragraphs))
	for _, p := range paragraphs {
		f := models.NewFields()
		for _, key := range p.Order {
			f.Set(key, p.Values[key])
		}
		out = append(out, f)
	}
	return out, nil
}

// ReadIndex loads the Packages index in dir, trying the uncompressed file
// first and then each compressed encoding. It returns the paragraphs and
// the name of the file read.
func ReadIndex(dir string) ([]*models.Fields, string, error) {
	for _, c := range utils.Compressions {
		path := filepath.Join(dir, IndexName+c.Suffix())
		if !utils.FileExists(path) {
			continue
		}

		paragraphs, err := readIndexFile(path, c)
		if err != nil {
			return nil, path, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return paragraphs, path, nil
	}
	return nil, "", &models.Error{Type: models.ErrIO, Path: dir, Err: fmt.Errorf("no %s index found", IndexName)}
}

func readIndexFile(path string, c utils.Compression) ([]*models.Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr, err := c.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	return ParseParagraphs(cr)
}
