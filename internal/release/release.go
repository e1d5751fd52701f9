// Package release reads and writes the Release manifest of a repository.
//
// Reference: https://wiki.debian.org/DebianRepository/Format#A.22Release.22_files
package release

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mothman/mothman/internal/models"
	"github.com/mothman/mothman/internal/utils"
	"pault.ag/go/debian/control"
)

// HashFields are the multi-line fields listing the checksum, size and name
// of every index file, in the order they are first added.
var HashFields = []string{"MD5Sum", "SHA1", "SHA256", "SHA512"}

// HashEntry is one line of a hash-list field.
type HashEntry struct {
	Digest   string
	Size     int64
	Filename string
}

func (e HashEntry) String() string {
	return fmt.Sprintf(" %s %d %s", e.Digest, e.Size, e.Filename)
}

// Manifest is a Release file. The embedded paragraph holds the header
// fields in file order; hash fields keep their position there while their
// entries live in hashes.
type Manifest struct {
	control.Paragraph

	hashes  map[string][]HashEntry
	cleared map[string]bool
}

// New creates an empty manifest
func New() *Manifest {
	return &Manifest{
		Paragraph: control.Paragraph{Values: map[string]string{}},
		hashes:    make(map[string][]HashEntry),
		cleared:   make(map[string]bool),
	}
}

// IsHashField reports whether name is one of HashFields.
func IsHashField(name string) bool {
	for _, h := range HashFields {
		if h == name {
			return true
		}
	}
	return false
}

// Parse reads a manifest from r. A Release file is a single paragraph; the
// lines of each hash field must be "digest size filename" triples.
func Parse(r io.Reader) (*Manifest, error) {
	paragraphs, err := utils.ReadParagraphs(r)
	if err != nil {
		return nil, err
	}
	if len(paragraphs) > 1 {
		return nil, fmt.Errorf("expected a single paragraph, got %d", len(paragraphs))
	}

	m := New()
	if len(paragraphs) == 0 {
		return m, nil
	}
	m.Paragraph = paragraphs[0]

	for _, name := range m.Order {
		if !IsHashField(name) {
			continue
		}
		for _, line := range strings.Split(m.Values[name], "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			entry, err := parseEntry(name, line)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			m.hashes[name] = append(m.hashes[name], entry)
		}
		m.Values[name] = ""
	}
	return m, nil
}

// ParseString is Parse over a string.
func ParseString(text string) (*Manifest, error) {
	return Parse(strings.NewReader(text))
}

func parseEntry(name, line string) (HashEntry, error) {
	// two-field lines are the .dsc form, not valid in a Release file
	if len(strings.Fields(line)) != 3 {
		return HashEntry{}, fmt.Errorf("malformed hash entry %q", strings.TrimSpace(line))
	}

	var (
		fh  control.FileHash
		err error
	)
	switch name {
	case "MD5Sum":
		var h control.MD5FileHash
		err = h.UnmarshalControl(line)
		fh = h.FileHash
	case "SHA1":
		var h control.SHA1FileHash
		err = h.UnmarshalControl(line)
		fh = h.FileHash
	case "SHA256":
		var h control.SHA256FileHash
		err = h.UnmarshalControl(line)
		fh = h.FileHash
	default:
		var h control.SHA512FileHash
		err = h.UnmarshalControl(line)
		fh = h.FileHash
	}
	if err != nil || fh.Size < 0 {
		return HashEntry{}, fmt.Errorf("malformed size in hash entry %q", strings.TrimSpace(line))
	}
	return HashEntry{Digest: fh.Hash, Size: fh.Size, Filename: fh.Filename}, nil
}

// LoadFile reads the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.Error{Type: models.ErrIO, Path: path, Err: fmt.Errorf("failed to open Release: %w", err)}
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, &models.Error{Type: models.ErrIO, Path: path, Err: fmt.Errorf("corrupt Release: %w", err)}
	}
	return m, nil
}

// WriteFile replaces the manifest at path.
func (m *Manifest) WriteFile(path string) error {
	err := utils.WriteAtomically(path, m.WriteTo)
	if err != nil {
		return &models.Error{Type: models.ErrIO, Path: path, Err: fmt.Errorf("failed to write Release: %w", err)}
	}
	return nil
}

// Names returns the field names in order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Order))
	copy(names, m.Order)
	return names
}

// Get returns a scalar field's value. Continuation lines are joined with
// newlines; " ." lines read as empty lines.
func (m *Manifest) Get(name string) (string, bool) {
	if IsHashField(name) {
		return "", false
	}
	v, ok := m.Values[name]
	return v, ok
}

// Set stores a scalar field. An existing field keeps its position; a new
// one is appended. Multi-line values become continuation lines.
func (m *Manifest) Set(name, value string) {
	if IsHashField(name) {
		panic(fmt.Sprintf("release: %s is a hash field, use AppendHash", name))
	}
	m.Paragraph.Set(name, value)
}

// Delete removes a field.
func (m *Manifest) Delete(name string) {
	if _, ok := m.Values[name]; !ok {
		return
	}
	delete(m.Values, name)
	delete(m.hashes, name)
	delete(m.cleared, name)
	for i, k := range m.Order {
		if k == name {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}
}

// ClearHashes drops every entry of the hash fields so that stale index
// encodings never linger. Cleared fields keep their position and are only
// written again once repopulated.
func (m *Manifest) ClearHashes() {
	for _, name := range m.Order {
		if IsHashField(name) {
			m.hashes[name] = nil
			m.cleared[name] = true
		}
	}
}

// AppendHash adds one entry to a hash field, creating it at the end if needed.
func (m *Manifest) AppendHash(name, digest string, size int64, filename string) {
	if !IsHashField(name) {
		panic(fmt.Sprintf("release: %s is not a hash field", name))
	}
	m.Paragraph.Set(name, "")
	m.cleared[name] = false
	m.hashes[name] = append(m.hashes[name], HashEntry{Digest: digest, Size: size, Filename: filename})
}

// Hashes returns the entries of a hash field.
func (m *Manifest) Hashes(name string) []HashEntry {
	entries := m.hashes[name]
	if entries == nil {
		return nil
	}
	out := make([]HashEntry, len(entries))
	copy(out, entries)
	return out
}

// Bytes serializes the manifest.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	for _, name := range m.Order {
		if !IsHashField(name) {
			utils.WriteField(&buf, name, m.Values[name])
			continue
		}

		entries := m.hashes[name]
		if m.cleared[name] && len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "%s:\n", name)
		for _, e := range entries {
			fmt.Fprintf(&buf, "%s\n", e)
		}
	}
	return buf.Bytes()
}

// WriteTo writes the serialized manifest to w. It replaces the embedded
// paragraph's method, which knows nothing of the hash entries.
func (m *Manifest) WriteTo(w io.Writer) error {
	_, err := w.Write(m.Bytes())
	return err
}

// String returns the serialized manifest.
func (m *Manifest) String() string {
	return string(m.Bytes())
}
