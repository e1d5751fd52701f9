package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression is one encoding of an index file.
type Compression interface {
	// Name is the short identifier accepted on the command line.
	Name() string
	// Suffix is appended to the index base name; empty for identity.
	Suffix() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

type compression struct {
	name      string
	suffix    string
	newWriter func(io.Writer) (io.WriteCloser, error)
	newReader func(io.Reader) (io.ReadCloser, error)
}

func (c *compression) Name() string   { return c.name }
func (c *compression) Suffix() string { return c.suffix }

func (c *compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return c.newWriter(w)
}

func (c *compression) NewReader(r io.Reader) (io.ReadCloser, error) {
	return c.newReader(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

var (
	Identity Compression = &compression{
		name:   "cat",
		suffix: "",
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}

	Gzip Compression = &compression{
		name:   "gz",
		suffix: ".gz",
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.BestCompression)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	}

	Bzip2 Compression = &compression{
		name:   "bz2",
		suffix: ".bz2",
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return bzip2.NewReader(r, nil)
		},
	}

	Xz Compression = &compression{
		name:   "xz",
		suffix: ".xz",
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
	}

	Zstd Compression = &compression{
		name:   "zst",
		suffix: ".zst",
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		},
	}
)

// Compressions lists every supported encoding, identity first.
var Compressions = []Compression{Identity, Gzip, Bzip2, Xz, Zstd}

// LookupCompression resolves a compression by name or suffix. "cat", ""
// and "." mean identity; a leading dot is optional ("gz" or ".gz").
func LookupCompression(name string) (Compression, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	if key == "" {
		return Identity, nil
	}
	for _, c := range Compressions {
		if c.Name() == key {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unsupported compression %q", name)
}

// ResolveCompressions resolves every name up front, dropping duplicates.
// An empty list is an error: an index with no encoding cannot be read.
func ResolveCompressions(names []string) ([]Compression, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no compression format(s) specified")
	}

	seen := make(map[string]bool)
	var out []Compression
	for _, name := range names {
		c, err := LookupCompression(name)
		if err != nil {
			return nil, err
		}
		if seen[c.Name()] {
			continue
		}
		seen[c.Name()] = true
		out = append(out, c)
	}
	return out, nil
}

// Compress encodes data with c.
func Compress(c Compression, w io.Writer, data []byte) error {
	cw, err := c.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := cw.Write(data); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}

// Decompress reads all of r through c.
func Decompress(c Compression, r io.Reader) ([]byte, error) {
	cr, err := c.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	return io.ReadAll(cr)
}
