package utils

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"os"
)

// Algorithm names used as keys of Checksum.Digests.
const (
	MD5    = "md5"
	SHA1   = "sha1"
	SHA256 = "sha256"
	SHA512 = "sha512"
)

// Algorithms lists every computed algorithm in emission order.
var Algorithms = []string{MD5, SHA1, SHA256, SHA512}

// packagesFields and releaseFields map algorithms to the field names used
// in Packages paragraphs and in the Release file. They differ only in the
// case of MD5.
var (
	packagesFields = map[string]string{MD5: "MD5sum", SHA1: "SHA1", SHA256: "SHA256", SHA512: "SHA512"}
	releaseFields  = map[string]string{MD5: "MD5Sum", SHA1: "SHA1", SHA256: "SHA256", SHA512: "SHA512"}
)

// PackagesField returns the Packages paragraph field name for algorithm.
func PackagesField(algorithm string) string {
	return packagesFields[algorithm]
}

// ReleaseField returns the Release hash-list field name for algorithm.
func ReleaseField(algorithm string) string {
	return releaseFields[algorithm]
}

// Checksum contains various checksums for a file
type Checksum struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
	Size   int64
}

// Digests returns the checksums keyed by algorithm name.
func (c *Checksum) Digests() map[string]string {
	return map[string]string{
		MD5:    c.MD5,
		SHA1:   c.SHA1,
		SHA256: c.SHA256,
		SHA512: c.SHA512,
	}
}

// CalculateChecksums calculates all checksums for a file in a single pass
func CalculateChecksums(path string) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return CalculateReaderChecksums(f)
}

// CalculateReaderChecksums streams r through every hash at once. Size is
// the number of bytes read.
func CalculateReaderChecksums(r io.Reader) (*Checksum, error) {
	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	multiWriter := io.MultiWriter(md5Hash, sha1Hash, sha256Hash, sha512Hash)

	n, err := io.Copy(multiWriter, r)
	if err != nil {
		return nil, err
	}

	return &Checksum{
		MD5:    hex.EncodeToString(md5Hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		SHA512: hex.EncodeToString(sha512Hash.Sum(nil)),
		Size:   n,
	}, nil
}
