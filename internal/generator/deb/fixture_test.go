package deb

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/mothman/mothman/internal/utils"
	"github.com/stretchr/testify/require"
)

var fixtureTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// writeDeb builds a minimal .deb at path whose control.tar member holds
// control, compressed with c.
func writeDeb(t *testing.T, path, control string, c utils.Compression) {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:    "./control",
		Mode:    0644,
		Size:    int64(len(control)),
		ModTime: fixtureTime,
	}))
	_, err := tw.Write([]byte(control))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var controlTar bytes.Buffer
	require.NoError(t, utils.Compress(c, &controlTar, tarBuf.Bytes()))

	var emptyTar bytes.Buffer
	require.NoError(t, tar.NewWriter(&emptyTar).Close())
	var dataTar bytes.Buffer
	require.NoError(t, utils.Compress(utils.Gzip, &dataTar, emptyTar.Bytes()))

	members := []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"control.tar" + c.Suffix(), controlTar.Bytes()},
		{"data.tar.gz", dataTar.Bytes()},
	}

	var deb bytes.Buffer
	w := ar.NewWriter(&deb)
	require.NoError(t, w.WriteGlobalHeader())
	for _, m := range members {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    m.name,
			ModTime: fixtureTime,
			Mode:    0644,
			Size:    int64(len(m.body)),
		}))
		_, err := w.Write(m.body)
		require.NoError(t, err)
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, deb.Bytes(), 0644))
}

// writeSimpleDeb writes name_version_arch.deb into dir.
func writeSimpleDeb(t *testing.T, dir, name, version, arch string) string {
	t.Helper()

	control := "Package: " + name + "\n" +
		"Version: " + version + "\n" +
		"Architecture: " + arch + "\n" +
		"Maintainer: Test <test@example.com>\n" +
		"Description: " + name + " test package\n" +
		" A longer description.\n"

	path := filepath.Join(dir, name+"_"+version+"_"+arch+".deb")
	writeDeb(t, path, control, utils.Gzip)
	return path
}
