package release

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mothman/mothman/internal/models"
)

// declRegexp matches the `Key value;` and `Key "quoted value";` lines of an
// APT::FTPArchive::Release block.
var declRegexp = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z0-9-]*) ("[^"]*"|.+);$`)

// Declaration is one key/value pair of an apt-ftparchive configuration.
type Declaration struct {
	Key   string
	Value string
}

// ParseAptConf extracts the Release declarations from an apt-ftparchive
// configuration, as shipped by repository templates.
func ParseAptConf(conf string) []Declaration {
	var out []Declaration
	for _, m := range declRegexp.FindAllStringSubmatch(conf, -1) {
		value := m[2]
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}
		out = append(out, Declaration{Key: m[1], Value: value})
	}
	return out
}

// DumpAptConf renders declarations as an APT::FTPArchive::Release block.
// Values containing spaces are quoted.
func DumpAptConf(decls []Declaration) string {
	var sb strings.Builder
	sb.WriteString("APT {\nFTPArchive {\nRelease {\n")
	for _, d := range decls {
		if strings.Contains(d.Value, " ") {
			fmt.Fprintf(&sb, "%s \"%s\";\n", d.Key, d.Value)
		} else {
			fmt.Fprintf(&sb, "%s %s;\n", d.Key, d.Value)
		}
	}
	sb.WriteString("};\n};\n};\n")
	return sb.String()
}

// ApplyAptConf reads the configuration at path and overrides the matching
// header fields of m. It returns the number of fields set.
func (m *Manifest) ApplyAptConf(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, &models.Error{Type: models.ErrIO, Path: path, Err: fmt.Errorf("failed to read apt configuration: %w", err)}
	}

	n := 0
	for _, d := range ParseAptConf(string(content)) {
		if IsHashField(d.Key) {
			continue
		}
		m.Set(d.Key, d.Value)
		n++
	}
	return n, nil
}
