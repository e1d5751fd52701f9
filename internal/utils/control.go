package utils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"pault.ag/go/debian/control"
)

// ReadParagraphs parses Debian control data into paragraphs.
//
// Values are normalized the way control.ParagraphReader decodes them, minus
// the trailing newline it leaves on multi-line values: continuation lines
// lose one leading space or tab, " ." becomes an empty line. Duplicate
// fields and continuation lines that open a paragraph are errors.
func ReadParagraphs(r io.Reader) ([]control.Paragraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := checkContinuations(data); err != nil {
		return nil, err
	}

	reader, err := control.NewParagraphReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, err
	}
	paragraphs, err := reader.All()
	if err != nil {
		return nil, err
	}

	for _, p := range paragraphs {
		seen := make(map[string]bool, len(p.Order))
		for _, key := range p.Order {
			if seen[key] {
				return nil, fmt.Errorf("duplicate field %q", key)
			}
			seen[key] = true
			p.Values[key] = strings.TrimSuffix(p.Values[key], "\n")
		}
	}
	return paragraphs, nil
}

// checkContinuations rejects continuation lines with no field to continue.
// control.ParagraphReader files them under an empty key and drops them.
func checkContinuations(data []byte) error {
	start := true
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case line == "":
			start = true
		case line[0] == '#':
		case line[0] == ' ' || line[0] == '\t':
			if start {
				return fmt.Errorf("line %d: continuation line without a field", i+1)
			}
		default:
			start = false
		}
	}
	return nil
}

// WriteField writes one "Key: value" field. Lines after the first become
// continuation lines; empty ones are written as " ." so they do not end the
// paragraph.
func WriteField(w io.Writer, key, value string) error {
	var buf bytes.Buffer
	first, rest, multi := strings.Cut(value, "\n")
	if first == "" {
		fmt.Fprintf(&buf, "%s:\n", key)
	} else {
		fmt.Fprintf(&buf, "%s: %s\n", key, first)
	}
	if multi {
		for _, line := range strings.Split(rest, "\n") {
			if strings.TrimSpace(line) == "" {
				line = "."
			}
			fmt.Fprintf(&buf, " %s\n", line)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}
