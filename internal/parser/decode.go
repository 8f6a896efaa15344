package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type csvDecoder struct{}

func (csvDecoder) CanDecode(filename string) bool {
	ext := extOf(filename)
	return ext == ".csv" || ext == ".txt"
}

func (csvDecoder) AcceptsMIME(mime string) bool {
	mime = strings.ToLower(mime)
	return strings.HasPrefix(mime, "text/csv") || strings.HasPrefix(mime, "text/plain")
}

func (csvDecoder) Decode(filename string, content []byte) (Source, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return CSVText{Filename: filename, Text: text}, nil
}

// decodeText honours a UTF-8 or UTF-16 byte order mark and falls back to
// Windows-1252 for bytes that are not valid UTF-8.
func decodeText(b []byte) (string, error) {
	if !hasUTF16BOM(b) && !utf8.Valid(b) {
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}
