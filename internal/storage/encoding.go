package storage

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Encoding names reported in document.Format.
const (
	EncodingUTF8    = "utf-8"
	EncodingEUCKR   = "euc-kr"
	EncodingWin1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):], true
	}
	return data, false
}

// decode returns data as UTF-8 text. Valid UTF-8 is used as is; anything
// else is decoded with fallback, which is the legacy encoding the file
// was most likely written in.
func decode(data []byte, fallback string) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}
	enc, err := lookupEncoding(fallback)
	if err != nil {
		return "", "", err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", fallback, err)
	}
	return string(out), fallback, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch name {
	case EncodingEUCKR:
		return korean.EUCKR, nil
	case EncodingWin1252:
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
