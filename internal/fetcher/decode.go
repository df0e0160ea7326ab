package fetcher

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported in Result.Encoding.
const (
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF8    = "utf-8"
	EncodingCP932   = "cp932"
	EncodingReplace = "utf-8-replace"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Tried in order; the first strict decode wins.
var candidates = []struct {
	name   string
	decode func([]byte) (string, bool)
}{
	{EncodingUTF8BOM, decodeUTF8BOM},
	{EncodingUTF8, decodeUTF8},
	{EncodingCP932, decodeCP932},
}

// Decode converts raw into text using the first candidate that decodes it
// strictly, or a lossy UTF-8 read with U+FFFD substitutions. It returns the
// text and the name of the decoding used.
func Decode(raw []byte) (string, string) {
	for _, c := range candidates {
		if text, ok := c.decode(raw); ok {
			return text, c.name
		}
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), EncodingReplace
}

func decodeUTF8BOM(raw []byte) (string, bool) {
	if !bytes.HasPrefix(raw, utf8BOM) || !utf8.Valid(raw) {
		return "", false
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// decodeCP932 fails when any byte sequence has no Shift_JIS mapping. The
// x/text decoder substitutes U+FFFD instead of returning an error, so the
// output is checked for it.
func decodeCP932(raw []byte) (string, bool) {
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
