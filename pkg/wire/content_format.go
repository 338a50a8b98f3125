package wire

import "strings"

// ContentFormat names a payload serialization. The zero value means no
// format was requested and the request type decides.
type ContentFormat string

const (
	FormatDefault   ContentFormat = ""
	FormatText      ContentFormat = "TEXT"
	FormatLink      ContentFormat = "LINK"
	FormatOpaque    ContentFormat = "OPAQUE"
	FormatCBOR      ContentFormat = "CBOR"
	FormatSenMLJSON ContentFormat = "SENML_JSON"
	FormatSenMLCBOR ContentFormat = "SENML_CBOR"
	FormatTLV       ContentFormat = "TLV"
	FormatJSON      ContentFormat = "JSON"
)

var contentFormatCodes = map[ContentFormat]int{
	FormatText:      0,
	FormatLink:      40,
	FormatOpaque:    42,
	FormatCBOR:      60,
	FormatSenMLJSON: 110,
	FormatSenMLCBOR: 112,
	FormatTLV:       11542,
	FormatJSON:      11543,
}

// ParseContentFormat resolves a case-insensitive format name. An empty name
// yields FormatDefault. Unknown names return false.
func ParseContentFormat(name string) (ContentFormat, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return FormatDefault, true
	}
	name = strings.ReplaceAll(name, "-", "_")
	f := ContentFormat(name)
	if _, ok := contentFormatCodes[f]; !ok {
		return FormatDefault, false
	}
	return f, true
}

// Code returns the registered content-format number, or -1 for FormatDefault.
func (f ContentFormat) Code() int {
	if code, ok := contentFormatCodes[f]; ok {
		return code
	}
	return -1
}

// IsDefault returns true if no format was requested.
func (f ContentFormat) IsDefault() bool {
	return f == FormatDefault
}
