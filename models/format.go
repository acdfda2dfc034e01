package models

// Format identifies one supported feed dialect or API.
type Format string

const (
	FormatGeneric    Format = "generic"
	FormatREAXML     Format = "reaxml"
	FormatTurkishXML Format = "tr_xml"
	FormatJSONLD     Format = "jsonld"
	FormatWordPress  Format = "wordpress"
)

var Formats = []Format{FormatGeneric, FormatREAXML, FormatTurkishXML, FormatJSONLD, FormatWordPress}

var formatNames = map[Format]string{
	FormatGeneric:    "Generic CSV / JSON",
	FormatREAXML:     "REAXML (Australia)",
	FormatTurkishXML: "Turkish portal XML",
	FormatJSONLD:     "Website structured data (JSON-LD)",
	FormatWordPress:  "WordPress REST API",
}

func (f Format) DisplayName() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return string(f)
}

func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}
