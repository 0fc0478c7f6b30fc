package wire

// Message assembles a complete record: the header byte, the fields joined
// with the field separator, and the end-of-record marker.
func Message(header byte, fields ...string) []byte {
	size := 1 + len(EOR)
	for _, f := range fields {
		size += len(f) + 1
	}

	out := make([]byte, 0, size)
	out = append(out, header)
	for i, f := range fields {
		if i > 0 {
			out = append(out, FieldSep)
		}
		out = append(out, f...)
	}
	return append(out, EOR...)
}

// GameMessage assembles a TypeGameInfo record carrying the given game event
// sub-type and fields.
func GameMessage(event byte, fields ...string) []byte {
	payload := Message(event, fields...)
	out := make([]byte, 0, len(payload)+1)
	out = append(out, TypeGameInfo)
	return append(out, payload...)
}

// CodeMessage assembles a record whose payload is a single code byte, used
// for search acknowledgements and typed error responses.
func CodeMessage(header byte, code byte) []byte {
	out := make([]byte, 0, 2+len(EOR))
	out = append(out, header, code)
	return append(out, EOR...)
}
