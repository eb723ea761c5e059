package klv

// Field is one tag-length-value record inside a packet payload. Value
// aliases the payload buffer; copy it if it must outlive the payload.
type Field struct {
	Tag   byte
	Value []byte
}

// Fields splits one packet payload into its tag-length-value records.
// Tags are single-byte; the multi-byte BER-OID tag form is not handled
// and reads as an ordinary byte. A record that would run past the end of
// the payload is dropped and splitting stops there; truncated reports
// whether that happened. Fields never reads beyond the payload.
func Fields(payload []byte) (fields []Field, truncated bool) {
	i := 0
	for i < len(payload) {
		tag := payload[i]
		i++
		length, consumed, err := DecodeLength(payload[i:])
		if err != nil {
			return fields, true
		}
		i += consumed
		if length > len(payload)-i {
			return fields, true
		}
		fields = append(fields, Field{Tag: tag, Value: payload[i : i+length]})
		i += length
	}
	return fields, false
}
