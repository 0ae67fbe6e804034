// Package base32 implements the RFC 4648 Base32 codec used for OTP shared
// secrets, with a lenient mode for user-supplied input (manual entry, QR
// payloads) and a strict mode for canonical machine-generated strings.
//
// Decode failure is reported as ok == false rather than an error: malformed
// secrets are an expected, frequent input condition and callers treat them
// as a recoverable validation failure.
package base32

import "strings"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// maxInputLength bounds decode input so an adversarial caller cannot feed
// arbitrarily large strings into the bit accumulator.
const maxInputLength = 10000

// Encode returns the RFC 4648 Base32 encoding of data, padded with '=' to a
// multiple of eight characters. Empty input encodes to the empty string.
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow((len(data)*8/5 + 8) &^ 7)

	var buf uint64
	bits := 0
	for _, b := range data {
		buf = buf<<8 | uint64(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(alphabet[(buf>>uint(bits))&0x1f])
		}
	}
	if bits > 0 {
		// Final partial group, left-padded with zero bits.
		sb.WriteByte(alphabet[(buf<<uint(5-bits))&0x1f])
	}
	for sb.Len()%8 != 0 {
		sb.WriteByte('=')
	}
	return sb.String()
}

// Decode decodes a Base32 string leniently: surrounding whitespace is
// trimmed, lowercase input is accepted, and unpadded input is allowed as
// long as the padding rules of RFC 4648 are not actively violated.
func Decode(input string) ([]byte, bool) {
	return decode(input, false)
}

// DecodeStrict decodes a Base32 string and additionally requires the raw,
// un-trimmed input length to be a non-zero multiple of eight, rejecting
// truncated or unpadded strings.
func DecodeStrict(input string) ([]byte, bool) {
	return decode(input, true)
}

func decode(input string, strict bool) ([]byte, bool) {
	if len(input) >= maxInputLength {
		return nil, false
	}
	if strict && len(input)%8 != 0 {
		return nil, false
	}

	s := strings.ToUpper(strings.TrimSpace(input))

	if i := strings.IndexByte(s, '='); i >= 0 {
		// Padding may only appear as a trailing run.
		for j := i; j < len(s); j++ {
			if s[j] != '=' {
				return nil, false
			}
		}
		if len(s)%8 != 0 {
			return nil, false
		}
		// RFC 4648 Base32 only ever produces these padding run lengths.
		switch len(s) - i {
		case 1, 3, 4, 6:
		default:
			return nil, false
		}
		s = s[:i]
	}

	if s == "" {
		if strict {
			return nil, false
		}
		return []byte{}, true
	}

	out := make([]byte, 0, len(s)*5/8)
	var buf uint64
	bits := 0
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(alphabet, s[i])
		if v < 0 {
			return nil, false
		}
		buf = buf<<5 | uint64(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>uint(bits)))
		}
	}
	return out, true
}
