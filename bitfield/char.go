package bitfield

import (
	"strings"

	"github.com/go-asterix/asterix/diag"
)

// icao6Table maps a 6-bit code to its IA-5 subset character, per the
// ASTERIX ICAO character encoding (used for callsigns and aircraft
// identification). Index 0 is reserved; codes without a defined character
// map to '?'.
var icao6Table = [64]byte{
	'?', 'A', 'B', 'C', 'D', 'E', 'F', 'G',
	'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W',
	'X', 'Y', 'Z', '?', '?', '?', '?', '?',
	' ', '?', '?', '?', '?', '?', '?', '?',
	'?', '?', '?', '?', '?', '?', '?', '?',
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', '?', '?', '?', '?', '?', '?',
}

// decodeASCII6 splits raw's width bits into 6-bit groups (most significant
// group first) and decodes each via icao6Table.
func decodeASCII6(raw uint64, width int, ctx Context) string {
	n := width / 6
	var sb strings.Builder
	for i := 0; i < n; i++ {
		shift := uint(width - (i+1)*6)
		code := (raw >> shift) & 0x3F
		ch := icao6Table[code]
		if ch == '?' && code != 0 && ctx.Log != nil {
			ctx.Log.Add(diag.New(diag.CharacterDecodeWarning, diag.Recoverable,
				"invalid ascii-6 code %d", code).WithItem(ctx.Category, ctx.Item))
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// decodeASCII8 splits raw's width bits into 8-bit groups and renders them
// as raw characters.
func decodeASCII8(raw uint64, width int) string {
	n := width / 8
	var sb strings.Builder
	for i := 0; i < n; i++ {
		shift := uint(width - (i+1)*8)
		ch := byte((raw >> shift) & 0xFF)
		sb.WriteByte(ch)
	}
	return sb.String()
}
