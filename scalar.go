package quill

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================
// Formatting
// ============================================================

// FormatScalar returns the canonical text of a scalar value.
//
//	Null   → ~
//	Bool   → true / false
//	Int    → decimal, sign only when negative
//	Float  → shortest round-trip decimal, always with a '.' or exponent
//	String → plain when unambiguous, otherwise double-quoted
func FormatScalar(v Value) (string, error) {
	switch v.kind {
	case KindNull:
		return "~", nil
	case KindBool:
		return formatBool(v.boolVal), nil
	case KindInt:
		return strconv.FormatInt(v.intVal, 10), nil
	case KindFloat:
		return formatFloat(v.floatVal), nil
	case KindString:
		return formatString(v.strVal), nil
	}
	return "", fmt.Errorf("quill: cannot format %s as a scalar: %w", v.kind, ErrStructureMismatch)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatFloat uses positional notation for 1e-4 <= |f| < 1e21 and exponent
// notation outside it. Integral results gain ".0" so they resolve as floats.
func formatFloat(f float64) string {
	return formatFloatBits(f, 64)
}

// formatFloatBits formats f as the shortest text that parses back to the
// same value at the given precision.
func formatFloatBits(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, bits)
	}

	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatString returns s plain if safe, otherwise quoted.
// Invalid UTF-8 is replaced with U+FFFD.
func formatString(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	if isPlainSafe(s) {
		return s
	}
	return Quote(s)
}

// isPlainSafe reports whether s can be written without quotes and read
// back as the same string.
func isPlainSafe(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == ' ' || s[len(s)-1] == ' ' {
		return false
	}

	switch s[0] {
	case '[', ']', '{', '}', ',', '#', '&', '*', '!', '|', '>', '\'', '"', '%', '@', '`':
		return false
	case '-', '?', ':':
		if len(s) == 1 || s[1] == ' ' {
			return false
		}
	}

	if strings.HasPrefix(s, "---") || strings.HasPrefix(s, "...") {
		return false
	}
	if strings.Contains(s, ": ") || strings.Contains(s, " #") || strings.HasSuffix(s, ":") {
		return false
	}

	for _, r := range s {
		if r != ' ' && !unicode.IsPrint(r) {
			return false
		}
	}

	v, err := resolvePlain(s)
	return err == nil && v.kind == KindString && v.strVal == s
}

// Quote returns s as a double-quoted scalar with escapes applied.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case 0:
			b.WriteString(`\0`)
		case '\a':
			b.WriteString(`\a`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\v':
			b.WriteString(`\v`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1b:
			b.WriteString(`\e`)
		case 0x85:
			b.WriteString(`\N`)
		case 0x2028:
			b.WriteString(`\L`)
		case 0x2029:
			b.WriteString(`\P`)
		case 0xfeff:
			b.WriteString(`\uFEFF`)
		default:
			if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
				fmt.Fprintf(&b, `\x%02X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}

	b.WriteByte('"')
	return b.String()
}

// ============================================================
// Resolution
// ============================================================

// ResolveScalar maps a scalar token to a Value.
//
// A double-quoted token is always a String. A bare token resolves, in
// order: "~" or empty → Null, "true"/"false" → Bool, integer → Int,
// float → Float, anything else → String.
func ResolveScalar(token string) (Value, error) {
	if token != "" && token[0] == '"' {
		s, err := Unquote(token)
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil
	}
	return resolvePlain(token)
}

func resolvePlain(token string) (Value, error) {
	switch token {
	case "", "~":
		return Null(), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	if isIntToken(token) {
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return Value{}, &DecodeError{Err: ErrNumericRange, Detail: fmt.Sprintf("integer %s overflows int64", token)}
		}
		return Int(n), nil
	}

	if f, ok, inRange := parseFloatToken(token, 64); ok {
		if !inRange {
			return Value{}, &DecodeError{Err: ErrNumericRange, Detail: fmt.Sprintf("float %s out of range", token)}
		}
		return Float(f), nil
	}

	return Str(token), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIntToken matches [-+]?[0-9]+.
func isIntToken(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// isFloatSyntax matches [-+]?(\.[0-9]+|[0-9]+(\.[0-9]*)?)([eE][-+]?[0-9]+)?.
func isFloatSyntax(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// parseFloatToken parses a float-looking token at bitSize. ok is false when s
// is not float syntax. inRange is false when s is well formed but overflows,
// or rounds to zero from a non-zero mantissa.
func parseFloatToken(s string, bitSize int) (f float64, ok, inRange bool) {
	switch s {
	case ".inf", ".Inf", ".INF", "+.inf", "+.Inf", "+.INF":
		return math.Inf(1), true, true
	case "-.inf", "-.Inf", "-.INF":
		return math.Inf(-1), true, true
	case ".nan", ".NaN", ".NAN":
		return math.NaN(), true, true
	}
	if !isFloatSyntax(s) {
		return 0, false, false
	}
	f, err := strconv.ParseFloat(s, bitSize)
	if err != nil || (f == 0 && hasNonZeroMantissa(s)) {
		return 0, true, false
	}
	return f, true, true
}

// hasNonZeroMantissa reports whether a float token has a non-zero digit
// before its exponent.
func hasNonZeroMantissa(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == 'e' || c == 'E':
			return false
		case c >= '1' && c <= '9':
			return true
		}
	}
	return false
}

// ============================================================
// Unquoting
// ============================================================

// Unquote decodes a double-quoted scalar token, including its quotes.
func Unquote(token string) (string, error) {
	if len(token) < 2 || token[0] != '"' || token[len(token)-1] != '"' {
		return "", scalarError("unterminated quoted scalar %s", token)
	}
	body := token[1 : len(token)-1]

	var b strings.Builder
	b.Grow(len(body))

	for i := 0; i < len(body); {
		c := body[i]
		if c == '"' {
			return "", scalarError("unescaped quote at offset %d", i+1)
		}
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}

		if i+1 >= len(body) {
			return "", scalarError("dangling backslash")
		}
		esc := body[i+1]
		i += 2

		switch esc {
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 't', '\t':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case 'r':
			b.WriteByte('\r')
		case 'e':
			b.WriteByte(0x1b)
		case ' ', '"', '/', '\\':
			b.WriteByte(esc)
		case 'N':
			b.WriteRune(0x85)
		case '_':
			b.WriteRune(0xa0)
		case 'L':
			b.WriteRune(0x2028)
		case 'P':
			b.WriteRune(0x2029)
		case 'x', 'u', 'U':
			width := 2
			switch esc {
			case 'u':
				width = 4
			case 'U':
				width = 8
			}
			if i+width > len(body) {
				return "", scalarError("short \\%c escape", esc)
			}
			code, err := strconv.ParseUint(body[i:i+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", scalarError("invalid \\%c escape %q", esc, body[i:i+width])
			}
			b.WriteRune(rune(code))
			i += width
		default:
			return "", scalarError("invalid escape \\%c", esc)
		}
	}

	return b.String(), nil
}

func scalarError(format string, args ...any) error {
	return &DecodeError{Err: ErrScalarSyntax, Detail: fmt.Sprintf(format, args...)}
}
