package obfuscate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// unquoteJS decodes a JavaScript string literal including its quotes. It reports false for
// literals it cannot represent faithfully as UTF-8 (legacy octal escapes, lone surrogates).
func unquoteJS(lit []byte) (string, bool) {
	if len(lit) < 2 || (lit[0] != '"' && lit[0] != '\'') || lit[len(lit)-1] != lit[0] {
		return "", false
	}
	s := string(lit[1 : len(lit)-1])
	if !strings.ContainsRune(s, '\\') {
		return s, utf8.ValidString(s)
	}

	var units []uint16
	flush := func(r rune) { units = utf16.AppendRune(units, r) }

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != '\\' {
			flush(r)
			i += size
			continue
		}
		i++
		if i >= len(s) {
			return "", false
		}
		c, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch c {
		case 'n':
			flush('\n')
		case 'r':
			flush('\r')
		case 't':
			flush('\t')
		case 'b':
			flush('\b')
		case 'f':
			flush('\f')
		case 'v':
			flush('\v')
		case '0':
			if i < len(s) && s[i] >= '0' && s[i] <= '9' {
				return "", false
			}
			flush(0)
		case '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return "", false
		case 'x':
			if i+2 > len(s) {
				return "", false
			}
			v, err := strconv.ParseUint(s[i:i+2], 16, 8)
			if err != nil {
				return "", false
			}
			flush(rune(v))
			i += 2
		case 'u':
			if i < len(s) && s[i] == '{' {
				end := strings.IndexByte(s[i:], '}')
				if end < 0 {
					return "", false
				}
				v, err := strconv.ParseUint(s[i+1:i+end], 16, 32)
				if err != nil || v > utf8.MaxRune {
					return "", false
				}
				flush(rune(v))
				i += end + 1
				continue
			}
			if i+4 > len(s) {
				return "", false
			}
			v, err := strconv.ParseUint(s[i:i+4], 16, 16)
			if err != nil {
				return "", false
			}
			units = append(units, uint16(v))
			i += 4
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case '\n', '\u2028', '\u2029':
			// line continuation
		default:
			flush(c)
		}
	}

	decoded := utf16.Decode(units)
	for _, r := range decoded {
		if r == utf8.RuneError {
			return "", false
		}
	}
	return string(decoded), true
}

// quoteJS renders s as a double-quoted JavaScript string literal. With asciiOnly every
// non-ASCII code point is written as a \u escape.
func quoteJS(s string, asciiOnly bool) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\u2028':
			b.WriteString(`\u2028`)
		case r == '\u2029':
			b.WriteString(`\u2029`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case asciiOnly && r > 0x7f:
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, `\u%04x`, u)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// chunks splits s into pieces of at most n runes.
func chunks(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for len(runes) > n {
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return append(out, string(runes))
}
