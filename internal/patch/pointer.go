package patch

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	escaper   = strings.NewReplacer("~", "~0", "/", "~1")
	unescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Pointer joins reference tokens into a JSON pointer, escaping ~ and /.
func Pointer(tokens ...string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(escaper.Replace(t))
	}
	return b.String()
}

// ParsePointer splits a JSON pointer into unescaped reference tokens. The
// empty pointer addresses the whole document and yields no tokens.
func ParsePointer(p string) ([]string, error) {
	if p == "" {
		return nil, nil
	}
	if p[0] != '/' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointer, p)
	}
	parts := strings.Split(p[1:], "/")
	for i, part := range parts {
		for j := 0; j < len(part); j++ {
			if part[j] == '~' && (j+1 == len(part) || (part[j+1] != '0' && part[j+1] != '1')) {
				return nil, fmt.Errorf("%w: bad escape in %q", ErrInvalidPointer, p)
			}
		}
		parts[i] = unescaper.Replace(part)
	}
	return parts, nil
}

// arrayIndex parses an array reference token. end allows the "-" token and
// indexes up to n inclusive, as add does.
func arrayIndex(tok string, n int, end bool) (int, error) {
	if tok == "-" {
		if end {
			return n, nil
		}
		return 0, fmt.Errorf("%w: - not allowed here", ErrIndexOutOfRange)
	}
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPointer, tok)
	}
	i, err := strconv.Atoi(tok)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPointer, tok)
	}
	limit := n - 1
	if end {
		limit = n
	}
	if i > limit {
		return 0, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	return i, nil
}

// isPrefix reports whether pointer a addresses an ancestor of b.
func isPrefix(a, b string) bool {
	return strings.HasPrefix(b, a+"/")
}
