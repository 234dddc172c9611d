// Package cmdline converts between free-form command-line strings and
// argument vectors.
package cmdline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrInvalidArgument marks caller errors detectable before any I/O, such
// as an empty command line or a working directory that does not exist.
var ErrInvalidArgument = errors.New("invalid argument")

// Parse splits a command-line string into argument tokens. Whitespace
// separates tokens and quoted substrings are preserved as single tokens.
func Parse(commandLine string) ([]string, error) {
	if strings.TrimSpace(commandLine) == "" {
		return nil, fmt.Errorf("%w: missing command line", ErrInvalidArgument)
	}

	tokens, err := shellquote.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: missing command line", ErrInvalidArgument)
	}
	return tokens, nil
}

// Render produces a single display string for a command vector, for
// logging and audit only. Double quotes are backslash-escaped and tokens
// containing a space are wrapped in double quotes. Every token, including
// the first, is preceded by a single space. The result is not meant to be
// re-parsed.
func Render(command []string) string {
	var buf strings.Builder
	for _, arg := range command {
		buf.WriteByte(' ')

		var token strings.Builder
		containsSpace := false
		for _, r := range arg {
			if r == '"' {
				token.WriteByte('\\')
			} else if r == ' ' {
				containsSpace = true
			}
			token.WriteRune(r)
		}

		if containsSpace {
			buf.WriteByte('"')
			buf.WriteString(token.String())
			buf.WriteByte('"')
		} else {
			buf.WriteString(token.String())
		}
	}
	return buf.String()
}
