package utils

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// SplitStringIntoCommandAndArguments splits a REPL line into a command, a
// key and a value using shell quoting rules, so keys and values may contain
// spaces when quoted. Words after the key are joined with single spaces to
// form the value.
func SplitStringIntoCommandAndArguments(line string) (cmd, key, value string, err error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", "", "", errors.Wrap(err, "split input")
	}

	if len(words) == 0 {
		return "", "", "", errors.New("empty input")
	}

	cmd = strings.ToLower(words[0])
	if len(words) > 1 {
		key = words[1]
	}
	if len(words) > 2 {
		value = strings.Join(words[2:], " ")
	}

	return cmd, key, value, nil
}
