// Package security gates terminal execution and filesystem access for
// autonomous runs. This file contains the shell-free command parser.

package security

import (
	"fmt"
	"strings"
)

// ParsedCommand is a command line split into program and argument vector.
// Commands are always spawned directly from this vector, never through a
// shell, which removes the entire shell-metacharacter injection class.
type ParsedCommand struct {
	Program string
	Args    []string
}

// Tokens returns the program followed by its arguments.
func (p ParsedCommand) Tokens() []string {
	return append([]string{p.Program}, p.Args...)
}

// SplitCommand parses a command string into program and arguments without
// any shell semantics. Single and double quotes group words, backslash
// escapes the next character, and shell operators are rejected outright:
// there is no shell downstream to interpret them, and accepting them
// would only mislead the model.
func SplitCommand(command string) (ParsedCommand, error) {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false
	sawToken := false

	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			sawToken = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			sawToken = true
		case ch == '\\' && !inSingle:
			if i+1 >= len(runes) {
				return ParsedCommand{}, fmt.Errorf("invalid escape at end of command")
			}
			i++
			current.WriteRune(runes[i])
			sawToken = true
		case (ch == ' ' || ch == '\t' || ch == '\n') && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		case (ch == '|' || ch == '&' || ch == ';' || ch == '<' || ch == '>') && !inSingle && !inDouble:
			return ParsedCommand{}, fmt.Errorf("shell operator %q is not allowed; commands run without a shell", ch)
		case ch == '`' && !inSingle && !inDouble:
			return ParsedCommand{}, fmt.Errorf("command substitution is not allowed")
		case ch == '$' && !inSingle && !inDouble:
			if i+1 < len(runes) && runes[i+1] == '(' {
				return ParsedCommand{}, fmt.Errorf("command substitution is not allowed")
			}
			current.WriteRune(ch)
			sawToken = true
		default:
			current.WriteRune(ch)
			sawToken = true
		}
	}

	if inSingle || inDouble {
		return ParsedCommand{}, fmt.Errorf("unterminated quoted string in command")
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	if len(tokens) == 0 || !sawToken {
		return ParsedCommand{}, fmt.Errorf("empty command")
	}

	program := tokens[0]
	if strings.Contains(program, "=") && !strings.Contains(program, "/") && !strings.HasPrefix(program, ".") {
		return ParsedCommand{}, fmt.Errorf("environment assignments are not supported in commands")
	}

	return ParsedCommand{Program: program, Args: tokens[1:]}, nil
}
