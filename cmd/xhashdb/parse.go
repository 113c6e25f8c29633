// parse.go -- line lexer/parser for the command language: GET, PUT, DELETE,
// BEGIN, COMMIT, ROLLBACK, EXIT. Values may be bare identifiers or
// double-quoted strings with \", \n, \t, \\ escapes.
//
// Scans whitespace-separated tokens char by char, with a dedicated
// quoted-literal sub-scanner, rather than reaching for a regex or
// parser-combinator library.

package main

import (
	"fmt"
	"strings"

	"github.com/opencoff/xhashdb"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenLiteral
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	runes := []rune(input)
	var tokens []token
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '"':
			tok, next, err := lexLiteral(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		default:
			tok, next, err := lexIdent(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		}
	}
	return tokens, nil
}

func lexIdent(runes []rune, start int) (token, int, error) {
	i := start
	var b strings.Builder
	for i < len(runes) {
		c := runes[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		b.WriteRune(c)
		i++
	}
	return token{kind: tokenIdent, text: b.String()}, i, nil
}

func lexLiteral(runes []rune, start int) (token, int, error) {
	i := start + 1 // skip opening quote
	var b strings.Builder
	escaped := false
	for i < len(runes) {
		c := runes[i]
		i++
		if escaped {
			switch c {
			case '"', 'n', 't', '\\':
				if c == 'n' {
					b.WriteRune('\n')
				} else if c == 't' {
					b.WriteRune('\t')
				} else {
					b.WriteRune(c)
				}
				escaped = false
			default:
				return token{}, 0, fmt.Errorf("invalid escaped character: %c", c)
			}
			continue
		}
		switch c {
		case '"':
			return token{kind: tokenLiteral, text: b.String()}, i, nil
		case '\\':
			escaped = true
		default:
			b.WriteRune(c)
		}
	}
	return token{}, 0, fmt.Errorf("unterminated string literal")
}

// parseLine lexes and parses one input line into a StorageCommand.
func parseLine(input string) (xhashdb.StorageCommand, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	keyword := strings.ToUpper(tokens[0].text)
	rest := tokens[1:]

	switch keyword {
	case "GET":
		key, err := expectIdent(rest, "GET")
		if err != nil {
			return nil, err
		}
		return xhashdb.GetCommand{Key: key}, nil

	case "PUT":
		if len(rest) < 2 {
			return nil, fmt.Errorf("PUT requires a key and a value")
		}
		if rest[0].kind != tokenIdent {
			return nil, fmt.Errorf("expected identifier after PUT")
		}
		if len(rest) > 2 {
			return nil, fmt.Errorf("unexpected token after value")
		}
		return xhashdb.PutCommand{Key: rest[0].text, Value: []byte(rest[1].text)}, nil

	case "DELETE":
		key, err := expectIdent(rest, "DELETE")
		if err != nil {
			return nil, err
		}
		return xhashdb.DeleteCommand{Key: key}, nil

	case "BEGIN":
		return xhashdb.BeginCommand{}, nil

	case "COMMIT":
		return xhashdb.CommitCommand{}, nil

	case "ROLLBACK":
		return xhashdb.RollbackCommand{}, nil

	case "EXIT":
		return xhashdb.ExitCommand{}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", tokens[0].text)
	}
}

func expectIdent(rest []token, keyword string) (string, error) {
	if len(rest) == 0 {
		return "", fmt.Errorf("expected identifier after %s", keyword)
	}
	if len(rest) > 1 {
		return "", fmt.Errorf("unexpected token after identifier")
	}
	if rest[0].kind != tokenIdent {
		return "", fmt.Errorf("expected identifier after %s", keyword)
	}
	return rest[0].text, nil
}
