// Package instruction tokenizes and parses selection instructions of the form
//
//	method [#{param}] from #{universe}
//
// for example
//
//	whole_universe from #{{"specific_accounts":["acct-1","acct-2"]}}
//	random_sample #{0.33} from #{{"responsible_client_id":"client-7"}}
//
// Block contents are returned verbatim. Interpreting the parameter and the
// universe JSON is left to the caller.
package instruction

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a token.
type TokenType int

const (
	TokenWord  TokenType = iota // bare word: method name or keyword
	TokenFrom                   // the "from" keyword
	TokenBlock                  // #{...}, Value holds the contents
	TokenEOF
	TokenError
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "word"
	case TokenFrom:
		return "from"
	case TokenBlock:
		return "block"
	case TokenEOF:
		return "end of input"
	default:
		return "error"
	}
}

// Token is a lexical token. Pos is the byte offset where it starts.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Lexer tokenizes instruction text.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.pos

	switch ch := l.peek(); {
	case ch == 0:
		return Token{Type: TokenEOF, Pos: start}
	case ch == '#':
		return l.readBlock()
	case isWordChar(ch):
		for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
			l.pos++
		}
		word := l.input[start:l.pos]
		if strings.EqualFold(word, "from") {
			return Token{Type: TokenFrom, Value: word, Pos: start}
		}
		return Token{Type: TokenWord, Value: word, Pos: start}
	default:
		l.pos++
		return Token{Type: TokenError, Value: string(ch), Pos: start}
	}
}

// readBlock scans #{...}. Braces are balanced outside JSON string literals,
// so the universe object may itself contain braces.
func (l *Lexer) readBlock() Token {
	start := l.pos
	if !strings.HasPrefix(l.input[l.pos:], "#{") {
		l.pos++
		return Token{Type: TokenError, Value: "#", Pos: start}
	}
	l.pos += 2
	body := l.pos

	depth := 1
	inString := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		l.pos++
		if inString {
			switch ch {
			case '\\':
				l.pos++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return Token{Type: TokenBlock, Value: l.input[body : l.pos-1], Pos: start}
			}
		}
	}

	l.pos = len(l.input)
	return Token{Type: TokenError, Value: "unterminated block", Pos: start}
}

func isWordChar(ch byte) bool {
	return ch == '_' || ch == '-' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens in input, ending with TokenEOF or the first
// TokenError.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}
