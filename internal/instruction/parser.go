package instruction

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax reports a malformed instruction.
	ErrSyntax = errors.New("instruction syntax error")
	// ErrMissingUniverse reports a missing or empty universe block.
	ErrMissingUniverse = errors.New("missing universe block")
)

// Instruction is a parsed selection instruction.
type Instruction struct {
	Method string
	// Param is the method parameter block, if one was given.
	Param    string
	HasParam bool
	// Universe is the raw contents of the final block.
	Universe string
}

// Parse parses text into an Instruction.
//
// A block directly after the method word is the method parameter. The
// universe is always the block following "from", so
//
//	random_sample #{0.5} from #{{}}
//
// has a parameter and
//
//	whole_universe from #{{}}
//
// does not.
func Parse(text string) (Instruction, error) {
	l := NewLexer(text)

	method := l.NextToken()
	if method.Type != TokenWord {
		return Instruction{}, unexpected(method, "method name")
	}
	inst := Instruction{Method: method.Value}

	tok := l.NextToken()
	if tok.Type == TokenBlock {
		inst.Param = strings.TrimSpace(tok.Value)
		inst.HasParam = true
		tok = l.NextToken()
	}
	if tok.Type != TokenFrom {
		return Instruction{}, unexpected(tok, `"from"`)
	}

	universe := l.NextToken()
	switch universe.Type {
	case TokenBlock:
	case TokenEOF:
		return Instruction{}, ErrMissingUniverse
	default:
		return Instruction{}, unexpected(universe, "universe block")
	}
	inst.Universe = strings.TrimSpace(universe.Value)
	if inst.Universe == "" {
		return Instruction{}, ErrMissingUniverse
	}

	if end := l.NextToken(); end.Type != TokenEOF {
		return Instruction{}, unexpected(end, "end of input")
	}
	return inst, nil
}

func unexpected(tok Token, want string) error {
	if tok.Type == TokenError || tok.Type == TokenEOF {
		return fmt.Errorf("%w: expected %s at offset %d, got %s", ErrSyntax, want, tok.Pos, describe(tok))
	}
	return fmt.Errorf("%w: expected %s at offset %d, got %s %q", ErrSyntax, want, tok.Pos, tok.Type, tok.Value)
}

func describe(tok Token) string {
	if tok.Type == TokenError {
		return tok.Value
	}
	return tok.Type.String()
}
