package instruction

import (
	"errors"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize(`random_sample #{0.5} from #{{"a":"}{"}}`)
	expected := []Token{
		{Type: TokenWord, Value: "random_sample"},
		{Type: TokenBlock, Value: "0.5"},
		{Type: TokenFrom, Value: "from"},
		{Type: TokenBlock, Value: `{"a":"}{"}`},
		{Type: TokenEOF},
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(expected), len(tokens), tokens)
	}
	for i, tok := range tokens {
		if tok.Type != expected[i].Type {
			t.Errorf("token %d: expected type %v, got %v", i, expected[i].Type, tok.Type)
		}
		if tok.Value != expected[i].Value {
			t.Errorf("token %d: expected value %q, got %q", i, expected[i].Value, tok.Value)
		}
	}
}

func TestTokenize_EscapedQuote(t *testing.T) {
	tokens := Tokenize(`#{{"a":"x\"}"}}`)
	if tokens[0].Type != TokenBlock {
		t.Fatalf("expected block, got %v", tokens[0].Type)
	}
	if tokens[0].Value != `{"a":"x\"}"}` {
		t.Errorf("unexpected block contents %q", tokens[0].Value)
	}
}

func TestTokenize_Unterminated(t *testing.T) {
	tokens := Tokenize(`whole_universe from #{{"a":1}`)
	last := tokens[len(tokens)-1]
	if last.Type != TokenError {
		t.Fatalf("expected error token, got %v", last.Type)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Instruction
	}{
		{
			name:  "whole universe",
			input: `whole_universe from #{{"specific_accounts":["acct-1","acct-2"]}}`,
			expected: Instruction{
				Method:   "whole_universe",
				Universe: `{"specific_accounts":["acct-1","acct-2"]}`,
			},
		},
		{
			name:  "random sample with parameter",
			input: `random_sample #{0.33} from #{{"client_id":"c1"}}`,
			expected: Instruction{
				Method:   "random_sample",
				Param:    "0.33",
				HasParam: true,
				Universe: `{"client_id":"c1"}`,
			},
		},
		{
			name:  "uppercase from and extra whitespace",
			input: "  match_other   FROM\n#{ {\"a\":1} }  ",
			expected: Instruction{
				Method:   "match_other",
				Universe: `{"a":1}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestParse_PositionalParameter(t *testing.T) {
	// The first block is the parameter only when "from" has not been seen.
	withParam, err := Parse(`whole_universe #{x} from #{{"a":1}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !withParam.HasParam || withParam.Param != "x" {
		t.Errorf("expected parameter x, got %+v", withParam)
	}

	without, err := Parse(`random_sample from #{{"a":1}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if without.HasParam {
		t.Errorf("expected no parameter, got %q", without.Param)
	}
	if without.Universe != `{"a":1}` {
		t.Errorf("unexpected universe %q", without.Universe)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrSyntax},
		{"no from", `whole_universe #{{"a":1}}`, ErrSyntax},
		{"missing universe", "whole_universe from", ErrMissingUniverse},
		{"empty universe", "whole_universe from #{ }", ErrMissingUniverse},
		{"trailing tokens", `whole_universe from #{{}} extra`, ErrSyntax},
		{"unterminated", `whole_universe from #{{"a":1}`, ErrSyntax},
		{"stray character", `whole_universe from ${}`, ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
