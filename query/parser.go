package query

import (
	"math"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// predicateAST is the grammar of a where clause:
//
//	term ( AND term )*
//	term    = operand op operand
//	operand = field | integer | 'string'
type predicateAST struct {
	Terms []*termAST `parser:"@@ ( \"AND\" @@ )*"`
}

type termAST struct {
	Left  *operandAST `parser:"@@"`
	Op    string      `parser:"@Op"`
	Right *operandAST `parser:"@@"`
}

type operandAST struct {
	Int   *int64  `parser:"  @Int"`
	Str   *string `parser:"| @String"`
	Field *string `parser:"| @Ident"`
}

var predicateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\bAND\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?`},
	{Name: "Int", Pattern: `-?\d+`},
	{Name: "String", Pattern: `'[^']*'`},
	{Name: "Op", Pattern: `<=|>=|!=|<>|=|<|>`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var predicateParser = participle.MustBuild[predicateAST](
	participle.Lexer(predicateLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
)

// ParsePredicate parses a where clause such as
//
//	age >= 30 AND name = 'bob'
func ParsePredicate(s string) (*Predicate, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty predicate")
	}
	ast, err := predicateParser.ParseString("", s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse predicate %q", s)
	}

	pred := NewPredicate()
	for _, t := range ast.Terms {
		lhs, err := t.Left.expression()
		if err != nil {
			return nil, err
		}
		rhs, err := t.Right.expression()
		if err != nil {
			return nil, err
		}
		op, err := ParseOp(t.Op)
		if err != nil {
			return nil, err
		}
		pred.terms = append(pred.terms, NewTerm(lhs, op, rhs))
	}
	return pred, nil
}

func (o *operandAST) expression() (Expression, error) {
	switch {
	case o.Int != nil:
		if *o.Int < math.MinInt32 || *o.Int > math.MaxInt32 {
			return Expression{}, errors.Errorf("integer %d out of range", *o.Int)
		}
		return NewExpressionWithValue(int32(*o.Int)), nil
	case o.Str != nil:
		return NewExpressionWithValue(strings.Trim(*o.Str, "'")), nil
	default:
		return NewExpressionWithFieldName(*o.Field), nil
	}
}
