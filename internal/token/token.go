// Package token defines the lexical tokens of Susumu.
package token

type Type string

type Token struct {
	Type    Type
	Literal string
	Line    int // 1-based
	Col     int // 1-based
}

const (
	// Special
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"

	// Structural
	NEWLINE Type = "NEWLINE"
	COMMENT Type = "COMMENT"

	// Literals
	NUMBER Type = "NUMBER"
	STRING Type = "STRING"
	IDENT  Type = "IDENT"
	TRUE   Type = "TRUE"
	FALSE  Type = "FALSE"
	NULL   Type = "NULL"

	// Operators
	ARROW_RIGHT Type = "->"
	ARROW_LEFT  Type = "<-"
	MUT_ARROW   Type = "<~"
	PLUS        Type = "+"
	MINUS       Type = "-"
	STAR        Type = "*"
	SLASH       Type = "/"
	ASSIGN      Type = "="
	DOT         Type = "."
	COMMA       Type = ","
	COLON       Type = ":"

	// Delimiters
	LPAREN   Type = "("
	RPAREN   Type = ")"
	LBRACE   Type = "{"
	RBRACE   Type = "}"
	LBRACKET Type = "["
	RBRACKET Type = "]"

	// Keywords
	I        Type = "I"        // if
	EI       Type = "EI"       // else-if
	E        Type = "E"        // else
	FE       Type = "FE"       // foreach
	IN       Type = "IN"
	W        Type = "W"        // while
	RETURN   Type = "RETURN"
	ERROR    Type = "ERROR"
	MATCH    Type = "MATCH"
	SOME     Type = "SOME"
	NONE     Type = "NONE"
	SUCCESS  Type = "SUCCESS"
	VALID    Type = "VALID"
	POSITIVE Type = "POSITIVE"
	NEGATIVE Type = "NEGATIVE"
	ZERO     Type = "ZERO"
	EMPTY    Type = "EMPTY"
	FOUND    Type = "FOUND"
	MUT      Type = "MUT"
)

var keywords = map[string]Type{
	"i":        I,
	"ei":       EI,
	"e":        E,
	"fe":       FE,
	"in":       IN,
	"w":        W,
	"return":   RETURN,
	"error":    ERROR,
	"match":    MATCH,
	"some":     SOME,
	"none":     NONE,
	"success":  SUCCESS,
	"valid":    VALID,
	"positive": POSITIVE,
	"negative": NEGATIVE,
	"zero":     ZERO,
	"empty":    EMPTY,
	"found":    FOUND,
	"mut":      MUT,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
}

// ConditionWords is the set of keywords that may appear in a condition-name
// grammar position (i/ei branches, match arm patterns).
var ConditionWords = map[Type]bool{
	SUCCESS:  true,
	VALID:    true,
	ERROR:    true,
	POSITIVE: true,
	NEGATIVE: true,
	ZERO:     true,
	EMPTY:    true,
	FOUND:    true,
	SOME:     true,
	NONE:     true,
}

func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
