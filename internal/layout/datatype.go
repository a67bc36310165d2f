package layout

import (
	"sync"

	"github.com/roach88/distill/internal/automaton"
	"github.com/roach88/distill/internal/rdf"
)

// lexicalSpaces are the XSD lexical spaces checked in addition to any
// declared pattern.
var lexicalSpaces = map[string]string{
	rdf.XSDBoolean:      `true|false|1|0`,
	rdf.XSDInteger:      `[+-]?[0-9]+`,
	rdf.XSDLong:         `[+-]?[0-9]+`,
	rdf.XSDInt:          `[+-]?[0-9]+`,
	rdf.XSDDecimal:      `[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)`,
	rdf.XSDDouble:       `(\+|-)?([0-9]+(\.[0-9]*)?|\.[0-9]+)([Ee](\+|-)?[0-9]+)?|(\+|-)?INF|NaN`,
	rdf.XSDFloat:        `(\+|-)?([0-9]+(\.[0-9]*)?|\.[0-9]+)([Ee](\+|-)?[0-9]+)?|(\+|-)?INF|NaN`,
	rdf.XSDHexBinary:    `([0-9a-fA-F]{2})*`,
	rdf.XSDBase64Binary: `[A-Za-z0-9+/= ]*`,
}

var (
	lexicalOnce     sync.Once
	lexicalAutomata map[string]*automaton.Automaton
)

// LexicalSpace returns the automaton of a datatype's lexical space, or
// nil when the datatype has none registered.
func LexicalSpace(datatype string) *automaton.Automaton {
	lexicalOnce.Do(func() {
		lexicalAutomata = make(map[string]*automaton.Automaton, len(lexicalSpaces))
		for dt, expr := range lexicalSpaces {
			lexicalAutomata[dt] = automaton.MustCompile(expr)
		}
	})
	return lexicalAutomata[datatype]
}

// DefaultDatatype returns the datatype a literal type uses when none is
// declared.
func DefaultDatatype(t LiteralType) string {
	switch t {
	case LiteralBoolean:
		return rdf.XSDBoolean
	case LiteralNumber:
		return rdf.XSDDecimal
	case LiteralByteString:
		return rdf.XSDBase64Binary
	case LiteralID:
		return ""
	default:
		return rdf.XSDString
	}
}
