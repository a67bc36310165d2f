package engine

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/value"
)

// decodeLiteral extracts the payload of term under literal layout l.
// Failures are INVALID_LITERAL.
func decodeLiteral(ref layout.Ref, l *layout.Literal, term rdf.Term) (value.Value, error) {
	if l.Type == layout.LiteralID {
		if !term.IsResource() {
			return nil, newError(ErrCodeInvalidLiteral, ref, "expected an IRI or blank node, got %s", term)
		}
		id := term.ID()
		if l.Pattern != nil && !l.Pattern.Accepts(id) {
			return nil, newError(ErrCodeInvalidLiteral, ref, "identifier %q does not match %s", id, l.Pattern)
		}
		return value.TextString(id), nil
	}

	if !term.IsLiteral() {
		return nil, newError(ErrCodeInvalidLiteral, ref, "expected a literal, got %s", term)
	}
	dt := l.EffectiveDatatype()
	if term.Datatype != dt {
		return nil, newError(ErrCodeInvalidLiteral, ref, "datatype %s, want %s", term.Datatype, dt)
	}
	lex := term.Value
	if space := layout.LexicalSpace(dt); space != nil && !space.Accepts(lex) {
		return nil, newError(ErrCodeInvalidLiteral, ref, "%q is not in the lexical space of %s", lex, dt)
	}
	if l.Pattern != nil && !l.Pattern.Accepts(lex) {
		return nil, newError(ErrCodeInvalidLiteral, ref, "%q does not match %s", lex, l.Pattern)
	}

	switch l.Type {
	case layout.LiteralUnit:
		if lex != l.Const {
			return nil, newError(ErrCodeInvalidLiteral, ref, "unit literal %q, want %q", lex, l.Const)
		}
		return value.Unit{}, nil
	case layout.LiteralBoolean:
		switch lex {
		case "true", "1":
			return value.Boolean(true), nil
		case "false", "0":
			return value.Boolean(false), nil
		}
		return nil, newError(ErrCodeInvalidLiteral, ref, "invalid boolean %q", lex)
	case layout.LiteralNumber:
		n, err := value.ParseNumber(lex)
		if err != nil {
			return nil, newError(ErrCodeInvalidLiteral, ref, "%v", err)
		}
		return n, nil
	case layout.LiteralByteString:
		b, err := decodeBytes(dt, lex)
		if err != nil {
			return nil, newError(ErrCodeInvalidLiteral, ref, "invalid %s %q: %v", dt, lex, err)
		}
		return b, nil
	default:
		return value.TextString(lex), nil
	}
}

func decodeBytes(dt, lex string) (value.ByteString, error) {
	switch dt {
	case rdf.XSDHexBinary:
		return hex.DecodeString(lex)
	case rdf.XSDBase64Binary:
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(lex, " ", ""))
	default:
		return value.ByteString(lex), nil
	}
}

func encodeBytes(dt string, b value.ByteString) string {
	switch dt {
	case rdf.XSDHexBinary:
		// Canonical hexBinary is upper case.
		return strings.ToUpper(hex.EncodeToString(b))
	case rdf.XSDBase64Binary:
		return base64.StdEncoding.EncodeToString(b)
	default:
		return string(b)
	}
}

// encodeLiteral renders v as the term literal layout l produces.
// Failures are INVALID_VALUE: the value does not fit the layout.
func encodeLiteral(ref layout.Ref, l *layout.Literal, v value.Value) (rdf.Term, error) {
	if l.Type == layout.LiteralID {
		s, ok := v.(value.TextString)
		if !ok || s == "" {
			return rdf.Term{}, newError(ErrCodeInvalidValue, ref, "identifier literal needs a non-empty text value, got %s", kindName(v))
		}
		id := string(s)
		if l.Pattern != nil && !l.Pattern.Accepts(id) {
			return rdf.Term{}, newError(ErrCodeInvalidValue, ref, "identifier %q does not match %s", id, l.Pattern)
		}
		term, err := rdf.ParseID(id)
		if err != nil {
			return rdf.Term{}, newError(ErrCodeInvalidValue, ref, "%v", err)
		}
		return term, nil
	}

	dt := l.EffectiveDatatype()
	lex, err := lexicalForm(l, dt, v)
	if err != nil {
		return rdf.Term{}, &EvalError{Code: ErrCodeInvalidValue, Layout: ref, Message: err.Error()}
	}
	if dt == rdf.RDFLangString {
		return rdf.Term{}, newError(ErrCodeInvalidValue, ref, "cannot produce a language-tagged string without a language")
	}
	if space := layout.LexicalSpace(dt); space != nil && !space.Accepts(lex) {
		return rdf.Term{}, newError(ErrCodeInvalidValue, ref, "%q is not in the lexical space of %s", lex, dt)
	}
	if l.Pattern != nil && !l.Pattern.Accepts(lex) {
		return rdf.Term{}, newError(ErrCodeInvalidValue, ref, "%q does not match %s", lex, l.Pattern)
	}
	return rdf.Literal(lex, dt), nil
}

// lexicalForm renders the payload v of a data literal in datatype dt.
func lexicalForm(l *layout.Literal, dt string, v value.Value) (string, error) {
	switch l.Type {
	case layout.LiteralUnit:
		if _, ok := v.(value.Unit); !ok {
			return "", fmt.Errorf("expected unit, got %s", kindName(v))
		}
		return l.Const, nil
	case layout.LiteralBoolean:
		b, ok := v.(value.Boolean)
		if !ok {
			return "", fmt.Errorf("expected boolean, got %s", kindName(v))
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case layout.LiteralNumber:
		n, ok := v.(value.Number)
		if !ok {
			return "", fmt.Errorf("expected number, got %s", kindName(v))
		}
		return numberLexical(n, dt)
	case layout.LiteralByteString:
		switch b := v.(type) {
		case value.ByteString:
			return encodeBytes(dt, b), nil
		case value.TextString:
			// JSON has no byte strings; accept the datatype's text encoding.
			if _, err := decodeBytes(dt, string(b)); err != nil {
				return "", fmt.Errorf("invalid %s text %q: %w", dt, b, err)
			}
			return string(b), nil
		}
		return "", fmt.Errorf("expected bytes, got %s", kindName(v))
	default:
		s, ok := v.(value.TextString)
		if !ok {
			return "", fmt.Errorf("expected text, got %s", kindName(v))
		}
		return string(s), nil
	}
}

// numberLexical renders n in datatype dt. Integer datatypes need an
// integral value; only double and float admit INF and NaN.
func numberLexical(n value.Number, dt string) (string, error) {
	switch dt {
	case rdf.XSDInteger, rdf.XSDLong, rdf.XSDInt:
		s, ok := n.IntegerString()
		if !ok {
			return "", fmt.Errorf("%s is not an integer", n)
		}
		return s, nil
	case rdf.XSDDouble, rdf.XSDFloat:
		return n.String(), nil
	default:
		if !n.IsFinite() {
			return "", fmt.Errorf("%s has no %s form", n, dt)
		}
		return n.String(), nil
	}
}

func kindName(v value.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}

// sample describes v to the serialization discriminants.
func sample(v value.Value) layout.Sample {
	switch v := v.(type) {
	case value.Unit:
		return layout.Sample{Kind: layout.ShapeUnit}
	case value.Boolean:
		return layout.Sample{Kind: layout.ShapeBoolean, Lexical: func(string) (string, bool) {
			if v {
				return "true", true
			}
			return "false", true
		}}
	case value.Number:
		return layout.Sample{Kind: layout.ShapeNumber, Lexical: func(dt string) (string, bool) {
			s, err := numberLexical(v, dt)
			return s, err == nil
		}}
	case value.ByteString:
		return layout.Sample{Kind: layout.ShapeBytes}
	case value.TextString:
		return layout.Sample{Kind: layout.ShapeText, Lexical: func(string) (string, bool) {
			return string(v), true
		}}
	case value.Record:
		return layout.Sample{Kind: layout.ShapeRecord, Keys: v.SortedKeys()}
	case value.List:
		return layout.Sample{Kind: layout.ShapeList}
	default:
		return layout.Sample{}
	}
}
