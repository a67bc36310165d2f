package compiler

import (
	"fmt"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownReference   = "E101" // value format names an unregistered layout
	ErrVariableOutOfScope = "E102" // pattern variable beyond the scope width
	ErrInputArity         = "E103" // value format input count differs from the target's
	ErrInvalidLiteral     = "E104" // literal datatype, const or input count is invalid
	ErrDuplicateVariant   = "E105" // sum variant name used twice
	ErrEmptySum           = "E106" // sum without variants
)

// ValidationError represents a layout validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks every layout of reg against the rules the engine relies
// on. Returns all errors found (does not fail-fast), in reference order.
func Validate(reg *layout.Registry) []ValidationError {
	v := &validator{reg: reg}
	for _, ref := range reg.Refs() {
		l, _ := reg.Get(ref)
		v.layout(string(ref), l)
	}
	return v.errs
}

type validator struct {
	reg  *layout.Registry
	errs []ValidationError
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
}

func (v *validator) layout(path string, l layout.Layout) {
	hdr := l.Signature()
	width := hdr.Width()
	v.dataset(path+".dataset", hdr.Dataset, width)

	switch l := l.(type) {
	case *layout.Literal:
		v.literal(path, l)
	case *layout.Product:
		for _, name := range l.FieldNames() {
			f := l.Fields[name]
			fp := fmt.Sprintf("%s.fields.%s", path, name)
			v.scope(fp, f.Value, f.Dataset, width+f.Intro)
		}
	case *layout.UnorderedList:
		v.scope(path+".item", l.Item.Value, l.Item.Dataset, width+l.Item.Intro)
	case *layout.OrderedList:
		v.pattern(path+".head", l.Head, width)
		v.pattern(path+".tail", l.Tail, width)
		v.scope(path+".node", l.Node.Value, l.Node.Dataset, width+2+l.Node.Intro)
	case *layout.SizedList:
		for i, item := range l.Items {
			v.scope(fmt.Sprintf("%s.items[%d]", path, i), item.Value, item.Dataset, width+item.Intro)
		}
	case *layout.Sum:
		v.sum(path, l, width)
	}
}

// scope checks a nested value format and dataset against a scope of width
// variables.
func (v *validator) scope(path string, vf layout.ValueFormat, ds pattern.Dataset, width uint32) {
	v.dataset(path+".dataset", ds, width)

	for i, p := range vf.Input {
		v.pattern(fmt.Sprintf("%s.value.input[%d]", path, i), p, width)
	}
	if vf.Graph.Mode == pattern.GraphExplicit {
		v.pattern(path+".value.graph", vf.Graph.Pattern, width)
	}

	target, ok := v.reg.Get(vf.Layout)
	if !ok {
		v.add(ErrUnknownReference, path+".value.layout", "unknown layout %q", vf.Layout)
		return
	}
	if want := target.Signature().Input; uint32(len(vf.Input)) != want {
		v.add(ErrInputArity, path+".value.input", "layout %q takes %d inputs, got %d", vf.Layout, want, len(vf.Input))
	}
}

func (v *validator) dataset(path string, ds pattern.Dataset, width uint32) {
	for i, q := range ds {
		for _, p := range q.Patterns() {
			v.pattern(fmt.Sprintf("%s[%d]", path, i), p, width)
		}
	}
}

func (v *validator) pattern(path string, p pattern.Pattern, width uint32) {
	if p.IsVar() && p.Index() >= width {
		v.add(ErrVariableOutOfScope, path, "variable %s is out of scope (width %d)", p, width)
	}
}

func (v *validator) literal(path string, l *layout.Literal) {
	if l.Input != 1 {
		v.add(ErrInvalidLiteral, path+".input", "literal layouts take exactly 1 input, got %d", l.Input)
	}
	if l.Type == layout.LiteralID {
		if l.Datatype != "" {
			v.add(ErrInvalidLiteral, path+".datatype", "id literals have no datatype")
		}
		return
	}
	if l.Datatype == rdf.RDFLangString && l.Type != layout.LiteralTextString {
		v.add(ErrInvalidLiteral, path+".datatype", "rdf:langString only carries text")
	}
	if l.Type == layout.LiteralUnit {
		dt := l.Datatype
		if dt == "" {
			dt = layout.DefaultDatatype(l.Type)
		}
		if space := layout.LexicalSpace(dt); space != nil && !space.Accepts(l.Const) {
			v.add(ErrInvalidLiteral, path+".const", "%q is not in the lexical space of %s", l.Const, dt)
		}
	}
}

func (v *validator) sum(path string, l *layout.Sum, width uint32) {
	if len(l.Variants) == 0 {
		v.add(ErrEmptySum, path+".variants", "sum has no variants")
		return
	}

	seen := make(map[string]bool, len(l.Variants))
	for i, variant := range l.Variants {
		vp := fmt.Sprintf("%s.variants[%d]", path, i)
		if seen[variant.Name] {
			v.add(ErrDuplicateVariant, vp+".name", "duplicate variant name %q", variant.Name)
		}
		seen[variant.Name] = true
		v.scope(vp, variant.Value, variant.Dataset, width+variant.Intro)
	}
}
