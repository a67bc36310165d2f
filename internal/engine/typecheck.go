package engine

import (
	"fmt"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/value"
)

// Type assigns layouts to an untyped value tree, so that it can be
// dehydrated.
//
// Products are matched by field name, lists by kind and length, literals
// by payload kind and lexical constraints. A sum takes the one variant
// that accepts the value: its serialization discriminants narrow the
// candidates, each remaining candidate is typed in full, and more than
// one success fails with DATA_AMBIGUITY.
func (e *Engine) Type(v value.Value, ref layout.Ref) (value.Typed, error) {
	t := &typer{Engine: e}
	return t.typeOf(v, ref)
}

type typer struct {
	*Engine
	depth int
}

func (t *typer) typeOf(v value.Value, ref layout.Ref) (value.Typed, error) {
	if t.depth >= t.maxDepth {
		return nil, NewDepthError(ref, t.maxDepth)
	}
	t.depth++
	defer func() { t.depth-- }()

	l, err := t.lookup(ref)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, newError(ErrCodeInvalidValue, ref, "no value")
	}

	switch l := l.(type) {
	case *layout.Never:
		return nil, newError(ErrCodeNever, ref, "the never layout has no values")
	case *layout.Always:
		term, ok := value.OpaqueTerm(v)
		if !ok {
			return nil, newError(ErrCodeInvalidValue, ref, "expected an @id or @value record, got %s", kindName(v))
		}
		return &value.TypedOpaque{Layout: ref, Term: term}, nil
	case *layout.Literal:
		return t.literal(ref, l, v)
	case *layout.Product:
		return t.product(ref, l, v)
	case *layout.UnorderedList:
		return t.list(ref, v, -1, func(int) layout.Ref { return l.Item.Value.Layout })
	case *layout.OrderedList:
		return t.list(ref, v, -1, func(int) layout.Ref { return l.Node.Value.Layout })
	case *layout.SizedList:
		return t.list(ref, v, len(l.Items), func(i int) layout.Ref { return l.Items[i].Value.Layout })
	case *layout.Sum:
		return t.sum(ref, l, v)
	default:
		return nil, fmt.Errorf("unsupported layout %T", l)
	}
}

func (t *typer) literal(ref layout.Ref, l *layout.Literal, v value.Value) (value.Typed, error) {
	if _, err := encodeLiteral(ref, l, v); err != nil {
		return nil, err
	}
	if s, ok := v.(value.TextString); ok && l.Type == layout.LiteralByteString {
		b, err := decodeBytes(l.EffectiveDatatype(), string(s))
		if err != nil {
			return nil, newError(ErrCodeInvalidValue, ref, "%v", err)
		}
		v = b
	}
	return &value.TypedLiteral{Layout: ref, Value: v}, nil
}

func (t *typer) product(ref layout.Ref, l *layout.Product, v value.Value) (value.Typed, error) {
	rec, ok := v.(value.Record)
	if !ok {
		return nil, newError(ErrCodeInvalidValue, ref, "expected a record, got %s", kindName(v))
	}
	for _, k := range rec.SortedKeys() {
		if _, ok := l.Fields[k]; !ok {
			return nil, &EvalError{Code: ErrCodeInvalidValue, Layout: ref, Field: k, Message: fmt.Sprintf("unknown field %q", k)}
		}
	}

	fields := make(map[string]value.Typed, len(rec))
	for _, name := range l.FieldNames() {
		field := l.Fields[name]
		fv, ok := rec[name]
		if !ok {
			if field.Required {
				return nil, NewMissingFieldError(ref, name)
			}
			continue
		}
		typed, err := t.typeOf(fv, field.Value.Layout)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = typed
	}
	return &value.TypedRecord{Layout: ref, Fields: fields}, nil
}

// list types every element with the layout itemRef names for its index.
// size is the required length, or -1.
func (t *typer) list(ref layout.Ref, v value.Value, size int, itemRef func(int) layout.Ref) (value.Typed, error) {
	list, ok := v.(value.List)
	if !ok {
		return nil, newError(ErrCodeInvalidValue, ref, "expected a list, got %s", kindName(v))
	}
	if size >= 0 && len(list) != size {
		return nil, newError(ErrCodeInvalidValue, ref, "expected %d items, got %d", size, len(list))
	}

	items := make([]value.Typed, len(list))
	for i, elem := range list {
		typed, err := t.typeOf(elem, itemRef(i))
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = typed
	}
	return &value.TypedList{Layout: ref, Items: items}, nil
}

func (t *typer) sum(ref layout.Ref, l *layout.Sum, v value.Value) (value.Typed, error) {
	disc, err := t.layouts.Discriminants(ref)
	if err != nil {
		return nil, err
	}
	s := sample(v)

	var result *value.TypedVariant
	for i, variant := range l.Variants {
		if !disc.Serialization[i].Accepts(s) {
			continue
		}
		typed, err := t.typeOf(v, variant.Value.Layout)
		if err != nil {
			if isMismatch(err) {
				continue
			}
			return nil, fmt.Errorf("variant %q: %w", variant.Name, err)
		}
		if result != nil {
			return nil, &EvalError{
				Code:    ErrCodeDataAmbiguity,
				Message: fmt.Sprintf("value fits variants %q and %q", result.Name, variant.Name),
				Layout:  ref,
				Field:   variant.Name,
			}
		}
		result = &value.TypedVariant{Layout: ref, Index: i, Name: variant.Name, Value: typed}
	}

	if result == nil {
		return nil, newError(ErrCodeInvalidValue, ref, "no variant accepts a %s", kindName(v))
	}
	return result, nil
}
