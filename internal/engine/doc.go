// Package engine implements the layout codec: hydration of RDF datasets
// into typed values, dehydration of values back into datasets, and typing
// of untyped values against a layout.
//
// ARCHITECTURE:
//
// Hydration walks a layout top-down. Each layout scope binds its inputs,
// then uses the matching engine to discover its intro variables: FindOne
// where exactly one binding is required (products, sized lists, sum
// variants, ordered list nodes) and FindAll where every binding is an
// element (unordered lists). Nested values are reached through value
// formats, whose input patterns and graph selector are resolved in the
// enclosing scope. The typed value is assembled bottom-up.
//
// Dehydration walks a typed value top-down through an environment of
// frames. A frame holds the cells of one scope; nested layouts alias the
// caller's cells for their inputs. Cells are filled lazily: a nested
// literal binds its input cell to the encoded term. Quad patterns are
// queued during the walk and instantiated once it completes, and any cell
// still empty at that point receives a fresh resource from the
// generator. This is what puts literal field values in object position
// without the layout naming them.
//
// Sum variants are chosen from the variant tag of a typed value. Untyped
// values go through Type, which uses the registry's cached serialization
// discriminants to narrow the candidates before typing each one.
//
// INVARIANTS:
//   - Hydration never mutates the dataset and returns no partial value.
//   - For a fixed dataset, repeated hydration yields identical values.
//   - Dehydration with a deterministic generator yields identical quads in
//     identical order.
//   - Whether a value dehydrates does not depend on the order of its
//     record fields.
//   - Binding conflicts prune branches during hydration; they surface only
//     from dehydration, as BINDING_CONFLICT.
package engine
