package kv

import (
	"encoding/binary"
	"fmt"

	"github.com/roach88/distill/internal/rdf"
)

// Key prefixes.
const (
	termPrefix byte = 't' // encoded term -> id
	idPrefix   byte = 'i' // id -> encoded term
	seqPrefix  byte = 'q' // seq -> quad ids in SPOG order
)

var (
	idSequenceKey  = []byte("#id")
	seqSequenceKey = []byte("#seq")
)

// Quad component positions.
const (
	posS = iota
	posP
	posO
	posG
)

// index is a permutation of the quad components. Keys are the prefix
// byte followed by the four ids in order.
type index struct {
	prefix byte
	order  [4]int
}

var indexes = [...]index{
	{'a', [4]int{posS, posP, posO, posG}},
	{'b', [4]int{posP, posO, posG, posS}},
	{'c', [4]int{posO, posS, posP, posG}},
	{'d', [4]int{posG, posS, posP, posO}},
}

const idWidth = 8

func (ix index) key(ids [4]uint64) []byte {
	key := make([]byte, 1+4*idWidth)
	key[0] = ix.prefix
	for i, pos := range ix.order {
		binary.BigEndian.PutUint64(key[1+i*idWidth:], ids[pos])
	}
	return key
}

// prefixFor returns the scan prefix covering the leading bound ids.
func (ix index) prefixFor(ids [4]uint64, bound [4]bool) []byte {
	key := []byte{ix.prefix}
	for _, pos := range ix.order {
		if !bound[pos] {
			break
		}
		key = binary.BigEndian.AppendUint64(key, ids[pos])
	}
	return key
}

// ids decodes an index key back into SPOG order.
func (ix index) ids(key []byte) ([4]uint64, error) {
	var ids [4]uint64
	if len(key) != 1+4*idWidth {
		return ids, fmt.Errorf("index key has length %d", len(key))
	}
	for i, pos := range ix.order {
		ids[pos] = binary.BigEndian.Uint64(key[1+i*idWidth:])
	}
	return ids, nil
}

// chooseIndex picks the index binding the longest key prefix.
func chooseIndex(bound [4]bool) index {
	best, bestN := indexes[0], -1
	for _, ix := range indexes {
		n := 0
		for _, pos := range ix.order {
			if !bound[pos] {
				break
			}
			n++
		}
		if n > bestN {
			best, bestN = ix, n
		}
	}
	return best
}

func uint64Bytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{seqPrefix}, seq)
}

func idKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{idPrefix}, id)
}

func termKey(t rdf.Term) []byte {
	return append([]byte{termPrefix}, encodeTerm(t)...)
}

func encodeIDs(ids [4]uint64) []byte {
	buf := make([]byte, 0, 4*idWidth)
	for _, id := range ids {
		buf = binary.BigEndian.AppendUint64(buf, id)
	}
	return buf
}

func decodeIDs(buf []byte) ([4]uint64, error) {
	var ids [4]uint64
	if len(buf) != 4*idWidth {
		return ids, fmt.Errorf("quad entry has length %d", len(buf))
	}
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(buf[i*idWidth:])
	}
	return ids, nil
}

// encodeTerm writes the kind byte followed by length-prefixed value,
// datatype and language strings.
func encodeTerm(t rdf.Term) []byte {
	buf := []byte{byte(t.Kind)}
	for _, s := range []string{t.Value, t.Datatype, t.Language} {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

func decodeTerm(buf []byte) (rdf.Term, error) {
	if len(buf) == 0 {
		return rdf.Term{}, fmt.Errorf("empty term encoding")
	}
	t := rdf.Term{Kind: rdf.Kind(buf[0])}
	rest := buf[1:]
	fields := []*string{&t.Value, &t.Datatype, &t.Language}
	for _, f := range fields {
		n, w := binary.Uvarint(rest)
		if w <= 0 || uint64(len(rest)-w) < n {
			return rdf.Term{}, fmt.Errorf("truncated term encoding")
		}
		*f = string(rest[w : w+int(n)])
		rest = rest[w+int(n):]
	}
	if len(rest) != 0 {
		return rdf.Term{}, fmt.Errorf("trailing bytes in term encoding")
	}
	return t, nil
}

func bytesUint64(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}
