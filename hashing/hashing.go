// Package hashing computes structural hashes of document nodes, used to de-duplicate array
// members when schemas are merged.
package hashing

import (
	"hash/fnv"
	"slices"
	"strconv"
	"strings"

	"github.com/speakeasy-api/openapi-deref/node"
)

// Hash returns a hex encoded FNV-1a hash of the structure of n. Object key order, node identity
// and provenance metadata do not affect the hash.
func Hash(n *node.Node) string {
	hasher := fnv.New64a()
	var builder strings.Builder
	writeHashable(&builder, n, map[uint64]struct{}{})
	_, _ = hasher.Write([]byte(builder.String()))
	return formatHash(hasher.Sum64())
}

// formatHash converts a uint64 hash to a zero-padded 16-character hex string
// without the allocation overhead of fmt.Sprintf.
func formatHash(h uint64) string {
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf[:])
}

func writeHashable(builder *strings.Builder, n *node.Node, active map[uint64]struct{}) {
	builder.WriteString("Kind")
	builder.WriteString(strconv.Itoa(int(n.Kind())))

	switch n.Kind() {
	case node.KindNull:
	case node.KindBool:
		b, _ := n.Bool()
		builder.WriteString(strconv.FormatBool(b))
	case node.KindNumber:
		// 1 and 1.0 hash the same, as they compare equal
		if f, ok := n.Float(); ok {
			builder.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		} else {
			lit, _ := n.Literal()
			builder.WriteString(lit)
		}
	case node.KindString:
		s, _ := n.Str()
		builder.WriteString("Value")
		builder.WriteString(strconv.Quote(s))
	case node.KindReference:
		target, _ := n.Target()
		builder.WriteString("Ref")
		builder.WriteString(strconv.Quote(target))
	case node.KindArray, node.KindObject:
		if _, ok := active[n.ID()]; ok {
			builder.WriteString("Cycle")
			return
		}
		active[n.ID()] = struct{}{}
		defer delete(active, n.ID())

		if n.IsArray() {
			for _, item := range n.Items() {
				writeHashable(builder, item, active)
			}
			builder.WriteString("End")
			return
		}

		keys := n.Keys()
		slices.Sort(keys)
		for _, k := range keys {
			v, _ := n.Get(k)
			builder.WriteString("Key")
			builder.WriteString(strconv.Quote(k))
			writeHashable(builder, v, active)
		}
		builder.WriteString("End")
	}
}
