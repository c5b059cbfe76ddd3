// Package ir provides the plain-data representation used for snapshots and
// patch values.
//
// # Overview
//
// A snapshot is an immutable tree of *Node values mirroring the content of a
// live tree node at one point in time. The representation is readily
// representable in JSON and YAML: it has no maps or sets, no parent links and
// no identity other than pointer identity.
//
// Because snapshot nodes do not record their parent, an unchanged child
// snapshot can be shared by any number of parent snapshots. Producers of
// snapshots rely on this to reallocate only the path from a mutation to the
// root.
//
// # Node Types
//
//   - NullType: null value
//   - BoolType: boolean (true/false)
//   - NumberType: numeric value (int64, float64, or a literal fallback)
//   - StringType: string value
//   - ArrayType: ordered list of nodes in Values
//   - ObjectType: Fields[i] is the key of Values[i]
//
// Nodes must not be modified once they have been handed out as a snapshot.
// Use ShallowCopy to derive a modified container.
//
// # Creating Nodes
//
//	obj := ir.FromKeyVals([]ir.KeyVal{
//	    {Key: "name", Val: ir.FromString("x")},
//	    {Key: "n", Val: ir.FromInt(1)},
//	})
//	arr := ir.FromSlice([]*ir.Node{ir.FromInt(1), ir.FromInt(2)})
//
// FromAny converts plain Go data; FromJSON and FromYAML parse documents
// preserving field order.
//
// # Paths
//
// A Path is a list of Keys, each either a field name or an array index. Paths
// render in kinded path syntax:
//
//	ir.PathOf("a", 0, "b").String() // "a[0].b"
//
// and as RFC 6901 pointers with Path.Pointer.
//
// # Comparison and Hashing
//
// Equal compares JSON values (field order is not significant), Compare
// imposes a total order, and Hash is consistent with Equal.
package ir
