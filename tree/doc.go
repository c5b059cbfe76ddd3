// Package tree implements mutable, observable trees of plain data with
// cached immutable snapshots.
//
// # Nodes
//
// A live tree is made of *Node containers (arrays, objects, maps, sets and
// model instances) holding either other nodes or primitives (nil, bool,
// int64, float64 and string). Every node has at most one parent. Nodes
// belong to an Arena, which assigns ids, holds per node caches and owns the
// reactive runtime nodes report reads and writes to.
//
//	a := tree.NewArena()
//	todo, _ := a.NewObject(tree.KV{Key: "title", Value: "x"}, tree.KV{Key: "done", Value: false})
//	list, _ := a.NewArray(todo)
//	_ = todo.Set("done", true)
//
// Attaching a node that already has a parent moves it: its old slot is set
// to null (or, in a set, removed) before it is attached at the new
// location. Value type models are copied instead.
//
// # Snapshots
//
// GetSnapshot returns an immutable *ir.Node for a live value. Snapshots are
// cached per node and invalidated along the path from a mutated node to its
// root, so unchanged subtrees keep returning the same snapshot and a parent
// snapshot shares its unchanged children with the previous one.
//
// # Patches
//
// Every mutation produces patches and their inverses. They are delivered
// synchronously to OnPatches listeners on the mutated node and each of its
// ancestors, with paths relative to the listening node.
//
// # Turns
//
// Each mutation is a turn, as is the outermost Arena.Batch. When a turn
// ends, nodes detached during it and not reattached drop their cached state
// and reactions depending on changed nodes run.
package tree
