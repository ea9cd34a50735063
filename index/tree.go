// Package index provides an insert-only ordered index keyed by string.
//
// The index is a red-black tree. It is used by the runtime for the module
// registry and the capability registry, both of which are filled once during
// startup and then only read. Keys are unique: inserting an existing key
// returns the node already holding it and leaves the tree untouched.
package index

import (
	"iter"
	"strings"
)

type color bool

const (
	red   color = false
	black color = true
)

// Node is a single entry of a Tree. Callers keep *Node values as cursors for
// Next.
type Node[V any] struct {
	key    string
	value  V
	color  color
	left   *Node[V]
	right  *Node[V]
	parent *Node[V]
}

// Key returns the key the node was inserted under.
func (n *Node[V]) Key() string { return n.key }

// Value returns the value stored in the node.
func (n *Node[V]) Value() V { return n.value }

// Tree is an ordered index of values by string key. The zero value is not
// usable; construct with New.
type Tree[V any] struct {
	root *Node[V]
	cmp  func(a, b string) int
	size int
}

// New returns an empty tree ordered by cmp. A nil cmp orders keys with
// strings.Compare.
func New[V any](cmp func(a, b string) int) *Tree[V] {
	if cmp == nil {
		cmp = strings.Compare
	}
	return &Tree[V]{cmp: cmp}
}

// Len returns the number of entries.
func (t *Tree[V]) Len() int { return t.size }

// Insert adds value under key. If key is already present the existing node is
// returned with inserted == false and nothing is overwritten.
func (t *Tree[V]) Insert(key string, value V) (n *Node[V], inserted bool) {
	var parent *Node[V]
	link := &t.root
	for *link != nil {
		parent = *link
		switch c := t.cmp(key, parent.key); {
		case c < 0:
			link = &parent.left
		case c > 0:
			link = &parent.right
		default:
			return parent, false
		}
	}

	n = &Node[V]{key: key, value: value, color: red, parent: parent}
	*link = n
	t.size++
	t.fixInsert(n)
	return n, true
}

// Search returns the node holding key.
func (t *Tree[V]) Search(key string) (*Node[V], bool) {
	n := t.root
	for n != nil {
		switch c := t.cmp(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n, true
		}
	}
	return nil, false
}

// First returns the node with the smallest key, or nil if the tree is empty.
func (t *Tree[V]) First() *Node[V] {
	if t.root == nil {
		return nil
	}
	return leftmost(t.root)
}

// Next returns the in-order successor of n, or nil if n is the last node.
func (t *Tree[V]) Next(n *Node[V]) *Node[V] {
	if n == nil {
		return nil
	}
	if n.right != nil {
		return leftmost(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// All yields every entry in key order.
func (t *Tree[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for n := t.First(); n != nil; n = t.Next(n) {
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

func leftmost[V any](n *Node[V]) *Node[V] {
	for n.left != nil {
		n = n.left
	}
	return n
}

func (t *Tree[V]) fixInsert(n *Node[V]) {
	for n.parent != nil && n.parent.color == red {
		parent := n.parent
		grand := parent.parent
		if parent == grand.left {
			uncle := grand.right
			if uncle != nil && uncle.color == red {
				parent.color = black
				uncle.color = black
				grand.color = red
				n = grand
				continue
			}
			if n == parent.right {
				t.rotateLeft(parent)
				n, parent = parent, n
			}
			parent.color = black
			grand.color = red
			t.rotateRight(grand)
		} else {
			uncle := grand.left
			if uncle != nil && uncle.color == red {
				parent.color = black
				uncle.color = black
				grand.color = red
				n = grand
				continue
			}
			if n == parent.left {
				t.rotateRight(parent)
				n, parent = parent, n
			}
			parent.color = black
			grand.color = red
			t.rotateLeft(grand)
		}
	}
	t.root.color = black
}

func (t *Tree[V]) rotateLeft(x *Node[V]) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	t.replace(x, y)
	y.left = x
	x.parent = y
}

func (t *Tree[V]) rotateRight(x *Node[V]) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	t.replace(x, y)
	y.right = x
	x.parent = y
}

// replace hangs y where x used to be under x's parent.
func (t *Tree[V]) replace(x, y *Node[V]) {
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
}
