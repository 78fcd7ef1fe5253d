package index

import (
	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type bstComparer struct {
	comparer domain.Comparer
}

// NewBSTComparer returns the tree comparer of an index: keys are ordered by
// comparer and entries are told apart by identity.
func NewBSTComparer(comparer domain.Comparer) bst.Comparer[any, *Entry] {
	return &bstComparer{comparer: comparer}
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a any, b any) (int, error) {
	return bc.comparer.Compare(a, b)
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a *Entry, b *Entry) (bool, error) {
	return a == b, nil
}
