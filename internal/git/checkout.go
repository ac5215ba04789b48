// Copyright (C) 2025  Nexedi SA and Contributors.
//                     Kirill Smelkov <kirr@nexedi.com>
//
// This program is free software: you can Use, Study, Modify and Redistribute
// it under the terms of the GNU General Public License version 3, or (at your
// option) any later version, as published by the Free Software Foundation.
//
// This program is distributed WITHOUT ANY WARRANTY; without even the implied
// warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//
// See COPYING file for full licensing terms.

// Git wrapper | working-tree checkout
package git

import (
	git2go "github.com/libgit2/git2go/v31"
)

// CheckoutStrategy selects how the working tree is updated; combine with |.
type CheckoutStrategy = git2go.CheckoutStrategy

const (
	CheckoutSafe               = git2go.CheckoutSafe
	CheckoutForce              = git2go.CheckoutForce
	CheckoutConflictStyleMerge = git2go.CheckoutConflictStyleMerge
)

// CheckoutTree updates the working tree and index to match tree. Conflicting
// local modifications are left in place; callers inspect workdir status to
// report them.
func (r *Repository) CheckoutTree(tree *Tree, strategy CheckoutStrategy) error {
	opts := git2go.CheckoutOptions{Strategy: strategy}
	return r.repo.CheckoutTree(tree.tree, &opts)
}

// PeelToTree resolves r to the tree its target commit carries.
func (r *Reference) PeelToTree() (*Tree, error) {
	obj, err := r.ref.Peel(ObjectTree)
	if err != nil {
		return nil, err
	}
	tree, err := obj.AsTree()
	if err != nil {
		return nil, err
	}
	return &Tree{tree}, nil
}
