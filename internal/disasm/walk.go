package disasm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ritedump/internal/rite"
)

type node struct {
	rec   *rite.Record
	path  Path
	scope *rite.LocalScope
	label string
}

// nodes lists the records of sec in depth-first pre-order, pairing each with
// its local variable scope while the scope tree keeps the record tree's shape.
func nodes(rev rite.Revision, sec *rite.IrepSection, vars *rite.LocalVars) []node {
	if rev == rite.Rev1 {
		out := make([]node, len(sec.Records))
		for i, r := range sec.Records {
			out[i] = node{rec: r, path: Path{i}, label: fmt.Sprintf("irep[%d]", i)}
		}
		return out
	}

	var out []node
	var visit func(r *rite.Record, p Path, s *rite.LocalScope)
	visit = func(r *rite.Record, p Path, s *rite.LocalScope) {
		if s != nil && len(s.Children) != len(r.Children) {
			s = nil
		}
		out = append(out, node{rec: r, path: p, scope: s, label: "irep" + p.String()})
		for i, ch := range r.Children {
			visit(ch, p.Child(i), s.Child(i))
		}
	}
	var root *rite.LocalScope
	if vars != nil {
		root = vars.Root
	}
	if r := sec.Root(); r != nil {
		visit(r, nil, root)
	}
	return out
}

func (n node) render(rev rite.Revision, flat []*rite.Record) Block {
	return Block{
		Label:  n.label,
		Path:   n.path,
		Record: n.rec,
		Scope:  n.scope,
		Insts:  Render(rev, n.rec, n.scope, flat),
	}
}

// Walk renders every record of sec in pre-order: a record's own instructions
// come before its children.
func Walk(rev rite.Revision, sec *rite.IrepSection, vars *rite.LocalVars) []Block {
	ns := nodes(rev, sec, vars)
	blocks := make([]Block, len(ns))
	for i, n := range ns {
		blocks[i] = n.render(rev, sec.Records)
	}
	return blocks
}

// WalkParallel renders like Walk with up to workers records in flight. The
// decoded tree is only read, so no locking is needed; the result keeps
// pre-order.
func WalkParallel(ctx context.Context, rev rite.Revision, sec *rite.IrepSection, vars *rite.LocalVars, workers int) ([]Block, error) {
	if workers <= 1 {
		return Walk(rev, sec, vars), nil
	}
	ns := nodes(rev, sec, vars)
	blocks := make([]Block, len(ns))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, n := range ns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			blocks[i] = n.render(rev, sec.Records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}
