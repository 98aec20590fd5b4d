package cli

import (
	"fmt"

	"github.com/roach88/prism"
	"github.com/roach88/prism/internal/audit"
)

// valueTable reads every value-carrying node into the audit row shape
// shared by table rendering and session recording. When only contains
// names, the table is restricted to them in the given order.
func valueTable(m *prism.Model, only []string) ([]audit.NodeValue, error) {
	ids := m.Nodes()
	if len(only) > 0 {
		ids = make([]prism.NodeID, 0, len(only))
		for _, name := range only {
			id, ok := m.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("unknown node %q", name)
			}
			ids = append(ids, id)
		}
	}

	out := make([]audit.NodeValue, 0, len(ids))
	for _, id := range ids {
		name, err := m.NodeName(id)
		if err != nil {
			return nil, err
		}
		v, err := m.GetValue(id)
		if err != nil {
			return nil, err
		}
		out = append(out, audit.NodeValue{
			ID:     uint32(id),
			Name:   name,
			Scalar: v.IsScalar(),
			Data:   v.Series(),
		})
	}
	return out, nil
}
