package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/prism"
)

// Manifest is the YAML model description the CLI loads. Nodes are
// declared in dependency order; args reference earlier nodes by name.
type Manifest struct {
	ModelLen    int              `yaml:"model_len"`
	Nodes       []NodeSpec       `yaml:"nodes"`
	Constraints []ConstraintSpec `yaml:"constraints"`
}

// NodeSpec declares one node. Exactly one of Const, SolverVar, or Op
// must be set.
type NodeSpec struct {
	Name string `yaml:"name"`

	Const     []float64 `yaml:"const,omitempty"`
	SolverVar bool      `yaml:"solver_var,omitempty"`
	Guess     float64   `yaml:"guess,omitempty"`

	Op   string   `yaml:"op,omitempty"` // add, sub, mul, div, neg, prev
	Args []string `yaml:"args,omitempty"`
	Lag  uint32   `yaml:"lag,omitempty"`

	Kind string `yaml:"kind,omitempty"`
	Unit string `yaml:"unit,omitempty"`
}

// ConstraintSpec declares an equality constraint between two nodes.
type ConstraintSpec struct {
	Name  string   `yaml:"name"`
	Equal []string `yaml:"equal"` // exactly two node names
}

// LoadManifest parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var man Manifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(man.Nodes) == 0 {
		return nil, fmt.Errorf("manifest %s declares no nodes", path)
	}
	return &man, nil
}

var binaryOps = map[string]prism.Op{
	"add": prism.OpAdd,
	"sub": prism.OpSub,
	"mul": prism.OpMul,
	"div": prism.OpDiv,
}

// BuildModel constructs a Model from a manifest. Node names must be
// unique; args must reference already-declared nodes.
func BuildModel(man *Manifest, opts ...prism.Option) (*prism.Model, error) {
	modelLen := man.ModelLen
	if modelLen < 1 {
		modelLen = 1
	}
	m := prism.New(append([]prism.Option{prism.WithModelLen(modelLen)}, opts...)...)

	byName := make(map[string]prism.NodeID, len(man.Nodes))
	resolve := func(spec NodeSpec, n int) ([]prism.NodeID, error) {
		if len(spec.Args) != n {
			return nil, fmt.Errorf("node %q: op %s takes %d arg(s), got %d", spec.Name, spec.Op, n, len(spec.Args))
		}
		ids := make([]prism.NodeID, n)
		for i, ref := range spec.Args {
			id, ok := byName[ref]
			if !ok {
				return nil, fmt.Errorf("node %q references undeclared node %q", spec.Name, ref)
			}
			ids[i] = id
		}
		return ids, nil
	}

	for _, spec := range man.Nodes {
		if spec.Name == "" {
			return nil, fmt.Errorf("manifest node without a name")
		}
		if _, dup := byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", spec.Name)
		}

		var id prism.NodeID
		var err error
		switch {
		case spec.Const != nil:
			id, err = m.AddConst(spec.Const, spec.Name)

		case spec.SolverVar:
			id = m.AddSolverVar(spec.Name)
			if spec.Guess != 0 {
				err = m.SetInitialGuess(id, spec.Guess)
			}

		case spec.Op == "neg":
			var args []prism.NodeID
			if args, err = resolve(spec, 1); err == nil {
				id, err = m.AddUnop(prism.OpNeg, args[0], spec.Name)
			}

		case spec.Op == "prev":
			var args []prism.NodeID
			if args, err = resolve(spec, 1); err == nil {
				id, err = m.AddPrev(args[0], spec.Lag, spec.Name)
			}

		default:
			op, ok := binaryOps[spec.Op]
			if !ok {
				return nil, fmt.Errorf("node %q: unknown op %q", spec.Name, spec.Op)
			}
			var args []prism.NodeID
			if args, err = resolve(spec, 2); err == nil {
				id, err = m.AddBinop(op, args[0], args[1], spec.Name)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.Name, err)
		}

		if spec.Kind != "" || spec.Unit != "" {
			kind := prism.KindUnknown
			if spec.Kind != "" {
				if kind, err = prism.ParseKind(spec.Kind); err != nil {
					return nil, fmt.Errorf("node %q: %w", spec.Name, err)
				}
			}
			if err := m.DeclareType(id, kind, spec.Unit); err != nil {
				return nil, fmt.Errorf("node %q: %w", spec.Name, err)
			}
		}
		byName[spec.Name] = id
	}

	for _, c := range man.Constraints {
		if len(c.Equal) != 2 {
			return nil, fmt.Errorf("constraint %q: equal needs exactly two node names", c.Name)
		}
		lhs, ok := byName[c.Equal[0]]
		if !ok {
			return nil, fmt.Errorf("constraint %q references undeclared node %q", c.Name, c.Equal[0])
		}
		rhs, ok := byName[c.Equal[1]]
		if !ok {
			return nil, fmt.Errorf("constraint %q references undeclared node %q", c.Name, c.Equal[1])
		}
		if _, err := m.MustEqual(lhs, rhs, c.Name); err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.Name, err)
		}
	}
	return m, nil
}
