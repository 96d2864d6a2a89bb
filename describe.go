package store

import "strings"

// ModuleDescriptor summarizes one installed module.
type ModuleDescriptor struct {
	Path       []string `json:"path"`
	Namespace  string   `json:"namespace,omitempty"`
	Namespaced bool     `json:"namespaced"`
	Runtime    bool     `json:"runtime"`
	Mutations  []string `json:"mutations,omitempty"`
	Actions    []string `json:"actions,omitempty"`
	Getters    []string `json:"getters,omitempty"`
	Children   []string `json:"children,omitempty"`
}

// Name returns the slash-joined path, "" for the root.
func (d ModuleDescriptor) Name() string {
	return strings.Join(d.Path, "/")
}

// Modules describes every registered module, depth first from the root.
// Handler keys are local, without the namespace prefix.
func (s *Store) Modules() []ModuleDescriptor {
	var out []ModuleDescriptor
	describeModule(s.modules, nil, s.modules.Root(), &out)
	return out
}

func describeModule(tree *ModuleTree, path []string, node *ModuleNode, out *[]ModuleDescriptor) {
	*out = append(*out, ModuleDescriptor{
		Path:       append([]string{}, path...),
		Namespace:  tree.Namespace(path),
		Namespaced: node.namespaced,
		Runtime:    node.runtime,
		Mutations:  nonEmpty(sortedKeys(node.mutations)),
		Actions:    nonEmpty(sortedKeys(node.actions)),
		Getters:    nonEmpty(sortedKeys(node.getters)),
		Children:   nonEmpty(node.ChildKeys()),
	})
	node.forEachChild(func(key string, child *ModuleNode) {
		describeModule(tree, appendPath(path, key), child, out)
	})
}

func nonEmpty(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	return keys
}
