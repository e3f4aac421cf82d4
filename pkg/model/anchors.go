package model

import (
	"errors"

	"gopkg.in/yaml.v3"
)

// expandAliases replaces every alias below node with a copy of its anchor.
// visiting holds the alias nodes currently being expanded, hitting one of
// them again means the document refers to itself.
func expandAliases(node *yaml.Node, visiting map[*yaml.Node]bool, expanded bool) error {
	if !expanded && visiting[node] {
		return errors.New("circular alias")
	}
	switch node.Kind {
	case yaml.AliasNode:
		if node.Alias == nil {
			return errors.New("unresolved alias node")
		}
		visiting[node] = true
		*node = *node.Alias
		if err := expandAliases(node, visiting, true); err != nil {
			return err
		}
		delete(visiting, node)
	case yaml.DocumentNode, yaml.MappingNode, yaml.SequenceNode:
		for _, child := range node.Content {
			if err := expandAliases(child, visiting, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveAliases(node *yaml.Node) error {
	return expandAliases(node, map[*yaml.Node]bool{}, false)
}
