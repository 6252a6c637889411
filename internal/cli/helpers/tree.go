package helpers

import (
	"fmt"
	"strings"
)

// TreeNode represents a node in a tree structure for rendering.
type TreeNode interface {
	Label() string
	Detail() string
	Children() []TreeNode
}

// RenderTree renders a tree structure in ASCII art format.
func RenderTree(root TreeNode) string {
	if root == nil {
		return "No tree data available.\n"
	}

	var buf strings.Builder
	buf.WriteString(formatNode(root))
	children := root.Children()
	for i, child := range children {
		buf.WriteString(renderTreeNode(child, "", i == len(children)-1))
	}
	return buf.String()
}

// renderTreeNode renders a single tree node with proper indentation.
func renderTreeNode(node TreeNode, prefix string, isLast bool) string {
	var buf strings.Builder

	connector := "├─ "
	if isLast {
		connector = "└─ "
	}
	buf.WriteString(prefix + connector + formatNode(node))

	childPrefix := prefix
	if isLast {
		childPrefix += "   "
	} else {
		childPrefix += "│  "
	}

	children := node.Children()
	for i, child := range children {
		buf.WriteString(renderTreeNode(child, childPrefix, i == len(children)-1))
	}

	return buf.String()
}

func formatNode(node TreeNode) string {
	if detail := node.Detail(); detail != "" {
		return fmt.Sprintf("%s (%s)\n", node.Label(), detail)
	}
	return node.Label() + "\n"
}
