package parser

import sitter "github.com/smacker/go-tree-sitter"

// TypeDeclarations are the node types that open a Java type body.
var TypeDeclarations = map[string]string{
	"class_declaration":      "class",
	"interface_declaration":  "interface",
	"enum_declaration":       "enum",
	"record_declaration":     "record",
	"annotation_declaration": "annotation",
}

// CallableDeclarations are the node types that declare executable members.
var CallableDeclarations = map[string]string{
	"method_declaration":      "method",
	"constructor_declaration": "constructor",
}

// IsTypeDeclaration reports whether node declares a class-like type.
func IsTypeDeclaration(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	_, ok := TypeDeclarations[node.Type()]
	return ok
}

// IsCallableDeclaration reports whether node declares a method or constructor.
func IsCallableDeclaration(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	_, ok := CallableDeclarations[node.Type()]
	return ok
}

// DeclarationKind returns "class", "method", etc. for a declaration node, or "".
func DeclarationKind(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	if k, ok := TypeDeclarations[node.Type()]; ok {
		return k
	}
	return CallableDeclarations[node.Type()]
}
