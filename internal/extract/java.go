// Package extract pulls class and method structure out of Java sources.
//
// It feeds three consumers: the class analysis tool, the code smell
// detector, and the public API classifier the gap prioritizer uses when
// sources are available.
package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/testforge/covagent/internal/parser"
)

// Visibility is a Java access level.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPackage   Visibility = "package"
	VisibilityPrivate   Visibility = "private"
)

// Param is one formal parameter.
type Param struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	VarArgs bool   `json:"varargs,omitempty" yaml:"varargs,omitempty"`
}

// JavaMethod is a method or constructor declaration.
type JavaMethod struct {
	Name        string     `json:"name" yaml:"name"`
	ReturnType  string     `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	Params      []Param    `json:"params" yaml:"params"`
	Modifiers   []string   `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Visibility  Visibility `json:"visibility" yaml:"visibility"`
	Constructor bool       `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	Throws      []string   `json:"throws,omitempty" yaml:"throws,omitempty"`
	StartLine   int        `json:"start_line" yaml:"start_line"`
	EndLine     int        `json:"end_line" yaml:"end_line"`
}

// Lines is the declaration's length in source lines.
func (m JavaMethod) Lines() int {
	return m.EndLine - m.StartLine + 1
}

// Signature renders the method as Java source, without the body.
func (m JavaMethod) Signature() string {
	var sb strings.Builder
	for _, mod := range m.Modifiers {
		if strings.HasPrefix(mod, "@") {
			continue
		}
		sb.WriteString(mod)
		sb.WriteByte(' ')
	}
	if !m.Constructor {
		sb.WriteString(m.ReturnType)
		sb.WriteByte(' ')
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
		if p.VarArgs {
			sb.WriteString("...")
		}
		sb.WriteByte(' ')
		sb.WriteString(p.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// JavaField is a field declarator.
type JavaField struct {
	Name       string     `json:"name" yaml:"name"`
	Type       string     `json:"type" yaml:"type"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
	Constant   bool       `json:"constant,omitempty" yaml:"constant,omitempty"`
	Line       int        `json:"line" yaml:"line"`
}

// JavaClass is a class-like declaration. Nested types are listed as
// separate classes with a binary name such as Outer$Inner.
type JavaClass struct {
	Name       string       `json:"name" yaml:"name"`
	BinaryName string       `json:"binary_name" yaml:"binary_name"`
	Kind       string       `json:"kind" yaml:"kind"`
	Modifiers  []string     `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Visibility Visibility   `json:"visibility" yaml:"visibility"`
	Extends    string       `json:"extends,omitempty" yaml:"extends,omitempty"`
	Implements []string     `json:"implements,omitempty" yaml:"implements,omitempty"`
	Methods    []JavaMethod `json:"methods" yaml:"methods"`
	Fields     []JavaField  `json:"fields,omitempty" yaml:"fields,omitempty"`
	StartLine  int          `json:"start_line" yaml:"start_line"`
	EndLine    int          `json:"end_line" yaml:"end_line"`
	// Exposed is true when the class and every enclosing type are public.
	Exposed bool `json:"exposed" yaml:"exposed"`
}

// PublicMethods returns the public methods and constructors in order.
func (c JavaClass) PublicMethods() []JavaMethod {
	var out []JavaMethod
	for _, m := range c.Methods {
		if m.Visibility == VisibilityPublic {
			out = append(out, m)
		}
	}
	return out
}

// JavaFile is the extracted structure of one source file.
type JavaFile struct {
	Path         string      `json:"path" yaml:"path"`
	Package      string      `json:"package,omitempty" yaml:"package,omitempty"`
	Imports      []string    `json:"imports,omitempty" yaml:"imports,omitempty"`
	Classes      []JavaClass `json:"classes" yaml:"classes"`
	Lines        int         `json:"lines" yaml:"lines"`
	SyntaxErrors []string    `json:"syntax_errors,omitempty" yaml:"syntax_errors,omitempty"`

	source []byte
}

// Source returns the file content the structure was extracted from.
func (f *JavaFile) Source() []byte {
	return f.source
}

// Class returns the class with the given simple or binary name.
func (f *JavaFile) Class(name string) (JavaClass, bool) {
	for _, c := range f.Classes {
		if c.BinaryName == name || c.Name == name {
			return c, true
		}
	}
	return JavaClass{}, false
}

// ExtractJavaFile parses and extracts the file at path.
func ExtractJavaFile(ctx context.Context, path string) (*JavaFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := parser.NewParser(parser.Java)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	result, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	return ExtractJava(result), nil
}

// ExtractJavaSource parses and extracts in-memory source.
func ExtractJavaSource(path string, source []byte) (*JavaFile, error) {
	p, err := parser.NewParser(parser.Java)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	result, err := p.Parse(source)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	result.FilePath = path
	return ExtractJava(result), nil
}

// ExtractJava walks a parse result. tree-sitter recovers from syntax
// errors, so a partially broken file still yields what it can; the errors
// are listed on the result.
func ExtractJava(result *parser.ParseResult) *JavaFile {
	e := &javaExtractor{result: result}
	f := &JavaFile{
		Path:   result.FilePath,
		Lines:  countLines(result.Source),
		source: result.Source,
	}
	for _, se := range result.SyntaxErrors() {
		f.SyntaxErrors = append(f.SyntaxErrors, se.Error())
	}

	root := result.Root
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			f.Package = e.packageName(child)
		case "import_declaration":
			f.Imports = append(f.Imports, e.importName(child))
		default:
			if parser.IsTypeDeclaration(child) {
				f.Classes = append(f.Classes, e.types(child, "", true)...)
			}
		}
	}
	return f
}

type javaExtractor struct {
	result *parser.ParseResult
}

func (e *javaExtractor) text(n *sitter.Node) string {
	return e.result.NodeText(n)
}

func (e *javaExtractor) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return e.text(c)
		}
	}
	return ""
}

func (e *javaExtractor) importName(n *sitter.Node) string {
	s := strings.TrimSpace(e.text(n))
	s = strings.TrimPrefix(s, "import")
	s = strings.TrimSuffix(s, ";")
	return strings.Join(strings.Fields(s), " ")
}

// types extracts a type declaration and, recursively, its member types.
func (e *javaExtractor) types(n *sitter.Node, outer string, outerExposed bool) []JavaClass {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.text(nameNode)
	binary := name
	if outer != "" {
		binary = outer + "$" + name
	}

	modifiers := e.modifiers(n)
	kind := parser.DeclarationKind(n)
	vis := visibilityOf(modifiers)
	if outer != "" && vis == VisibilityPackage && e.inInterface(n) {
		vis = VisibilityPublic
	}
	start, end := lineRange(n)
	cls := JavaClass{
		Name:       name,
		BinaryName: binary,
		Kind:       kind,
		Modifiers:  modifiers,
		Visibility: vis,
		StartLine:  start,
		EndLine:    end,
		Exposed:    outerExposed && vis == VisibilityPublic,
	}
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		cls.Extends = strings.TrimSpace(strings.TrimPrefix(e.text(sc), "extends"))
	}
	if ifs := n.ChildByFieldName("interfaces"); ifs != nil {
		cls.Implements = e.typeList(ifs)
	}

	out := []JavaClass{}
	var nested []JavaClass
	body := n.ChildByFieldName("body")
	if body != nil {
		interfaceBody := kind == "interface" || kind == "annotation"
		e.members(body, &cls, interfaceBody, func(child *sitter.Node) {
			nested = append(nested, e.types(child, binary, cls.Exposed)...)
		})
	}
	out = append(out, cls)
	return append(out, nested...)
}

// members collects methods and fields from a type body. Enum bodies keep
// their members under enum_body_declarations.
func (e *javaExtractor) members(body *sitter.Node, cls *JavaClass, interfaceBody bool, nestedType func(*sitter.Node)) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
			cls.Methods = append(cls.Methods, e.method(child, cls.Name, interfaceBody))
		case "field_declaration", "constant_declaration":
			cls.Fields = append(cls.Fields, e.fields(child, interfaceBody)...)
		case "enum_body_declarations":
			e.members(child, cls, false, nestedType)
		default:
			if parser.IsTypeDeclaration(child) {
				nestedType(child)
			}
		}
	}
}

func (e *javaExtractor) method(n *sitter.Node, className string, interfaceBody bool) JavaMethod {
	modifiers := e.modifiers(n)
	m := JavaMethod{
		Modifiers:   modifiers,
		Visibility:  visibilityOf(modifiers),
		Constructor: n.Type() != "method_declaration",
	}
	if interfaceBody && m.Visibility == VisibilityPackage {
		m.Visibility = VisibilityPublic
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		m.Name = e.text(nameNode)
	} else {
		m.Name = className
	}
	if !m.Constructor {
		if t := n.ChildByFieldName("type"); t != nil {
			m.ReturnType = e.text(t)
		}
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			m.ReturnType += e.text(dims)
		}
	}
	m.Params = e.params(n.ChildByFieldName("parameters"))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "throws" {
			m.Throws = e.typeList(c)
		}
	}
	m.StartLine, m.EndLine = lineRange(n)
	return m
}

func (e *javaExtractor) params(n *sitter.Node) []Param {
	params := []Param{}
	if n == nil {
		return params
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "formal_parameter":
			p := Param{}
			if t := c.ChildByFieldName("type"); t != nil {
				p.Type = e.text(t)
			}
			if name := c.ChildByFieldName("name"); name != nil {
				p.Name = e.text(name)
			}
			if dims := c.ChildByFieldName("dimensions"); dims != nil {
				p.Type += e.text(dims)
			}
			params = append(params, p)
		case "spread_parameter":
			p := Param{VarArgs: true}
			for j := 0; j < int(c.NamedChildCount()); j++ {
				cc := c.NamedChild(j)
				switch {
				case cc.Type() == "variable_declarator":
					if name := cc.ChildByFieldName("name"); name != nil {
						p.Name = e.text(name)
					}
				case cc.Type() == "modifiers":
				case p.Type == "":
					p.Type = e.text(cc)
				}
			}
			params = append(params, p)
		}
	}
	return params
}

func (e *javaExtractor) fields(n *sitter.Node, interfaceBody bool) []JavaField {
	modifiers := e.modifiers(n)
	vis := visibilityOf(modifiers)
	constant := interfaceBody || (contains(modifiers, "static") && contains(modifiers, "final"))
	if interfaceBody {
		vis = VisibilityPublic
	}
	typeName := ""
	if t := n.ChildByFieldName("type"); t != nil {
		typeName = e.text(t)
	}
	line, _ := lineRange(n)

	var out []JavaField
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		if name := d.ChildByFieldName("name"); name != nil {
			out = append(out, JavaField{Name: e.text(name), Type: typeName, Visibility: vis, Constant: constant, Line: line})
		}
	}
	return out
}

// modifiers returns modifier keywords and annotations ("@Override").
func (e *javaExtractor) modifiers(n *sitter.Node) []string {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			m := c.Child(j)
			switch {
			case isJavaModifier(m.Type()):
				mods = append(mods, m.Type())
			case m.Type() == "marker_annotation" || m.Type() == "annotation":
				if name := m.ChildByFieldName("name"); name != nil {
					mods = append(mods, "@"+e.text(name))
				}
			}
		}
	}
	return mods
}

func (e *javaExtractor) typeList(n *sitter.Node) []string {
	var types []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_list":
			types = append(types, e.typeList(c)...)
		case "type_identifier", "generic_type", "scoped_type_identifier":
			types = append(types, e.text(c))
		}
	}
	return types
}

// inInterface reports whether n is declared directly in an interface body.
func (e *javaExtractor) inInterface(n *sitter.Node) bool {
	body := n.Parent()
	if body == nil {
		return false
	}
	return body.Type() == "interface_body"
}

var javaModifiers = map[string]bool{
	"public":       true,
	"private":      true,
	"protected":    true,
	"static":       true,
	"final":        true,
	"abstract":     true,
	"synchronized": true,
	"native":       true,
	"transient":    true,
	"volatile":     true,
	"strictfp":     true,
	"default":      true,
	"sealed":       true,
	"non-sealed":   true,
}

func isJavaModifier(nodeType string) bool {
	return javaModifiers[nodeType]
}

// visibilityOf maps modifiers to an access level; no modifier is
// package-private.
func visibilityOf(modifiers []string) Visibility {
	for _, m := range modifiers {
		switch m {
		case "public":
			return VisibilityPublic
		case "protected":
			return VisibilityProtected
		case "private":
			return VisibilityPrivate
		}
	}
	return VisibilityPackage
}

// lineRange returns 1-based start and end lines.
func lineRange(n *sitter.Node) (int, int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := strings.Count(string(src), "\n")
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
