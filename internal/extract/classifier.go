package extract

import (
	"strings"

	"github.com/testforge/covagent/internal/coverage"
)

// SourceClassifier tags coverage nodes as public API using the access
// modifiers declared in source. A method is public API when it is public
// and its class, and every enclosing class, is public too.
type SourceClassifier struct {
	classes map[string]JavaClass
	// Fallback decides nodes whose class has no extracted source.
	// Nil means such nodes are not public API.
	Fallback coverage.PublicAPIClassifier
}

// NewSourceClassifier indexes the classes of the given files.
func NewSourceClassifier(files []*JavaFile) *SourceClassifier {
	sc := &SourceClassifier{classes: make(map[string]JavaClass)}
	for _, f := range files {
		for _, c := range f.Classes {
			sc.classes[classKey(f.Package, c.BinaryName)] = c
		}
	}
	return sc
}

// Len returns the number of indexed classes.
func (sc *SourceClassifier) Len() int {
	return len(sc.classes)
}

func classKey(pkg, binary string) string {
	if pkg == "" {
		return binary
	}
	return pkg + "." + binary
}

// IsPublicAPI implements coverage.PublicAPIClassifier.
func (sc *SourceClassifier) IsPublicAPI(n *coverage.Node) bool {
	switch n.Kind {
	case coverage.KindClass:
		c, ok := sc.classes[classKey(n.Package, n.Name)]
		if !ok {
			return sc.fallback(n)
		}
		return c.Exposed
	case coverage.KindMethod:
		c, ok := sc.classes[classKey(n.Package, n.Class)]
		if !ok {
			return sc.fallback(n)
		}
		if !c.Exposed {
			return false
		}
		m, ok := matchMethod(c, n)
		return ok && m.Visibility == VisibilityPublic
	}
	return false
}

func (sc *SourceClassifier) fallback(n *coverage.Node) bool {
	if sc.Fallback == nil {
		return false
	}
	return sc.Fallback.IsPublicAPI(n)
}

// matchMethod finds the source declaration for a coverage method node,
// using the JVM descriptor to pick among overloads.
func matchMethod(c JavaClass, n *coverage.Node) (JavaMethod, bool) {
	name := n.Name
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	constructor := name == "<init>"

	var candidates []JavaMethod
	for _, m := range c.Methods {
		if (constructor && m.Constructor) || (!constructor && !m.Constructor && m.Name == name) {
			candidates = append(candidates, m)
		}
	}
	switch len(candidates) {
	case 0:
		return JavaMethod{}, false
	case 1:
		return candidates[0], true
	}

	params, ok := descriptorParams(n.Desc)
	if !ok {
		return candidates[0], true
	}
	for _, m := range candidates {
		if paramsMatch(m.Params, params) {
			return m, true
		}
	}
	for _, m := range candidates {
		if len(m.Params) == len(params) {
			return m, true
		}
	}
	return JavaMethod{}, false
}

func paramsMatch(src []Param, desc []string) bool {
	if len(src) != len(desc) {
		return false
	}
	for i, p := range src {
		t := erasure(p.Type)
		if p.VarArgs {
			t += "[]"
		}
		if t != desc[i] && !isTypeVariable(p.Type) {
			return false
		}
	}
	return true
}

// erasure reduces a source type to the simple name the descriptor carries:
// java.util.List<String> becomes List, Map.Entry<K,V>[] becomes Entry[].
func erasure(t string) string {
	t = strings.TrimSpace(t)
	dims := ""
	for strings.HasSuffix(t, "[]") {
		dims += "[]"
		t = strings.TrimSpace(strings.TrimSuffix(t, "[]"))
	}
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	if fields := strings.Fields(t); len(fields) > 0 {
		t = fields[len(fields)-1]
	}
	return t + dims
}

// isTypeVariable guesses whether t names a generic type parameter, whose
// descriptor type is its bound.
func isTypeVariable(t string) bool {
	t = strings.TrimSuffix(strings.TrimSpace(t), "[]")
	return len(t) == 1 && t[0] >= 'A' && t[0] <= 'Z'
}

var descriptorPrimitives = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// descriptorParams decodes the parameter types of a JVM method descriptor
// such as (Ljava/lang/String;I[J)V into simple names.
func descriptorParams(desc string) ([]string, bool) {
	if !strings.HasPrefix(desc, "(") {
		return nil, false
	}
	end := strings.IndexByte(desc, ')')
	if end < 0 {
		return nil, false
	}
	s := desc[1:end]
	params := []string{}
	for len(s) > 0 {
		dims := ""
		for len(s) > 0 && s[0] == '[' {
			dims += "[]"
			s = s[1:]
		}
		if len(s) == 0 {
			return nil, false
		}
		if s[0] == 'L' {
			semi := strings.IndexByte(s, ';')
			if semi < 0 {
				return nil, false
			}
			name := s[1:semi]
			if i := strings.LastIndexAny(name, "/$"); i >= 0 {
				name = name[i+1:]
			}
			params = append(params, name+dims)
			s = s[semi+1:]
			continue
		}
		prim, ok := descriptorPrimitives[s[0]]
		if !ok {
			return nil, false
		}
		params = append(params, prim+dims)
		s = s[1:]
	}
	return params, true
}
