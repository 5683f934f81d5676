package coverage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// jacocoReport mirrors the root of a jacoco.xml document.
type jacocoReport struct {
	XMLName     xml.Name            `xml:"report"`
	Name        string              `xml:"name,attr"`
	SessionInfo []jacocoSessionInfo `xml:"sessioninfo"`
	Groups      []jacocoGroup       `xml:"group"`
	Packages    []jacocoPackage     `xml:"package"`
	Counters    []jacocoCounter     `xml:"counter"`
}

type jacocoSessionInfo struct {
	ID    string `xml:"id,attr"`
	Start int64  `xml:"start,attr"`
	Dump  int64  `xml:"dump,attr"`
}

type jacocoGroup struct {
	Name     string          `xml:"name,attr"`
	Groups   []jacocoGroup   `xml:"group"`
	Packages []jacocoPackage `xml:"package"`
	Counters []jacocoCounter `xml:"counter"`
}

type jacocoPackage struct {
	Name     string          `xml:"name,attr"`
	Classes  []jacocoClass   `xml:"class"`
	Counters []jacocoCounter `xml:"counter"`
}

type jacocoClass struct {
	Name           string          `xml:"name,attr"`
	SourceFileName string          `xml:"sourcefilename,attr"`
	Methods        []jacocoMethod  `xml:"method"`
	Counters       []jacocoCounter `xml:"counter"`
}

type jacocoMethod struct {
	Name     string          `xml:"name,attr"`
	Desc     string          `xml:"desc,attr"`
	Line     int             `xml:"line,attr"`
	Counters []jacocoCounter `xml:"counter"`
}

type jacocoCounter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

// Parse converts raw jacoco.xml content into a report tree.
// The returned root has kind KindReport; call Aggregate to roll counters up.
func Parse(data []byte) (*Node, error) {
	return parse(data, "")
}

// ParseReader reads all of r and parses it. source names the artifact in errors.
func ParseReader(r io.Reader, source string) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedReportError{Source: source, Err: err}
	}
	return parse(data, source)
}

func parse(data []byte, source string) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedReportError{Source: source, Err: errors.New("empty report")}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var raw jacocoReport
	if err := dec.Decode(&raw); err != nil {
		return nil, malformedAt(data, source, dec.InputOffset(), err)
	}

	p := &reportBuilder{source: source}
	root := NewNode(raw.Name, KindReport)
	if err := p.counters(root, raw.Counters); err != nil {
		return nil, err
	}
	for _, g := range raw.Groups {
		child, err := p.group(g)
		if err != nil {
			return nil, err
		}
		root.AddChild(child)
	}
	for _, pkg := range raw.Packages {
		child, err := p.pkg(pkg)
		if err != nil {
			return nil, err
		}
		root.AddChild(child)
	}
	return root, nil
}

// reportBuilder converts decoded jacoco elements into nodes.
type reportBuilder struct {
	source string
}

func (b *reportBuilder) group(g jacocoGroup) (*Node, error) {
	n := NewNode(g.Name, KindGroup)
	if err := b.counters(n, g.Counters); err != nil {
		return nil, err
	}
	for _, sub := range g.Groups {
		child, err := b.group(sub)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	for _, pkg := range g.Packages {
		child, err := b.pkg(pkg)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

func (b *reportBuilder) pkg(p jacocoPackage) (*Node, error) {
	pkgName := strings.ReplaceAll(p.Name, "/", ".")
	n := NewNode(pkgName, KindPackage)
	n.Package = pkgName
	if err := b.counters(n, p.Counters); err != nil {
		return nil, err
	}
	for _, c := range p.Classes {
		child, err := b.class(pkgName, c)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

func (b *reportBuilder) class(pkgName string, c jacocoClass) (*Node, error) {
	n := NewNode(simpleClassName(c.Name), KindClass)
	n.Package = pkgName
	n.SourceFile = c.SourceFileName
	if err := b.counters(n, c.Counters); err != nil {
		return nil, err
	}

	overloads := make(map[string]int, len(c.Methods))
	for _, m := range c.Methods {
		overloads[m.Name]++
	}
	for _, m := range c.Methods {
		name := m.Name
		if overloads[m.Name] > 1 {
			name = m.Name + m.Desc
		}
		child := NewNode(name, KindMethod)
		child.Package = pkgName
		child.Class = n.Name
		child.SourceFile = c.SourceFileName
		child.Desc = m.Desc
		child.Line = m.Line
		if err := b.counters(child, m.Counters); err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

// counters copies recognized counters onto n. Unknown counter types are skipped.
func (b *reportBuilder) counters(n *Node, counters []jacocoCounter) error {
	for _, c := range counters {
		kind, ok := ParseMetricKind(c.Type)
		if !ok {
			continue
		}
		if c.Covered < 0 || c.Missed < 0 {
			return &MalformedReportError{
				Source:  b.source,
				Element: fmt.Sprintf("%s %q", strings.ToLower(string(n.Kind)), n.Name),
				Err:     fmt.Errorf("negative %s counter (covered=%d, missed=%d)", kind, c.Covered, c.Missed),
			}
		}
		n.Metrics[kind] = Counter{Covered: c.Covered, Missed: c.Missed}
	}
	return nil
}

// simpleClassName strips the package path from a JVM class name.
// Nested classes keep their "$" suffix so siblings stay unique.
func simpleClassName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// malformedAt builds a MalformedReportError, locating the failure by line when possible.
func malformedAt(data []byte, source string, offset int64, err error) *MalformedReportError {
	if errors.Is(err, io.EOF) {
		err = errors.New("unexpected end of document")
	}
	merr := &MalformedReportError{Source: source, Offset: offset, Err: err}

	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		merr.Line = syn.Line
		return merr
	}
	if offset > 0 && offset <= int64(len(data)) {
		merr.Line = bytes.Count(data[:offset], []byte("\n")) + 1
	}
	return merr
}
