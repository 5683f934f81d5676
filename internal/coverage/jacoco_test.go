package coverage

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Node {
	t.Helper()
	data, err := os.ReadFile("testdata/jacoco.xml")
	require.NoError(t, err)
	root, err := Parse(data)
	require.NoError(t, err)
	return root
}

func TestParse_Structure(t *testing.T) {
	root := loadFixture(t)

	assert.Equal(t, "commons-lang3", root.Name)
	assert.Equal(t, KindReport, root.Kind)
	require.Len(t, root.Children, 2)

	util := root.Children[0]
	assert.Equal(t, "org.acme.util", util.Name)
	assert.Equal(t, KindPackage, util.Kind)
	require.Len(t, util.Children, 2)

	strUtils := util.Children[0]
	assert.Equal(t, "StringUtils", strUtils.Name)
	assert.Equal(t, "StringUtils.java", strUtils.SourceFile)
	assert.Equal(t, "org.acme.util.StringUtils", strUtils.QualifiedName())

	var names []string
	for _, m := range strUtils.Children {
		names = append(names, m.Name)
		assert.Equal(t, KindMethod, m.Kind)
	}
	assert.Equal(t, []string{
		"<init>",
		"isEmpty",
		"abbreviate(Ljava/lang/String;I)Ljava/lang/String;",
		"abbreviate(Ljava/lang/String;II)Ljava/lang/String;",
	}, names, "document order kept, overloads disambiguated")

	isEmpty := strUtils.Children[1]
	assert.Equal(t, 14, isEmpty.Line)
	assert.Equal(t, "org.acme.util.StringUtils.isEmpty", isEmpty.QualifiedName())
	assert.Equal(t, Counter{Covered: 3, Missed: 1}, isEmpty.Metrics[MetricBranch])

	assert.Equal(t, "Range$Builder", util.Children[1].Name)
}

func TestParse_MissingKindsAreAbsent(t *testing.T) {
	root := loadFixture(t)
	ctor := root.Children[0].Children[0].Children[0]

	_, ok := ctor.Counter(MetricBranch)
	assert.False(t, ok, "constructor has no BRANCH counter")
	assert.Equal(t, []MetricKind{MetricInstruction, MetricLine, MetricComplexity, MetricMethod}, ctor.MetricKinds())
}

func TestParse_UnknownCounterTypesIgnored(t *testing.T) {
	root := loadFixture(t)
	add := root.Children[1].Children[0].Children[0]

	assert.Equal(t, "add", add.Name)
	assert.Len(t, add.Metrics, 3)
	_, ok := add.Metrics[MetricKind("FUTURE_KIND")]
	assert.False(t, ok)
}

func TestParse_ElementWithoutCountersKept(t *testing.T) {
	root := loadFixture(t)
	empty := root.Children[1].Children[1]

	assert.Equal(t, "Empty", empty.Name)
	assert.NotNil(t, empty.Metrics)
	assert.Empty(t, empty.Metrics)
	assert.Empty(t, empty.Children)
}

func TestParse_Groups(t *testing.T) {
	data := `<report name="multi">
  <group name="core">
    <package name="a"><class name="a/A"><counter type="LINE" missed="1" covered="1"/></class></package>
  </group>
  <group name="web">
    <group name="api">
      <package name="b"><class name="b/B"><counter type="LINE" missed="2" covered="0"/></class></package>
    </group>
  </group>
</report>`

	root, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.Equal(t, KindGroup, root.Children[0].Kind)
	assert.Equal(t, "api", root.Children[1].Children[0].Name)
	assert.Equal(t, "B", root.Children[1].Children[0].Children[0].Children[0].Name)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine bool
		contains string
	}{
		{
			name:     "truncated document",
			input:    "<report name=\"x\">\n<package name=\"a\">\n<class",
			wantLine: true,
		},
		{
			name:     "non numeric counter",
			input:    "<report name=\"x\">\n<package name=\"a\">\n<counter type=\"LINE\" missed=\"many\" covered=\"1\"/>\n</package>\n</report>",
			wantLine: true,
		},
		{
			name:     "wrong root element",
			input:    "<coverage/>",
			contains: "report",
		},
		{
			name:     "empty input",
			input:    "   \n",
			contains: "empty report",
		},
		{
			name:     "not xml",
			input:    "{\"report\": true}",
		},
		{
			name:     "negative counter",
			input:    `<report name="x"><package name="a"><class name="a/A"><counter type="LINE" missed="-1" covered="1"/></class></package></report>`,
			contains: `class "A"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseReader(strings.NewReader(tt.input), "jacoco.xml")
			require.Error(t, err)
			assert.Nil(t, root)

			var merr *MalformedReportError
			require.True(t, errors.As(err, &merr), "got %T", err)
			assert.Equal(t, "jacoco.xml", merr.Source)
			if tt.wantLine {
				assert.Greater(t, merr.Line, 0)
				assert.Contains(t, merr.Location(), "jacoco.xml:")
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestParseMetricKind(t *testing.T) {
	k, ok := ParseMetricKind("branch")
	assert.True(t, ok)
	assert.Equal(t, MetricBranch, k)

	_, ok = ParseMetricKind("MUTATION")
	assert.False(t, ok)
}
