package testgen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/main/java/org/apache/commons/lang3/StringUtils.java", "org.apache.commons.lang3"},
		{"org/acme/Foo.java", "org.acme"},
		{"./org/acme/Foo.java", "org.acme"},
		{"module/src/main/java/org/acme/Foo.java", "org.acme"},
		{"Foo.java", DefaultPackage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PackageFromPath(tt.path), tt.path)
	}
	assert.Equal(t, "Foo", ClassNameFromPath("org/acme/Foo.java"))
}

func TestRenderJUnit_Skeleton(t *testing.T) {
	tmpl, err := RenderJUnit(TemplateData{ClassPath: "src/main/java/org/acme/Calc.java", MethodName: "divide"})
	require.NoError(t, err)

	assert.Equal(t, "org.acme", tmpl.Package)
	assert.Equal(t, "CalcTest", tmpl.TestClassName)
	assert.Equal(t, "junit4", tmpl.Framework)

	code := tmpl.Code
	assert.True(t, strings.HasPrefix(code, "package org.acme;\n\nimport org.junit.Test;\nimport static org.junit.Assert.*;\n\n"))
	assert.Contains(t, code, "public class CalcTest {")
	assert.Contains(t, code, "public void testDivideNormal()")
	assert.Contains(t, code, "public void testDivideEdgeCase()")
	assert.Contains(t, code, "@Test(expected = Exception.class)\n    public void testDivideException()")
	assert.True(t, strings.HasSuffix(code, "    }\n}\n"))
}

func TestRenderJUnit_JUnit5(t *testing.T) {
	tmpl, err := RenderJUnit(TemplateData{ClassPath: "Calc.java", MethodName: "divide", Framework: JUnit5})
	require.NoError(t, err)
	assert.Contains(t, tmpl.Code, "import org.junit.jupiter.api.Test;")
	assert.Contains(t, tmpl.Code, "assertThrows(Exception.class")
	assert.NotContains(t, tmpl.Code, "expected = Exception.class")
}

func TestRenderJUnit_WithCases(t *testing.T) {
	ranges := ParameterRanges{
		{Name: "n", Type: TypeInt, Min: Int(0), Max: Int(2147483647)},
		{Name: "scale", Type: TypeLong, Min: Int(1), Max: Int(3)},
		{Name: "name", Type: TypeString},
	}
	res, err := GenerateBoundaryCases(ranges, BoundaryOptions{MethodName: "pad"})
	require.NoError(t, err)

	tmpl, err := RenderJUnit(TemplateData{ClassPath: "org/acme/Text.java", MethodName: "pad", Cases: res.Cases})
	require.NoError(t, err)
	code := tmpl.Code

	assert.Contains(t, code, "public void testPad_n_AtMin() {\n        int n = 0;\n        long scale = 2L;\n        String name = \"a\";\n        // Expected: Valid: n at minimum\n")
	assert.Contains(t, code, "// int n = 2147483648; (not representable as int)")
	assert.Contains(t, code, "// Warning: potential overflow")
	assert.Contains(t, code, "String name = null;")
	assert.Equal(t, len(res.Cases)+3, strings.Count(code, "@Test"))
}

func TestRenderJUnit_EquivalenceCases(t *testing.T) {
	cases, err := GenerateEquivalenceCases(EquivalenceClassSet{Valid: []string{"non empty", "non-empty"}}, EquivalenceOptions{MethodName: "trim"})
	require.NoError(t, err)

	tmpl, err := RenderJUnit(TemplateData{ClassPath: "Str.java", MethodName: "trim", Cases: cases})
	require.NoError(t, err)
	assert.Contains(t, tmpl.Code, "public void testTrim_Valid_NonEmpty()")
	assert.Contains(t, tmpl.Code, "public void testTrim_Valid_NonEmpty2()", "colliding names are numbered")
	assert.Contains(t, tmpl.Code, `Object input = null; // <representative of "non empty">`)
}

func TestRenderJUnit_Invalid(t *testing.T) {
	_, err := RenderJUnit(TemplateData{ClassPath: "Foo.java"})
	var derr *InvalidDescriptionError
	assert.ErrorAs(t, err, &derr)

	_, err = ParseFramework("testng")
	assert.Error(t, err)
	f, err := ParseFramework("5")
	require.NoError(t, err)
	assert.Equal(t, JUnit5, f)
}

func TestJavaLiteral(t *testing.T) {
	tests := []struct {
		typ  ParamType
		v    any
		want string
	}{
		{TypeInt, int64(-3), "-3"},
		{TypeLong, int64(7), "7L"},
		{TypeLong, json.Number("9223372036854775808"), "9223372036854775808L"},
		{TypeDouble, 0.5, "0.5"},
		{TypeDouble, 2.0, "2.0"},
		{TypeDouble, 3, "3.0"},
		{TypeString, "say \"hi\"", `"say \"hi\""`},
		{TypeBoolean, false, "false"},
		{TypeObject, nil, "null"},
		{TypeObject, Placeholder("<x>"), "null"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, javaLiteral(tt.typ, tt.v), "%v", tt.v)
	}
}
