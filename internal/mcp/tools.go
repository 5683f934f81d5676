package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/testforge/covagent/internal/workflow"
)

// DefaultTools is the default set of tools to expose: everything.
var DefaultTools = AllTools

// AllTools lists all available tools in presentation order.
var AllTools = []string{
	"run_maven_tests",
	"analyze_coverage",
	"identify_uncovered_code",
	"prioritize_gaps",
	"generate_boundary_value_tests",
	"generate_equivalence_class_tests",
	"generate_test_template",
	"analyze_java_class",
	"detect_code_smells",
	"run_static_analysis",
	"git_status",
	"git_add_all",
	"git_commit",
	"git_push",
	"git_pull_request",
	"coverage_history",
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

var (
	projectParam = ParameterSchema{Name: "project_path", Type: "string", Description: "Maven project directory (default: configured project path)"}
	repoParam    = ParameterSchema{Name: "repo_path", Type: "string", Description: "Git repository directory (default: configured project path)"}
	reportParams = []ParameterSchema{
		projectParam,
		{Name: "report_path", Type: "string", Description: "JaCoCo XML report, relative to the project (default: target/site/jacoco/jacoco.xml)"},
		{Name: "all_modules", Type: "boolean", Description: "Merge the reports of every module of a multi-module build"},
	}
	classParams = []ParameterSchema{
		{Name: "class_path", Type: "string", Description: "Java source path relative to src/main/java, e.g. org/apache/commons/lang3/StringUtils.java", Required: true},
		{Name: "method_name", Type: "string", Description: "Method under test", Required: true},
	}
	renderParams = []ParameterSchema{
		{Name: "framework", Type: "string", Description: "junit4 or junit5 (default: configured framework)"},
		{Name: "render", Type: "boolean", Description: "Also render a JUnit test class containing the cases"},
	}
)

func params(groups ...[]ParameterSchema) []ParameterSchema {
	var out []ParameterSchema
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// toolSchemaRegistry holds the schema definitions for all tools. The MCP
// tool definitions are built from it, so the two cannot drift.
var toolSchemaRegistry = map[string]ToolSchema{
	"run_maven_tests": {
		Name:        "run_maven_tests",
		Description: "Run 'mvn clean test' and 'mvn jacoco:report'. Returns exit codes, output tails, the surefire summary, coverage totals and the change since the last recorded run.",
		Parameters:  []ParameterSchema{projectParam},
	},
	"analyze_coverage": {
		Name:        "analyze_coverage",
		Description: "Summarize the JaCoCo report: totals per metric and LINE coverage per package.",
		Parameters:  reportParams,
	},
	"identify_uncovered_code": {
		Name:        "identify_uncovered_code",
		Description: "List methods whose line coverage is below a threshold, lowest first.",
		Parameters: params(reportParams, []ParameterSchema{
			{Name: "threshold", Type: "number", Description: "Coverage percentage below which a method is listed (default: 50)"},
			{Name: "limit", Type: "number", Description: "Maximum methods to list, 0 for all (default: 20)"},
		}),
	},
	"prioritize_gaps": {
		Name:        "prioritize_gaps",
		Description: "Rank classes and methods by how much testing they need: uncovered units weighted up for public API, grouped into critical/high/medium/low tiers.",
		Parameters: params(reportParams, []ParameterSchema{
			{Name: "threshold", Type: "number", Description: "Coverage percentage below which a node is a gap (default: 50)"},
			{Name: "metric", Type: "string", Description: "INSTRUCTION, BRANCH, LINE, COMPLEXITY, METHOD or CLASS (default: LINE)"},
			{Name: "scope", Type: "string", Description: "leaves, all, classes or methods (default: leaves)"},
			{Name: "limit", Type: "number", Description: "Maximum gaps to return, 0 for all (default: 20)"},
			{Name: "exclude", Type: "array", Description: "Glob patterns matched against paths such as org/acme/Foo/bar"},
			{Name: "public_api_weight", Type: "number", Description: "Score multiplier for public API (default: 2)"},
			{Name: "classifier", Type: "string", Description: "How to detect public API: source, naming or none (default: source)"},
			{Name: "by_priority", Type: "boolean", Description: "Group the gaps by priority tier"},
		}),
	},
	"generate_boundary_value_tests": {
		Name:        "generate_boundary_value_tests",
		Description: "Generate boundary value test cases: seven per ranged numeric parameter (min-1, min, min+1, nominal, max-1, max, max+1), three for the others (nominal, empty, null).",
		Parameters: params(classParams, []ParameterSchema{
			{Name: "param_ranges", Type: "string", Description: `Parameter description as JSON or YAML, e.g. {"maxWidth": {"type": "int", "min": 4, "max": 100}}. Pass a string to keep parameter order.`, Required: true},
		}, renderParams),
	},
	"generate_equivalence_class_tests": {
		Name:        "generate_equivalence_class_tests",
		Description: "Generate one test case per equivalence class, valid classes first.",
		Parameters: params(classParams, []ParameterSchema{
			{Name: "equivalence_classes", Type: "string", Description: `Classes as JSON or YAML, e.g. {"valid": ["positive"], "invalid": ["negative", "null"]}`, Required: true},
			{Name: "parameter", Type: "string", Description: "Input the class placeholder binds to (default: input)"},
		}, renderParams),
	},
	"generate_test_template": {
		Name:        "generate_test_template",
		Description: "Render a JUnit test class skeleton with normal, edge case and exception tests for one method.",
		Parameters: params(classParams, []ParameterSchema{
			{Name: "framework", Type: "string", Description: "junit4 or junit5 (default: configured framework)"},
		}),
	},
	"analyze_java_class": {
		Name:        "analyze_java_class",
		Description: "Parse a Java source file and list its classes, public method signatures and test recommendations.",
		Parameters: []ParameterSchema{
			projectParam,
			classParams[0],
		},
	},
	"detect_code_smells": {
		Name:        "detect_code_smells",
		Description: "Detect long methods, large classes, long parameter lists, magic numbers and duplicated lines in a Java source file.",
		Parameters: []ParameterSchema{
			projectParam,
			classParams[0],
		},
	},
	"run_static_analysis": {
		Name:        "run_static_analysis",
		Description: "Run 'mvn checkstyle:check' and 'mvn pmd:check' and report violations.",
		Parameters:  []ParameterSchema{projectParam},
	},
	"git_status": {
		Name:        "git_status",
		Description: "Show staged, unstaged, untracked and conflicted files.",
		Parameters:  []ParameterSchema{repoParam},
	},
	"git_add_all": {
		Name:        "git_add_all",
		Description: "Stage all changes with 'git add -A' and list what is staged.",
		Parameters:  []ParameterSchema{repoParam},
	},
	"git_commit": {
		Name:        "git_commit",
		Description: "Commit staged changes.",
		Parameters: []ParameterSchema{
			repoParam,
			{Name: "message", Type: "string", Description: "Commit message", Required: true},
		},
	},
	"git_push": {
		Name:        "git_push",
		Description: "Push a branch to a remote.",
		Parameters: []ParameterSchema{
			repoParam,
			{Name: "remote", Type: "string", Description: "Remote name (default: origin)"},
			{Name: "branch", Type: "string", Description: "Branch to push (default: current branch)"},
		},
	},
	"git_pull_request": {
		Name:        "git_pull_request",
		Description: "Open a pull request for the current branch with the GitHub CLI.",
		Parameters: []ParameterSchema{
			repoParam,
			{Name: "title", Type: "string", Description: "Pull request title", Required: true},
			{Name: "body", Type: "string", Description: "Pull request description"},
			{Name: "base", Type: "string", Description: "Base branch (default: main)"},
		},
	},
	"coverage_history": {
		Name:        "coverage_history",
		Description: "List recorded coverage snapshots, newest first, with the change between the latest two runs.",
		Parameters: []ParameterSchema{
			projectParam,
			{Name: "limit", Type: "number", Description: "Maximum snapshots to return, 0 for all (default: 10)"},
			{Name: "clear", Type: "boolean", Description: "Delete the project's history instead"},
		},
	},
}

// toolDefinition builds the MCP tool from its schema.
func toolDefinition(schema ToolSchema) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(schema.Description)}
	for _, p := range schema.Parameters {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case "number":
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case "array":
			props = append(props, mcp.Items(map[string]any{"type": "string"}))
			opts = append(opts, mcp.WithArray(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(schema.Name, opts...)
}

// toolFunc executes one tool. The result is encoded as JSON.
type toolFunc func(s *Server, ctx context.Context, a arguments) (any, error)

var toolHandlers = map[string]toolFunc{
	"run_maven_tests": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.RunTests(ctx, a.str("project_path"))
	},
	"analyze_coverage": func(s *Server, ctx context.Context, a arguments) (any, error) {
		req, err := reportRequest(a)
		if err != nil {
			return nil, err
		}
		return s.svc.Analyze(ctx, req)
	},
	"identify_uncovered_code": func(s *Server, ctx context.Context, a arguments) (any, error) {
		req := workflow.UncoveredRequest{}
		var err error
		if req.ReportRequest, err = reportRequest(a); err != nil {
			return nil, err
		}
		if req.Threshold, err = a.number("threshold"); err != nil {
			return nil, err
		}
		if req.Limit, err = a.integer("limit"); err != nil {
			return nil, err
		}
		return s.svc.Uncovered(ctx, req)
	},
	"prioritize_gaps": executePrioritize,
	"generate_boundary_value_tests": func(s *Server, ctx context.Context, a arguments) (any, error) {
		ranges, err := a.document("param_ranges")
		if err != nil {
			return nil, err
		}
		render, err := a.boolean("render")
		if err != nil {
			return nil, err
		}
		return s.svc.Boundary(workflow.BoundaryRequest{
			ClassPath:  a.str("class_path"),
			MethodName: a.str("method_name"),
			Ranges:     ranges,
			Framework:  a.str("framework"),
			Render:     render,
		})
	},
	"generate_equivalence_class_tests": func(s *Server, ctx context.Context, a arguments) (any, error) {
		classes, err := a.document("equivalence_classes")
		if err != nil {
			return nil, err
		}
		render, err := a.boolean("render")
		if err != nil {
			return nil, err
		}
		return s.svc.Equivalence(workflow.EquivalenceRequest{
			ClassPath:  a.str("class_path"),
			MethodName: a.str("method_name"),
			Classes:    classes,
			Parameter:  a.str("parameter"),
			Framework:  a.str("framework"),
			Render:     render,
		})
	},
	"generate_test_template": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.Template(workflow.TemplateRequest{
			ClassPath:  a.str("class_path"),
			MethodName: a.str("method_name"),
			Framework:  a.str("framework"),
		})
	},
	"analyze_java_class": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.AnalyzeClass(ctx, classRequest(a))
	},
	"detect_code_smells": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.DetectSmells(ctx, classRequest(a))
	},
	"run_static_analysis": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.StaticAnalysis(ctx, a.str("project_path"))
	},
	"git_status": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.GitStatus(ctx, a.str("repo_path"))
	},
	"git_add_all": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.GitAddAll(ctx, a.str("repo_path"))
	},
	"git_commit": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.GitCommit(ctx, a.str("repo_path"), a.str("message"))
	},
	"git_push": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.GitPush(ctx, a.str("repo_path"), a.str("remote"), a.str("branch"))
	},
	"git_pull_request": func(s *Server, ctx context.Context, a arguments) (any, error) {
		return s.svc.GitPullRequest(ctx, workflow.PullRequestRequest{
			RepoPath: a.str("repo_path"),
			Title:    a.str("title"),
			Body:     a.str("body"),
			Base:     a.str("base"),
		})
	},
	"coverage_history": func(s *Server, ctx context.Context, a arguments) (any, error) {
		limit, err := a.intDefault("limit", 10)
		if err != nil {
			return nil, err
		}
		clearAll, err := a.boolean("clear")
		if err != nil {
			return nil, err
		}
		return s.svc.History(ctx, workflow.HistoryRequest{
			ProjectPath: a.str("project_path"),
			Limit:       limit,
			Clear:       clearAll,
		})
	},
}

func reportRequest(a arguments) (workflow.ReportRequest, error) {
	all, err := a.boolean("all_modules")
	if err != nil {
		return workflow.ReportRequest{}, err
	}
	return workflow.ReportRequest{
		ProjectPath: a.str("project_path"),
		ReportPath:  a.str("report_path"),
		AllModules:  all,
	}, nil
}

func classRequest(a arguments) workflow.ClassRequest {
	return workflow.ClassRequest{
		ProjectPath: a.str("project_path"),
		ClassPath:   a.str("class_path"),
	}
}

func executePrioritize(s *Server, ctx context.Context, a arguments) (any, error) {
	req := workflow.PrioritizeRequest{
		Metric:     a.str("metric"),
		Scope:      a.str("scope"),
		Classifier: a.str("classifier"),
	}
	var err error
	if req.ReportRequest, err = reportRequest(a); err != nil {
		return nil, err
	}
	if req.Threshold, err = a.number("threshold"); err != nil {
		return nil, err
	}
	if req.Limit, err = a.integer("limit"); err != nil {
		return nil, err
	}
	if req.PublicAPIWeight, err = a.number("public_api_weight"); err != nil {
		return nil, err
	}
	if req.Exclude, err = a.list("exclude"); err != nil {
		return nil, err
	}
	if req.ByPriority, err = a.boolean("by_priority"); err != nil {
		return nil, err
	}
	return s.svc.Prioritize(ctx, req)
}
