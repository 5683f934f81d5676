package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/extract"
)

// ReportRequest locates the coverage report of a project.
type ReportRequest struct {
	ProjectPath string
	// ReportPath overrides project.report_path.
	ReportPath string
	// AllModules merges every module report matching project.report_glob.
	AllModules bool
}

func (s *Service) load(ctx context.Context, req ReportRequest) (string, *coverage.Loaded, error) {
	project, err := s.Project(req.ProjectPath)
	if err != nil {
		return "", nil, err
	}
	loader := &coverage.Loader{ProjectPath: project, ReportPath: req.ReportPath}
	if loader.ReportPath == "" {
		loader.ReportPath = s.cfg.Project.ReportPath
	}

	var loaded *coverage.Loaded
	if req.AllModules {
		loaded, err = loader.LoadAll(ctx, s.cfg.Project.ReportGlob)
	} else {
		loaded, err = loader.Load(ctx)
	}
	if err != nil {
		return "", nil, err
	}
	return project, loaded, nil
}

// AnalyzeResult is the coverage summary with the report it came from.
type AnalyzeResult struct {
	Path             string    `json:"path" yaml:"path"`
	ModTime          time.Time `json:"mod_time" yaml:"mod_time"`
	coverage.Summary `yaml:",inline"`
}

// Analyze summarizes overall and per-package coverage.
func (s *Service) Analyze(ctx context.Context, req ReportRequest) (*AnalyzeResult, error) {
	_, loaded, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return &AnalyzeResult{
		Path:    loaded.Path,
		ModTime: loaded.ModTime,
		Summary: *coverage.Summarize(loaded.Root),
	}, nil
}

// UncoveredRequest configures Uncovered. Nil fields use the configured
// defaults.
type UncoveredRequest struct {
	ReportRequest
	Threshold *float64
	Limit     *int
}

// Uncovered lists methods below the threshold, lowest coverage first.
func (s *Service) Uncovered(ctx context.Context, req UncoveredRequest) (*coverage.UncoveredReport, error) {
	threshold := s.cfg.Coverage.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	limit := s.cfg.Coverage.Limit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, &ArgumentError{Name: "limit", Reason: "must not be negative"}
	}

	_, loaded, err := s.load(ctx, req.ReportRequest)
	if err != nil {
		return nil, err
	}
	return coverage.FindUncoveredMethods(loaded.Root, threshold, limit), nil
}

// PrioritizeRequest configures Prioritize. Empty and nil fields use the
// configured defaults.
type PrioritizeRequest struct {
	ReportRequest
	Threshold       *float64
	Metric          string
	Scope           string
	Limit           *int
	Exclude         []string
	PublicAPIWeight *float64
	// Classifier is "source", "naming" or "none".
	Classifier string
	ByPriority bool
}

// Prioritize ranks classes and methods by how much testing they need.
func (s *Service) Prioritize(ctx context.Context, req PrioritizeRequest) (*coverage.GapsReport, error) {
	opts, err := s.rankOptions(req)
	if err != nil {
		return nil, err
	}
	project, loaded, err := s.load(ctx, req.ReportRequest)
	if err != nil {
		return nil, err
	}
	opts.Classifier, err = s.classifier(ctx, project, req.Classifier)
	if err != nil {
		return nil, err
	}
	return coverage.GenerateGapsReport(loaded.Root, coverage.GapsReportOptions{Rank: opts, ByPriority: req.ByPriority}), nil
}

func (s *Service) rankOptions(req PrioritizeRequest) (coverage.RankOptions, error) {
	opts := s.cfg.RankOptions()
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if err := checkThreshold(opts.Threshold); err != nil {
		return opts, err
	}
	if req.Metric != "" {
		m, ok := coverage.ParseMetricKind(req.Metric)
		if !ok {
			return opts, &ArgumentError{Name: "metric", Reason: "unknown metric " + req.Metric}
		}
		opts.Metric = m
	}
	if req.Scope != "" {
		sc, ok := coverage.ParseScope(req.Scope)
		if !ok {
			return opts, &ArgumentError{Name: "scope", Reason: "unknown scope " + req.Scope}
		}
		opts.Scope = sc
	}
	if req.Limit != nil {
		if *req.Limit < 0 {
			return opts, &ArgumentError{Name: "limit", Reason: "must not be negative"}
		}
		opts.Limit = *req.Limit
	}
	if req.PublicAPIWeight != nil {
		if *req.PublicAPIWeight <= 0 {
			return opts, &ArgumentError{Name: "public_api_weight", Reason: "must be positive"}
		}
		opts.PublicAPIWeight = *req.PublicAPIWeight
	}
	if len(req.Exclude) > 0 {
		opts.Exclude = append(append([]string(nil), opts.Exclude...), req.Exclude...)
	}
	if err := coverage.ValidateExcludes(opts.Exclude); err != nil {
		return opts, err
	}
	return opts, nil
}

func checkThreshold(t float64) error {
	if t < 0 || t > 100 {
		return &ArgumentError{Name: "threshold", Reason: "must be between 0 and 100"}
	}
	return nil
}

// classifier builds the public API classifier named by name, falling back
// to coverage.classifier. The source classifier reads the project's main
// sources and defers to naming rules for classes it cannot find.
func (s *Service) classifier(ctx context.Context, project, name string) (coverage.PublicAPIClassifier, error) {
	if name == "" {
		name = s.cfg.Coverage.Classifier
	}
	switch name {
	case config.ClassifierNone:
		return nil, nil
	case config.ClassifierNaming:
		return coverage.NamingClassifier, nil
	case config.ClassifierSource, "":
		files, err := extract.LoadSources(ctx, project, s.cfg.Project.SourceGlob)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			slog.Debug("no java sources found, classifying by name", "project", project)
			return coverage.NamingClassifier, nil
		}
		sc := extract.NewSourceClassifier(files)
		sc.Fallback = coverage.NamingClassifier
		slog.Debug("classifying public api from source", "project", project, "classes", sc.Len())
		return sc, nil
	}
	return nil, &ArgumentError{Name: "classifier", Reason: "unknown classifier " + name}
}
