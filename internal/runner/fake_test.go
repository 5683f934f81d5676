package runner

import (
	"context"
	"strings"
	"sync"
	"time"
)

// fakeExec returns scripted results keyed by "name arg1 arg2...".
type fakeExec struct {
	mu      sync.Mutex
	results map[string]Result
	errs    map[string]error
	delay   time.Duration
	calls   []string
	paths   map[string]string

	active, maxActive int
}

func (f *fakeExec) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{ExitCode: -1}, ctx.Err()
		}
	}
	if err := f.errs[key]; err != nil {
		return Result{}, err
	}
	return f.results[key], nil
}

func (f *fakeExec) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", &ToolNotFoundError{Tool: name}
}

func (f *fakeExec) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
