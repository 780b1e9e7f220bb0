package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/ampliflow/internal/config"
	"github.com/shaiso/ampliflow/internal/domain"
	"github.com/shaiso/ampliflow/internal/layout"
	"github.com/shaiso/ampliflow/internal/tools"
)

// stubInvoker отвечает заранее заданными исходами и считает пиковую
// одновременность вызовов.
type stubInvoker struct {
	mu    sync.Mutex
	calls []string

	// fail — ключи "stage/sample", для которых задача падает.
	fail map[string]bool

	// delay — задержка каждого вызова (для измерения одновременности).
	delay time.Duration

	running  atomic.Int32
	peak     atomic.Int32
	touchOut bool
}

func (si *stubInvoker) Run(ctx context.Context, stage, sampleID string, plan domain.Invocation) domain.TaskResult {
	cur := si.running.Add(1)
	for {
		p := si.peak.Load()
		if cur <= p || si.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	if si.delay > 0 {
		time.Sleep(si.delay)
	}
	si.running.Add(-1)

	key := stage + "/" + sampleID
	si.mu.Lock()
	si.calls = append(si.calls, key)
	si.mu.Unlock()

	if si.fail[key] {
		return domain.TaskResult{
			Stage:    stage,
			SampleID: sampleID,
			Status:   domain.TaskStatusFailed,
			Err:      fmt.Errorf("tool exited with code 1"),
		}
	}
	if si.touchOut {
		for _, p := range plan.ExpectedOutputs {
			os.WriteFile(p, []byte("x"), 0o644)
		}
	}
	return domain.TaskResult{
		Stage:       stage,
		SampleID:    sampleID,
		Status:      domain.TaskStatusSucceeded,
		OutputPaths: plan.ExpectedOutputs,
	}
}

func (si *stubInvoker) called(key string) bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	for _, c := range si.calls {
		if c == key {
			return true
		}
	}
	return false
}

// testStages строит минимальную цепочку: per-sample этап prep,
// глобальный этап aggregate.
func testStages(outDir string) []domain.Stage {
	return []domain.Stage{
		{
			Name:  "prep",
			Scope: domain.ScopePerSample,
			Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
				return domain.Invocation{
					ExpectedOutputs: []string{filepath.Join(outDir, s.SampleID+".out")},
				}, nil
			},
		},
		{
			Name:      "aggregate",
			Scope:     domain.ScopeGlobal,
			DependsOn: []string{"prep"},
			Build: func(*domain.SampleRecord) (domain.Invocation, error) {
				return domain.Invocation{
					ExpectedOutputs: []string{filepath.Join(outDir, "combined.out")},
				}, nil
			},
		},
	}
}

func testSamples(ids ...string) []domain.SampleRecord {
	out := make([]domain.SampleRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.SampleRecord{RunID: "run1", SampleID: id})
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Pipeline == nil {
		cfg.Pipeline = &config.PipelineConfig{Threads: 2}
	}
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestRunAllSucceed(t *testing.T) {
	dir := t.TempDir()
	inv := &stubInvoker{}
	e := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1", "s2", "s3"),
		Invoker: inv,
	})

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != domain.RunStatusSucceeded {
		t.Errorf("status = %s, want %s", report.Status, domain.RunStatusSucceeded)
	}
	if len(report.Excluded) != 0 {
		t.Errorf("excluded = %v, want none", report.Excluded)
	}
	// 3 per-sample задачи + 1 глобальная.
	if len(report.Results) != 4 {
		t.Errorf("got %d results, want 4", len(report.Results))
	}
	if !inv.called("aggregate/") {
		t.Error("global stage was not invoked")
	}
}

func TestRunPartialSuccess(t *testing.T) {
	dir := t.TempDir()
	inv := &stubInvoker{fail: map[string]bool{"prep/s2": true}}
	e := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1", "s2", "s3"),
		Invoker: inv,
	})

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != domain.RunStatusPartialSuccess {
		t.Errorf("status = %s, want %s", report.Status, domain.RunStatusPartialSuccess)
	}
	if len(report.Excluded) != 1 {
		t.Fatalf("excluded = %v, want exactly one", report.Excluded)
	}
	ex := report.Excluded[0]
	if ex.SampleID != "s2" || ex.Stage != "prep" {
		t.Errorf("excluded = %+v, want s2 at prep", ex)
	}
	if !inv.called("aggregate/") {
		t.Error("global stage was not invoked despite survivors")
	}
}

func TestRunSkipsDeadSamples(t *testing.T) {
	dir := t.TempDir()
	stages := []domain.Stage{
		{
			Name:  "first",
			Scope: domain.ScopePerSample,
			Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
				return domain.Invocation{}, nil
			},
		},
		{
			Name:      "second",
			Scope:     domain.ScopePerSample,
			DependsOn: []string{"first"},
			Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
				return domain.Invocation{}, nil
			},
		},
		{
			Name:      "final",
			Scope:     domain.ScopeGlobal,
			DependsOn: []string{"second"},
			Build: func(*domain.SampleRecord) (domain.Invocation, error) {
				return domain.Invocation{
					ExpectedOutputs: []string{filepath.Join(dir, "final.out")},
				}, nil
			},
		},
	}
	inv := &stubInvoker{fail: map[string]bool{"first/s1": true}}
	e := newTestEngine(t, Config{
		Stages:  stages,
		Samples: testSamples("s1", "s2"),
		Invoker: inv,
	})

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if inv.called("second/s1") {
		t.Error("dead sample was invoked on a later stage")
	}

	// Выбывший образец учитывается ровно один раз, на этапе первого сбоя.
	if len(report.Excluded) != 1 || report.Excluded[0].Stage != "first" {
		t.Errorf("excluded = %v, want single entry at first", report.Excluded)
	}

	skipped := 0
	for _, r := range report.Results {
		if r.SampleID == "s1" && r.Status == domain.TaskStatusSkipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Errorf("got %d skipped records for s1, want 1", skipped)
	}
}

func TestRunAbortsWithoutSurvivors(t *testing.T) {
	dir := t.TempDir()
	inv := &stubInvoker{fail: map[string]bool{"prep/s1": true, "prep/s2": true}}
	e := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1", "s2"),
		Invoker: inv,
	})

	report, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded with zero survivors")
	}
	var aborted *PipelineAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error %v is not PipelineAbortedError", err)
	}
	if aborted.Stage != "aggregate" {
		t.Errorf("aborted at %s, want aggregate", aborted.Stage)
	}
	if len(aborted.Excluded) != 2 {
		t.Errorf("aborted excluded = %v, want both samples", aborted.Excluded)
	}
	if report.Status != domain.RunStatusAborted {
		t.Errorf("status = %s, want %s", report.Status, domain.RunStatusAborted)
	}
	if inv.called("aggregate/") {
		t.Error("global stage ran despite empty survivor set")
	}
}

func TestRunGlobalFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	inv := &stubInvoker{fail: map[string]bool{"aggregate/": true}}
	e := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1"),
		Invoker: inv,
	})

	report, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded despite global stage failure")
	}
	if report.Status != domain.RunStatusAborted {
		t.Errorf("status = %s, want %s", report.Status, domain.RunStatusAborted)
	}
}

func TestRunConcurrencyBound(t *testing.T) {
	dir := t.TempDir()
	inv := &stubInvoker{delay: 20 * time.Millisecond}
	e := newTestEngine(t, Config{
		Stages:   testStages(dir)[:1],
		Samples:  testSamples("s1", "s2", "s3", "s4", "s5", "s6"),
		Pipeline: &config.PipelineConfig{Threads: 2},
		Invoker:  inv,
	})

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if peak := inv.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRunPrepareReceivesSurvivors(t *testing.T) {
	dir := t.TempDir()
	var got []string
	stages := testStages(dir)
	stages[1].Prepare = func(survivors []domain.SampleRecord) error {
		for _, s := range survivors {
			got = append(got, s.SampleID)
		}
		return nil
	}
	inv := &stubInvoker{fail: map[string]bool{"prep/s2": true}}
	e := newTestEngine(t, Config{
		Stages:  stages,
		Samples: testSamples("s1", "s2", "s3"),
		Invoker: inv,
	})

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 || got[0] != "s1" || got[1] != "s3" {
		t.Errorf("prepare got %v, want [s1 s3]", got)
	}
}

func TestRunResumeSkipsCachedTasks(t *testing.T) {
	dir := t.TempDir()
	lay, err := layout.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	// Первый прогон оставляет все ожидаемые выходы.
	first := &stubInvoker{touchOut: true}
	e := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1", "s2"),
		Layout:  lay,
		Invoker: first,
	})
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	second := &stubInvoker{}
	e2 := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1", "s2"),
		Layout:  lay,
		Invoker: second,
		Resume:  true,
	})
	report, err := e2.Run(context.Background())
	if err != nil {
		t.Fatalf("resume Run() error = %v", err)
	}
	if len(second.calls) != 0 {
		t.Errorf("resume invoked %v, want no calls", second.calls)
	}
	cached := 0
	for _, r := range report.Results {
		if r.Cached {
			cached++
		}
	}
	if cached != len(report.Results) {
		t.Errorf("%d of %d results cached, want all", cached, len(report.Results))
	}
}

func TestRunNativeStagePostcondition(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "filtered.tsv")
	nativeStage := func(fn func(context.Context) error) []domain.Stage {
		return []domain.Stage{{
			Name:  "filter",
			Scope: domain.ScopeGlobal,
			Build: func(*domain.SampleRecord) (domain.Invocation, error) {
				return domain.Invocation{ExpectedOutputs: []string{out}}, nil
			},
			Native: fn,
		}}
	}

	// Нативный этап, не оставивший ожидаемый выход, падает так же,
	// как внешний инструмент с пустым выходом.
	e := newTestEngine(t, Config{
		Stages:  nativeStage(func(context.Context) error { return nil }),
		Samples: testSamples("s1"),
		Invoker: &stubInvoker{},
	})
	report, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded despite missing native stage output")
	}
	if !errors.Is(err, tools.ErrEmptyOutput) {
		t.Errorf("error = %v, want ErrEmptyOutput", err)
	}
	if report.Status != domain.RunStatusAborted {
		t.Errorf("status = %s, want %s", report.Status, domain.RunStatusAborted)
	}

	e2 := newTestEngine(t, Config{
		Stages: nativeStage(func(context.Context) error {
			return os.WriteFile(out, []byte("#OTU ID\ts1\n"), 0o644)
		}),
		Samples: testSamples("s1"),
		Invoker: &stubInvoker{},
	})
	if _, err := e2.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &stubInvoker{}
	e := newTestEngine(t, Config{
		Stages:  testStages(dir),
		Samples: testSamples("s1"),
		Invoker: inv,
	})

	report, err := e.Run(ctx)
	if err == nil {
		t.Fatal("Run() succeeded with cancelled context")
	}
	if report.Status != domain.RunStatusAborted {
		t.Errorf("status = %s, want %s", report.Status, domain.RunStatusAborted)
	}
}
