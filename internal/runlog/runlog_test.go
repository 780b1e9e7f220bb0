package runlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/ampliflow/internal/domain"
)

// syncBuffer — bytes.Buffer, безопасный для конкурентной записи
// на уровне вызовов Write (журнал сериализует их сам, буфер лишь
// проверяет целостность строк).
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunLog_ConcurrentAppendsKeepRecordsWhole(t *testing.T) {
	var buf syncBuffer
	l := New(&buf)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sample := fmt.Sprintf("Sample%d", w)
			for i := 0; i < perWriter; i++ {
				l.TaskFinished(&domain.TaskResult{
					Stage:    "merge",
					SampleID: sample,
					Status:   domain.TaskStatusSucceeded,
					Duration: time.Millisecond,
				})
			}
		}(w)
	}
	wg.Wait()

	// Каждая строка — валидный JSON: записи не перемешались
	sc := bufio.NewScanner(strings.NewReader(buf.String()))
	lines := 0
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("corrupt log line %d: %v", lines+1, err)
		}
		lines++
	}
	if lines != writers*perWriter {
		t.Errorf("expected %d records, got %d", writers*perWriter, lines)
	}
}

func TestRunLog_InvocationRecord(t *testing.T) {
	var buf syncBuffer
	l := New(&buf)

	l.Invocation("cluster", "", "vsearch --cluster_smallmem in.fasta", 1,
		2*time.Second, "fatal error: bad input")

	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec); err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if rec["stage"] != "cluster" {
		t.Errorf("unexpected stage: %v", rec["stage"])
	}
	if rec["exit_code"] != float64(1) {
		t.Errorf("unexpected exit code: %v", rec["exit_code"])
	}
	if !strings.Contains(rec["command"].(string), "--cluster_smallmem") {
		t.Errorf("command line not recorded: %v", rec["command"])
	}
	if rec["stderr_excerpt"] != "fatal error: bad input" {
		t.Errorf("stderr excerpt not recorded: %v", rec["stderr_excerpt"])
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("unexpected: %q", got)
	}
	long := strings.Repeat("x", 20)
	got := Truncate(long, 10)
	if !strings.HasPrefix(got, strings.Repeat("x", 10)) || !strings.HasSuffix(got, "(truncated)") {
		t.Errorf("unexpected: %q", got)
	}
}
