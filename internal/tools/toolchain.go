package tools

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Имена инструментов пайплайна.
const (
	// Cutadapt — демультиплексация по праймерам.
	Cutadapt = "cutadapt"

	// Vsearch — слияние пар, фильтрация, дерепликация, кластеризация,
	// детекция химер, построение таблицы, SINTAX.
	Vsearch = "vsearch"

	// Seqkit — отбор последовательностей фиксированной длины.
	Seqkit = "seqkit"

	// RarefyScript — внешний R-скрипт кривой разрежения.
	RarefyScript = "Rarefy_OTUtab.R"
)

// Toolchain находит и кэширует пути внешних инструментов.
//
// Поиск: сначала явный каталог (--tool-dir), затем PATH. Отсутствующий
// инструмент — ошибка сразу: batch-запуск не должен зависать на вводе
// посреди пайплайна.
type Toolchain struct {
	dir string

	mu    sync.Mutex
	paths map[string]string
}

// NewToolchain создаёт Toolchain; dir может быть пустым.
func NewToolchain(dir string) *Toolchain {
	return &Toolchain{
		dir:   dir,
		paths: make(map[string]string),
	}
}

// Lookup возвращает полный путь инструмента.
func (tc *Toolchain) Lookup(name string) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if p, ok := tc.paths[name]; ok {
		return p, nil
	}

	if tc.dir != "" {
		candidate := filepath.Join(tc.dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			tc.paths[name] = candidate
			return candidate, nil
		}
	}

	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	tc.paths[name] = p
	return p, nil
}

// Require проверяет доступность всех перечисленных инструментов.
// Вызывается до старта пайплайна.
func (tc *Toolchain) Require(names ...string) error {
	for _, name := range names {
		if _, err := tc.Lookup(name); err != nil {
			return err
		}
	}
	return nil
}
