package engine

import (
	"fmt"

	"github.com/shaiso/ampliflow/internal/domain"
)

// ValidateStages проверяет набор этапов перед выполнением.
//
// Этапы выполняются в порядке объявления, поэтому граф корректен, когда
// каждая зависимость объявлена раньше зависящего этапа: порядок слайса —
// это уже топологический порядок, циклы невозможны по построению.
func ValidateStages(stages []domain.Stage) error {
	if len(stages) == 0 {
		return ErrNoStages
	}

	declared := make(map[string]int, len(stages))

	for i, st := range stages {
		if st.Name == "" {
			return fmt.Errorf("%w: stage at position %d", ErrEmptyStageName, i)
		}
		if _, ok := declared[st.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateStageName, st.Name)
		}
		if st.Build == nil && st.Native == nil {
			return fmt.Errorf("%w: %s", ErrNoAction, st.Name)
		}

		for _, dep := range st.DependsOn {
			if _, ok := declared[dep]; !ok {
				// Зависимость либо не существует, либо объявлена позже
				for j := i + 1; j < len(stages); j++ {
					if stages[j].Name == dep {
						return fmt.Errorf("%w: %s depends on %s", ErrDependencyOrder, st.Name, dep)
					}
				}
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, st.Name, dep)
			}
		}

		declared[st.Name] = i
	}

	return nil
}
