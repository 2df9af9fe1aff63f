// Package messages defines Bubbletea message types for the progress view.
package messages

import (
	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// StatusPolled carries a fresh snapshot of the run's counters.
type StatusPolled struct {
	Status *domain.RunStatus
	Err    error
}

// RunFinished is sent once the ingestion returns.
type RunFinished struct {
	Report *domain.RunReport
	Err    error
}

// Ratio returns the share of built records the index has committed,
// in [0, 1]. It is zero until a record has been built.
func Ratio(st *domain.RunStatus) float64 {
	if st == nil || st.RecordsBuilt <= 0 {
		return 0
	}
	r := float64(st.RecordsCommitted) / float64(st.RecordsBuilt)
	if r > 1 {
		return 1
	}
	return r
}
