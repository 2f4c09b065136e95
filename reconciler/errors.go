package reconciler

import "fmt"

type RefreshStage string

const (
	RefreshStageFetch RefreshStage = "fetch"
	RefreshStageStore RefreshStage = "store"
)

// RefreshError reports the stage a refresh failed at. Cause is a
// *collector.FetchError for the fetch stage and a *store.StoreError for the
// store stage.
type RefreshError struct {
	Stage RefreshStage
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed at %s: %v", e.Stage, e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}
