package rag

import "fmt"

// Stage identifies a step of the pipeline state machine:
// Received → Classified → Embedded → Retrieved → Reranked → Generated → Completed,
// with Failed reachable from any step.
type Stage string

const (
	StageReceived   Stage = "received"
	StageClassified Stage = "classified"
	StageEmbedded   Stage = "embedded"
	StageRetrieved  Stage = "retrieved"
	StageReranked   Stage = "reranked"
	StageGenerated  Stage = "generated"
	StageCompleted  Stage = "completed"
)

// StageError carries the last successfully completed stage alongside the
// failure, for diagnostics.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed after %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
