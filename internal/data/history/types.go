package history

import "time"

const SchemaVersion = 1

// Record is the outcome of one check in one grading run.
type Record struct {
	RunID          string
	Submission     string
	Check          string
	Kind           string
	Passed         bool
	PointsDeducted int
	Feedback       string
	Timestamp      time.Time
}

// RunSummary aggregates the records of one run.
type RunSummary struct {
	RunID          string
	Submission     string
	Timestamp      time.Time
	Checks         int
	Failed         int
	PointsDeducted int
}
