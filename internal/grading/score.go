package grading

import (
	"encoding/json"
)

// EndMarker follows every serialized feedback record so a harness can split
// records out of combined output.
const EndMarker = "EndMarker"

// Feedback is the record reported for a failed check.
type Feedback struct {
	Feedback       string `json:"feedback"`
	PointsDeducted int    `json:"points_deducted"`
}

// Deducted caps pointsPerError*numberOfErrors at maxPointsDeducted.
func Deducted(pointsPerError, maxPointsDeducted, numberOfErrors int) int {
	return min(pointsPerError*numberOfErrors, maxPointsDeducted)
}

func NewFeedback(text string, pointsPerError, maxPointsDeducted, numberOfErrors int) Feedback {
	return Feedback{
		Feedback:       text,
		PointsDeducted: Deducted(pointsPerError, maxPointsDeducted, numberOfErrors),
	}
}

// String renders the record as JSON followed by a space and EndMarker.
func (f Feedback) String() string {
	data, err := json.Marshal(f)
	if err != nil {
		// Two plain fields always marshal.
		panic(err)
	}
	return string(data) + " " + EndMarker
}
