package card

// Status is the closed set of task outcomes a card can represent.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDefault Status = "default"
	StatusRetry   Status = "retry"
	StatusSkipped Status = "skipped"
	StatusSLAMiss Status = "sla_miss"
)

// Color is an RGB triple in the 0..1 range, the chat API's button
// color encoding.
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// StatusColors maps each status to its button color.
var StatusColors = map[Status]Color{
	StatusSuccess: {Red: 0.8, Green: 1, Blue: 0.8},
	StatusFailure: {Red: 1, Green: 0.8, Blue: 0.8},
	StatusDefault: {Red: 0.95, Green: 0.95, Blue: 0.95},
	StatusRetry:   {Red: 1, Green: 0.9, Blue: 0.7},
	StatusSkipped: {Red: 0.9, Green: 0.8, Blue: 1},
	StatusSLAMiss: {Red: 1, Green: 0.85, Blue: 0.85},
}

// ColorFor returns the color for status, falling back to the default
// color for anything outside the closed set.
func ColorFor(status Status) Color {
	if c, ok := StatusColors[status]; ok {
		return c
	}
	return StatusColors[StatusDefault]
}
