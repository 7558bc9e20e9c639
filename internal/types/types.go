package types

// SourceRecord is one row of the input sheet. Records are immutable once
// loaded; the raw label string is parsed later by the payload builder.
type SourceRecord struct {
	ID        string `json:"id"`         // image identifier from the ID column
	ImageURL  string `json:"image_url"`  // remote image location, fetched by the annotation service
	RawLabels string `json:"raw_labels"` // comma-separated label names, as found in the sheet
}

// AttributeSpec describes one typed attribute attached to a label.
type AttributeSpec struct {
	Name          string   `json:"name"`
	Mutable       bool     `json:"mutable"`
	InputType     string   `json:"input_type"`
	DefaultValues []string `json:"values"`
	Required      bool     `json:"required"`
}

// LabelSpec is one annotatable category on a task.
type LabelSpec struct {
	Name       string          `json:"name"`
	Attributes []AttributeSpec `json:"attributes,omitempty"`
}

// TaskSpec is the payload sent to the annotation service for one record.
type TaskSpec struct {
	Name   string      `json:"name"`
	Labels []LabelSpec `json:"labels"`
}

// Outcome is the terminal result of one record's submission. Exactly one
// Outcome exists per SourceRecord; OK selects which half is meaningful.
type Outcome struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	TaskID int    `json:"task_id,omitempty"` // set when OK
	Error  string `json:"error,omitempty"`   // set when !OK
}

// Summary aggregates a finished run.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// LoadStats reports what the row source kept and dropped.
type LoadStats struct {
	Rows         int `json:"rows"`          // records returned
	SkippedEmpty int `json:"skipped_empty"` // rows with no ID
	SkippedDup   int `json:"skipped_dup"`   // duplicate IDs dropped (dedupe mode)
}
