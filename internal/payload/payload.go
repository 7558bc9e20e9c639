// Package payload turns source records into task specifications for the
// annotation service. Building is pure: the same record always yields the
// same spec, and no failure modes exist (empty or malformed label strings
// pass through as-is and are caught, if at all, by the service).
package payload

import (
	"strings"

	"github.com/yourorg/cvat-tasks/internal/types"
)

// TaskNamePrefix is prepended to the record ID to form the task name.
const TaskNamePrefix = "Segmentation_"

// DescriptionsLabel is the name of the fixed label appended to every task.
const DescriptionsLabel = "Descriptions"

// descriptionAttrs are the three text attributes every Descriptions label
// carries. Attaching them to each task is tool policy, not configurable.
var descriptionAttrs = []string{
	"Title",
	"English_Image_Description",
	"Scene_Description",
}

// Build constructs the task spec for one record: one label per comma-separated
// token in RawLabels (whitespace trimmed), plus the fixed Descriptions label.
func Build(rec types.SourceRecord) types.TaskSpec {
	labels := ParseLabels(rec.RawLabels)
	labels = append(labels, descriptions())
	return types.TaskSpec{
		Name:   TaskNamePrefix + rec.ID,
		Labels: labels,
	}
}

// ParseLabels splits a comma-separated label string into label specs with no
// attributes. An empty input yields a single empty-named label; the row
// source warns about those upstream instead of dropping them here.
func ParseLabels(raw string) []types.LabelSpec {
	parts := strings.Split(raw, ",")
	out := make([]types.LabelSpec, 0, len(parts))
	for _, p := range parts {
		out = append(out, types.LabelSpec{Name: strings.TrimSpace(p)})
	}
	return out
}

func descriptions() types.LabelSpec {
	attrs := make([]types.AttributeSpec, 0, len(descriptionAttrs))
	for _, name := range descriptionAttrs {
		attrs = append(attrs, types.AttributeSpec{
			Name:          name,
			Mutable:       true,
			InputType:     "text",
			DefaultValues: []string{""},
			Required:      true,
		})
	}
	return types.LabelSpec{Name: DescriptionsLabel, Attributes: attrs}
}
