package mapping

import (
	"github.com/sells-group/header-mapper/internal/model"
)

// HighConfidenceThreshold is the inclusive lower bound for a high-confidence
// mapping.
const HighConfidenceThreshold = 0.8

// Summarize counts mapped entries, high-confidence entries and entries that
// target a custom field.
func Summarize(result *model.MappingResult) model.Stats {
	var s model.Stats
	if result == nil {
		return s
	}
	for _, m := range result.Mapping {
		s.Total++
		if m.Confidence >= HighConfidenceThreshold {
			s.HighConfidence++
		}
		if m.MappedTo.IsCustom() {
			s.CustomFields++
		}
	}
	return s
}
