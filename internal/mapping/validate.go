package mapping

import (
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/header-mapper/internal/model"
)

// Validate checks a recovered JSON object against the MappingResult shape.
// headers are the headers that were sent in the request; every key of
// "mapping" and every entry of "unmappedHeaders" must be one of them. On
// failure it returns a *SchemaValidationError naming the offending field.
func Validate(doc map[string]any, headers []string) (*model.MappingResult, error) {
	order := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := order[h]; !dup {
			order[h] = i
		}
	}

	rawMapping, ok := doc["mapping"]
	if !ok {
		return nil, schemaErr("mapping", "missing")
	}
	entries, ok := rawMapping.(map[string]any)
	if !ok {
		return nil, schemaErr("mapping", "expected object, got %s", jsonType(rawMapping))
	}

	rawUnmapped, ok := doc["unmappedHeaders"]
	if !ok {
		return nil, schemaErr("unmappedHeaders", "missing")
	}
	unmappedList, ok := rawUnmapped.([]any)
	if !ok {
		return nil, schemaErr("unmappedHeaders", "expected array, got %s", jsonType(rawUnmapped))
	}

	rawNotes, ok := doc["notes"]
	if !ok {
		return nil, schemaErr("notes", "missing")
	}
	notes, ok := rawNotes.(string)
	if !ok {
		return nil, schemaErr("notes", "expected string, got %s", jsonType(rawNotes))
	}

	// Walk keys in a fixed order so the reported field is deterministic.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := &model.MappingResult{
		Mapping:         make(map[string]model.HeaderMapping, len(entries)),
		UnmappedHeaders: []string{},
		Notes:           notes,
	}

	for _, header := range keys {
		field := "mapping." + header
		if _, known := order[header]; !known {
			return nil, schemaErr(field, "header was not in the request")
		}
		hm, err := validateEntry(field, entries[header])
		if err != nil {
			return nil, err
		}
		result.Mapping[header] = hm
	}

	seen := make(map[string]bool, len(unmappedList))
	for i, v := range unmappedList {
		header, ok := v.(string)
		if !ok {
			return nil, schemaErr(indexField("unmappedHeaders", i), "expected string, got %s", jsonType(v))
		}
		if _, known := order[header]; !known {
			return nil, schemaErr(indexField("unmappedHeaders", i), "header %q was not in the request", header)
		}
		if seen[header] {
			continue
		}
		seen[header] = true

		if hm, mapped := result.Mapping[header]; mapped {
			if hm.MappedTo != model.FieldUnmapped {
				return nil, schemaErr(indexField("unmappedHeaders", i), "header %q is also mapped to %q", header, hm.MappedTo)
			}
			result.AmbiguousHeaders = append(result.AmbiguousHeaders, header)
		}
		result.UnmappedHeaders = append(result.UnmappedHeaders, header)
	}

	byRequestOrder := func(s []string) {
		sort.SliceStable(s, func(a, b int) bool { return order[s[a]] < order[s[b]] })
	}
	byRequestOrder(result.UnmappedHeaders)
	byRequestOrder(result.AmbiguousHeaders)

	if len(result.AmbiguousHeaders) > 0 {
		zap.L().Warn("mapping: headers listed as unmapped and also present in mapping",
			zap.Strings("headers", result.AmbiguousHeaders),
		)
	}

	return result, nil
}

func validateEntry(field string, raw any) (model.HeaderMapping, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return model.HeaderMapping{}, schemaErr(field, "expected object, got %s", jsonType(raw))
	}

	rawTarget, ok := entry["mappedTo"]
	if !ok {
		return model.HeaderMapping{}, schemaErr(field+".mappedTo", "missing")
	}
	target, ok := rawTarget.(string)
	if !ok {
		return model.HeaderMapping{}, schemaErr(field+".mappedTo", "expected string, got %s", jsonType(rawTarget))
	}
	if target == "" {
		return model.HeaderMapping{}, schemaErr(field+".mappedTo", "must not be empty")
	}

	rawConf, ok := entry["confidence"]
	if !ok {
		return model.HeaderMapping{}, schemaErr(field+".confidence", "missing")
	}
	conf, ok := rawConf.(float64)
	if !ok {
		return model.HeaderMapping{}, schemaErr(field+".confidence", "expected number, got %s", jsonType(rawConf))
	}
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return model.HeaderMapping{}, schemaErr(field+".confidence", "%v is outside [0,1]", conf)
	}

	return model.HeaderMapping{MappedTo: model.CanonicalField(target), Confidence: conf}, nil
}

func indexField(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}
