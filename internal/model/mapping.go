package model

import (
	"strconv"
)

// CanonicalField is a CRM contact attribute a header can map to. Values
// outside the known set name CRM custom-field slots.
type CanonicalField string

// Canonical mapping targets.
const (
	FieldFirstName CanonicalField = "firstName"
	FieldLastName  CanonicalField = "lastName"
	FieldEmail     CanonicalField = "email"
	FieldPhone     CanonicalField = "phone"
	FieldAgentUID  CanonicalField = "agentUid"
	FieldUnmapped  CanonicalField = "unmapped"
)

// CanonicalFields lists the fixed targets in display order, sentinel last.
var CanonicalFields = []CanonicalField{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldAgentUID,
	FieldUnmapped,
}

var fieldLabels = map[CanonicalField]string{
	FieldFirstName: "First Name",
	FieldLastName:  "Last Name",
	FieldEmail:     "Email",
	FieldPhone:     "Phone",
	FieldAgentUID:  "Agent UID",
	FieldUnmapped:  "Unmapped",
}

// IsCanonical reports whether f is one of the fixed targets, including the
// unmapped sentinel.
func (f CanonicalField) IsCanonical() bool {
	_, ok := fieldLabels[f]
	return ok
}

// IsCustom reports whether f names a CRM custom field.
func (f CanonicalField) IsCustom() bool {
	return !f.IsCanonical()
}

// Label returns the human-readable name of the field. Custom fields are
// returned as-is.
func (f CanonicalField) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// HeaderMapping is the inferred target for one source header.
type HeaderMapping struct {
	MappedTo   CanonicalField `json:"mappedTo"`
	Confidence float64        `json:"confidence"`
}

// MappingResult is a validated header mapping. It is immutable once
// returned by the validator.
type MappingResult struct {
	Mapping         map[string]HeaderMapping `json:"mapping"`
	UnmappedHeaders []string                 `json:"unmappedHeaders"`
	Notes           string                   `json:"notes"`

	// AmbiguousHeaders lists headers that appear in Mapping with the
	// unmapped sentinel and also in UnmappedHeaders.
	AmbiguousHeaders []string `json:"ambiguousHeaders,omitempty"`
}

// Stats summarises confidence over a MappingResult.
type Stats struct {
	Total          int `json:"total"`
	HighConfidence int `json:"highConfidence"`
	CustomFields   int `json:"customFields"`
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
