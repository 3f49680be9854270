package mapping

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

//go:embed instruction.md
var defaultInstruction string

// Instruction is the fixed system text describing the canonical schema and
// the expected JSON shape. It is loaded once per process and never changes
// afterwards; the zero value is not usable.
type Instruction struct {
	text string
}

// DefaultInstruction returns the instruction compiled into the binary.
func DefaultInstruction() Instruction {
	return Instruction{text: defaultInstruction}
}

// LoadInstruction reads the instruction from path, or returns the built-in
// instruction when path is empty.
func LoadInstruction(path string) (Instruction, error) {
	if path == "" {
		return DefaultInstruction(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Instruction{}, eris.Wrapf(err, "mapping: read instruction %s", path)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Instruction{}, eris.Errorf("mapping: instruction file %s is empty", path)
	}
	return Instruction{text: text}, nil
}

// Text returns the instruction text.
func (i Instruction) Text() string {
	return i.text
}

// WithCustomFields returns a copy of the instruction that also lists the
// custom contact fields defined in the CRM, so the service can prefer them
// over inventing new names.
func (i Instruction) WithCustomFields(fields []string) Instruction {
	seen := make(map[string]bool, len(fields))
	var names []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		names = append(names, f)
	}
	if len(names) == 0 {
		return i
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(i.text)
	sb.WriteString("\n\nThe CRM already defines these custom contact fields. When a header holds one of them, map it to that exact name:\n")
	for _, n := range names {
		sb.WriteString("- ")
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	return Instruction{text: sb.String()}
}
