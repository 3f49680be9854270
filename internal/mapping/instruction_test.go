package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/header-mapper/internal/model"
)

func TestDefaultInstruction_NamesCanonicalFields(t *testing.T) {
	text := DefaultInstruction().Text()
	require.NotEmpty(t, text)
	for _, f := range model.CanonicalFields {
		assert.Contains(t, text, string(f))
	}
	assert.Contains(t, text, "unmappedHeaders")
	assert.Contains(t, text, "confidence")
}

func TestLoadInstruction(t *testing.T) {
	instr, err := LoadInstruction("")
	require.NoError(t, err)
	assert.Equal(t, DefaultInstruction(), instr)

	path := filepath.Join(t.TempDir(), "instruction.md")
	require.NoError(t, os.WriteFile(path, []byte("\n  Map the headers.  \n"), 0o600))

	instr, err = LoadInstruction(path)
	require.NoError(t, err)
	assert.Equal(t, "Map the headers.", instr.Text())
}

func TestLoadInstruction_Errors(t *testing.T) {
	_, err := LoadInstruction(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "blank.md")
	require.NoError(t, os.WriteFile(path, []byte(" \n\t"), 0o600))
	_, err = LoadInstruction(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestInstruction_WithCustomFields(t *testing.T) {
	base := Instruction{text: "base"}

	got := base.WithCustomFields([]string{"Region__c", " Lead_Score__c ", "", "Region__c"})
	assert.True(t, strings.HasPrefix(got.Text(), "base\n\n"))
	assert.Contains(t, got.Text(), "- Lead_Score__c\n- Region__c\n")
	assert.Equal(t, "base", base.Text())

	assert.Equal(t, base, base.WithCustomFields(nil))
	assert.Equal(t, base, base.WithCustomFields([]string{" "}))
}
