package ats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablesSizes(t *testing.T) {
	tables := DefaultTables()
	assert.Len(t, tables.TechKeywords, 22)
	assert.Len(t, tables.ToolKeywords, 12)
	assert.Len(t, tables.SoftSkills, 5)
	assert.Len(t, tables.Certifications, 8)
	assert.Len(t, tables.ActionVerbs, 19)
	assert.Len(t, tables.Languages, 16)
	require.NoError(t, tables.Validate())
}

func TestDefaultTablesAreFreshCopies(t *testing.T) {
	a := DefaultTables()
	a.TechKeywords[0] = "cobol"
	assert.Equal(t, "python", DefaultTables().TechKeywords[0])
}

func TestParseTablesOverridesOnlyGivenLists(t *testing.T) {
	tables, err := ParseTables([]byte(`
tech_keywords: [golang, rust]
certifications:
  - cka
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"golang", "rust"}, tables.TechKeywords)
	assert.Equal(t, []string{"cka"}, tables.Certifications)
	assert.Equal(t, DefaultTables().ToolKeywords, tables.ToolKeywords)
	assert.Equal(t, DefaultTables().MetricsPattern, tables.MetricsPattern)
}

func TestParseTablesErrors(t *testing.T) {
	_, err := ParseTables([]byte("tech_keywords: {not: a list"))
	assert.Error(t, err)

	_, err = ParseTables([]byte(`bullet_patterns: ["["]`))
	assert.Error(t, err)
}

func TestLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("soft_skills: [mentoring]\n"), 0600))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"mentoring"}, tables.SoftSkills)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
