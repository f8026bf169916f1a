package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/columns"
	"github.com/prospectlens/prospectlens/internal/core/engine"
)

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"Status=RDV fixé", "comments= Rappeler ", "email="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"status":   "RDV fixé",
		"comments": "Rappeler",
		"email":    "",
	}, values)

	_, err = parseAssignments([]string{"no-equals"})
	assert.Error(t, err)

	_, err = parseAssignments([]string{"=value"})
	assert.Error(t, err)

	_, err = parseAssignments(nil)
	assert.Error(t, err)
}

func TestKnownStatus(t *testing.T) {
	statuses := []string{"À contacter", "RDV fixé"}
	assert.True(t, knownStatus(statuses, "rdv fixé"))
	assert.False(t, knownStatus(statuses, "Perdu"))
	assert.True(t, knownStatus(nil, "anything"))
}

func TestDisplayColumns(t *testing.T) {
	headers := []string{"Nom de l'entité", "CA (M€)", "Commentaires"}
	snap := &engine.Snapshot{
		Dataset: &core.Dataset{Columns: headers},
		Resolution: columns.ResolveAll(map[string][]string{
			"name":    {"nom de l'entité"},
			"revenue": {"ca (m€)"},
		}, headers),
	}

	assert.Equal(t, []string{"Nom de l'entité", "CA (M€)"}, displayColumns(snap, summaryFields))
	assert.Equal(t, headers, displayColumns(snap, []string{"status"}), "falls back to every column")
}

func TestDetailOf(t *testing.T) {
	headers := []string{"Nom de l'entité", "CA (M€)"}
	snap := &engine.Snapshot{
		Dataset:  &core.Dataset{Columns: headers},
		Identity: "Nom de l'entité",
		Resolution: columns.ResolveAll(map[string][]string{
			"name":    {"nom de l'entité"},
			"revenue": {"ca (m€)"},
		}, headers),
	}
	record := core.Record{"Nom de l'entité": "Acme", "CA (M€)": "10"}

	detail := detailOf(snap, record)
	assert.Equal(t, "Acme", detail.Subject)
	assert.Equal(t, "10", detail.Fields["revenue"])
}
