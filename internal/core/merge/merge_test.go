package merge

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectlens/prospectlens/internal/core"
)

var testMapping = core.Mapping{
	"name":    "Nom de l'entité",
	"revenue": "CA (M€)",
	"esg":     "Controverses",
	"news":    "Actualité Récente",
}

func acme() core.Record {
	return core.Record{
		"Nom de l'entité":   "Acme",
		"CA (M€)":           "10",
		"Controverses":      "",
		"Actualité Récente": "old news",
	}
}

func TestMergeEmptyPatchIsIdentity(t *testing.T) {
	record := acme()
	result := Merge(record, core.Patch{}, testMapping)

	if diff := cmp.Diff(acme(), result.Record); diff != "" {
		t.Fatalf("record changed (-want +got):\n%s", diff)
	}
	assert.Empty(t, result.Changed)
}

func TestMergeSingleField(t *testing.T) {
	record := acme()
	result := Merge(record, core.Patch{"news": "Acme acquires Beta"}, testMapping)

	want := acme()
	want["Actualité Récente"] = "Acme acquires Beta"
	if diff := cmp.Diff(want, result.Record); diff != "" {
		t.Fatalf("unexpected merge (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"news"}, result.Changed)

	// Input record is never mutated.
	assert.Equal(t, "old news", record["Actualité Récente"])
}

func TestMergeKeepsExistingOnNull(t *testing.T) {
	result := Merge(acme(), core.Patch{"esg": "low risk", "revenue": nil}, testMapping)

	want := core.Record{
		"Nom de l'entité":   "Acme",
		"CA (M€)":           "10",
		"Controverses":      "low risk",
		"Actualité Récente": "old news",
	}
	if diff := cmp.Diff(want, result.Record); diff != "" {
		t.Fatalf("unexpected merge (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"esg"}, result.Changed)
}

func TestMergeSkipsBlankAndUnresolved(t *testing.T) {
	result := Merge(acme(), core.Patch{
		"revenue":  "   ",
		"ebitda":   "4",
		"ESG":      "moderate",
		"unknown":  "x",
		"news":     "old news",
		"Revenue ": nil,
	}, testMapping)

	assert.Equal(t, "10", result.Record["CA (M€)"])
	assert.Equal(t, "moderate", result.Record["Controverses"])
	assert.Equal(t, []string{"esg"}, result.Changed)
	assert.Len(t, result.Record, 4)
}

func TestMergeResponse(t *testing.T) {
	text := "Here is what I found:\n```json\n{\"revenue\": 12.5, \"esg\": null, \"news\": \"Beta deal\"}\n```\nHope this helps."
	result, err := MergeResponse(acme(), text, testMapping)
	require.NoError(t, err)
	assert.Equal(t, "12.5", result.Record["CA (M€)"])
	assert.Equal(t, "", result.Record["Controverses"])
	assert.Equal(t, "Beta deal", result.Record["Actualité Récente"])
	assert.Equal(t, []string{"news", "revenue"}, result.Changed)
}

func TestMergeResponseParseError(t *testing.T) {
	record := acme()
	for _, text := range []string{
		"I could not find anything.",
		"{\"revenue\": 12,",
		"} backwards {",
		"{\"revenue\": [1, 2}",
		"null",
		"Example format: {\"news\": \"EXAMPLE ONLY\"} -- real answer follows: {\"news\": \"Acme acquires Beta\"}",
		"{\"revenue\": 12} {\"ebitda\": 3}",
	} {
		result, err := MergeResponse(record, text, testMapping)
		require.Error(t, err, text)

		var parseErr *core.ParseError
		require.True(t, errors.As(err, &parseErr), text)
		assert.Equal(t, text, parseErr.Raw)
		if diff := cmp.Diff(acme(), result.Record); diff != "" {
			t.Fatalf("record changed on parse error (-want +got):\n%s", diff)
		}
		assert.Empty(t, result.Changed)
	}
}

func TestAssign(t *testing.T) {
	columns := []string{"Nom de l'entité", "CA (M€)", "Controverses", "Actualité Récente"}

	result, err := Assign(acme(), map[string]string{"news": "", "esg": " flagged "}, testMapping, columns)
	require.NoError(t, err)
	assert.Equal(t, "", result.Record["Actualité Récente"])
	assert.Equal(t, "flagged", result.Record["Controverses"])
	assert.Equal(t, []string{"esg", "news"}, result.Changed)

	_, err = Assign(acme(), map[string]string{"status": "Contacté"}, testMapping, columns)
	var resErr *core.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "status", resErr.Field)
	assert.Equal(t, columns, resErr.Columns)
}

func TestRender(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{nil, "", false},
		{"", "", false},
		{" text ", "text", true},
		{float64(3), "3", true},
		{json.Number("1.50"), "1.5", true},
		{json.Number("1.50e1"), "15", true},
		{json.Number("-0.250"), "-0.25", true},
		{json.Number("42"), "42", true},
		{true, "true", true},
		{[]any{"a", nil, "b"}, "a, b", true},
		{[]any{}, "", false},
		{map[string]any{"k": "v"}, `{"k":"v"}`, true},
		{map[string]any{}, "", false},
	}
	for _, tc := range cases {
		got, ok := Render(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestExtractPatch(t *testing.T) {
	patch, err := ExtractPatch(`prefix {"a": {"b": 1}, "c": "d"} suffix`)
	require.NoError(t, err)
	assert.Equal(t, "d", patch["c"])
	nested, ok := patch["a"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("1"), nested["b"])
}
