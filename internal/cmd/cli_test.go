package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSheet = "Nom de l'entité;CA (M€);EBITDA (M€);Priorité;Statut Follow-up;Commentaires\n" +
	"Acme;10;;P1;À contacter;\n" +
	"Beta SA;;;P2;;\n"

func writeTestWorkspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prospects.csv"), []byte(testSheet), 0644))

	cfg := strings.Join([]string{
		"sheet:",
		"  backend: csv",
		"  path: " + dir,
		"  table: prospects",
		"  delimiter: \";\"",
		"  cache_ttl: 0s",
		"enrich:",
		"  history: false",
		"store:",
		"  path: " + filepath.Join(dir, "prospectlens.db"),
		"metrics:",
		"  enabled: false",
		"",
	}, "\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return dir, cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := Execute()
	return out.String(), err
}

func TestCLIListUpdateShow(t *testing.T) {
	dir, cfgPath := writeTestWorkspace(t)

	out, err := runCLI(t, "--config", cfgPath, "list", "--priority", "P1", "-o", "json")
	require.NoError(t, err)
	var list struct {
		Total int                 `json:"total"`
		Rows  []map[string]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "Acme", list.Rows[0]["Nom de l'entité"])

	_, err = runCLI(t, "--config", cfgPath, "update", "Beta SA", "--set", "status=RDV fixé", "-o", "json")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "prospects.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Beta SA;;;P2;RDV fixé;")

	_, err = runCLI(t, "--config", cfgPath, "show", "Gamma", "-o", "json")
	require.Error(t, err)
	assert.Equal(t, "no record with Nom de l'entité = \"Gamma\"", err.Error())
}

func TestEmitWritesFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "list.md")
	cmd := &cobra.Command{Use: "probe"}
	cmd.Flags().String("out", target, "")

	require.NoError(t, emit(cmd, "| a |"))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "| a |\n", string(data))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "prospects-2026", sanitizeFilename(" Prospects 2026 "))
	assert.Equal(t, "output", sanitizeFilename("///"))
}
