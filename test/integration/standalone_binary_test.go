package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the CLI and copies it outside the module so nothing can
// depend on the source tree being the working directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary")
	}
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot, "go env GOMOD returned empty")

	built := filepath.Join(t.TempDir(), "prospectlens")
	build := exec.Command("go", "build", "-o", built, "./cmd/prospectlens")
	build.Dir = repoRoot
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build:\n%s", out)

	data, err := os.ReadFile(built)
	require.NoError(t, err)
	binary := filepath.Join(t.TempDir(), "prospectlens")
	require.NoError(t, os.WriteFile(binary, data, 0o755))
	return binary
}

type cliRun struct {
	stdout, stderr string
	err            error
}

func runCLI(binary, dir string, env []string, args ...string) cliRun {
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestStandaloneBinaryOutsideRepo(t *testing.T) {
	binary := buildBinary(t)
	work := t.TempDir()
	env := []string{
		"HOME=" + work,
		"XDG_CONFIG_HOME=" + filepath.Join(work, "config"),
		"XDG_DATA_HOME=" + filepath.Join(work, "data"),
	}

	t.Run("version", func(t *testing.T) {
		run := runCLI(binary, work, env, "version", "--extended")
		require.NoError(t, run.err, run.stderr)
		assert.True(t, strings.HasPrefix(run.stdout, "prospectlens "))
		assert.Contains(t, run.stdout, "Crucible:")
	})

	t.Run("help", func(t *testing.T) {
		run := runCLI(binary, work, env, "--help")
		require.NoError(t, run.err, run.stderr)
		for _, command := range []string{"enrich", "list", "serve", "doctor"} {
			assert.Contains(t, run.stdout, command)
		}
	})

	t.Run("init then list", func(t *testing.T) {
		cfgPath := filepath.Join(work, "prospectlens.yaml")
		run := runCLI(binary, work, env, "--config", cfgPath, "doctor", "init", "--provider", "openai")
		require.NoError(t, run.err, run.stderr)
		require.FileExists(t, cfgPath)

		run = runCLI(binary, work, env, "--config", cfgPath, "doctor", "init")
		require.Error(t, run.err, "init refuses to overwrite without --force")

		run = runCLI(binary, work, env, "--config", cfgPath, "doctor", "validate")
		require.NoError(t, run.err, run.stderr)

		sheetPath := filepath.Join(work, "prospects.csv")
		require.NoError(t, os.WriteFile(sheetPath, []byte(sheet), 0o600))
		run = runCLI(binary, work, env, "--config", cfgPath, "--sheet", sheetPath, "list", "-o", "json", "--priority", "P1")
		require.NoError(t, run.err, run.stderr)
		assert.Contains(t, run.stdout, "Acme")
		assert.NotContains(t, run.stdout, "Beta SA")
	})

	t.Run("missing sheet exits non-zero", func(t *testing.T) {
		run := runCLI(binary, work, env, "--sheet", filepath.Join(work, "absent.csv"), "list")
		var exitErr *exec.ExitError
		require.ErrorAs(t, run.err, &exitErr)
		assert.NotZero(t, exitErr.ExitCode())
	})
}
