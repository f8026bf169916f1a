package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prospectlens/prospectlens/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

func formatterFor(cmd *cobra.Command) (output.Formatter, error) {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format), nil
}

func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// emit writes rendered output to --out, or stdout.
func emit(cmd *cobra.Command, rendered string) error {
	path, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	sink, err := openSink(path)
	if err != nil {
		return err
	}
	if sink.path == "-" {
		sink.writer = cmd.OutOrStdout()
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	if _, err := io.WriteString(sink.writer, rendered); err != nil {
		_ = sink.close()
		return err
	}
	return sink.close()
}
