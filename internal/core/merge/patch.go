package merge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prospectlens/prospectlens/internal/core"
)

// ExtractPatch decodes the JSON object embedded in free provider text. Only the
// span from the first '{' to the last '}' is decoded, so prose and code fences
// around the payload are ignored. The span must hold exactly one object.
func ExtractPatch(text string) (core.Patch, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &core.ParseError{Err: errors.New("no JSON object in response"), Raw: text}
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	decoder.UseNumber()

	var patch core.Patch
	if err := decoder.Decode(&patch); err != nil {
		return nil, &core.ParseError{Err: fmt.Errorf("decode object: %w", err), Raw: text}
	}
	if patch == nil {
		return nil, &core.ParseError{Err: errors.New("response object is null"), Raw: text}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, &core.ParseError{Err: errors.New("unexpected data after response object"), Raw: text}
	}
	return patch, nil
}
