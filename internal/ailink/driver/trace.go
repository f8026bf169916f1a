package driver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"
)

// maxTracedBody caps each traced payload. Longer bodies are cut and stored as
// a JSON string.
const maxTracedBody = 64 << 10

// secretParams are query parameters scrubbed from traced endpoints.
var secretParams = []string{"key", "api_key", "authToken", "access_token"}

// TraceEntry is one provider call in the NDJSON trace file (--trace).
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	PromptSlug  string          `json:"prompt_slug,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// tracer appends entries to one file. A nil tracer means tracing is off.
var tracer struct {
	mu   sync.Mutex
	file *os.File
}

// EnableTracing appends provider calls to path, replacing any previous trace
// file. The returned func stops tracing.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- path comes from --trace
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	tracer.mu.Lock()
	previous := tracer.file
	tracer.file = f
	tracer.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	return DisableTracing, nil
}

// DisableTracing stops tracing and closes the trace file.
func DisableTracing() {
	tracer.mu.Lock()
	f := tracer.file
	tracer.file = nil
	tracer.mu.Unlock()
	if f != nil {
		_ = f.Close()
	}
}

// IsTracingEnabled reports whether a trace file is open.
func IsTracingEnabled() bool {
	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	return tracer.file != nil
}

// TraceCall records a finished call that started at start. Credentials in the
// endpoint query are masked.
func TraceCall(entry TraceEntry, start time.Time, request, response []byte, err error) {
	if !IsTracingEnabled() {
		return
	}
	entry.Timestamp = start
	entry.DurationMs = time.Since(start).Milliseconds()
	entry.Endpoint = redactEndpoint(entry.Endpoint)
	entry.RequestBody = tracedBody(request)
	entry.Response = tracedBody(response)
	if err != nil {
		entry.Error = err.Error()
	}

	line, mErr := json.Marshal(entry)
	if mErr != nil {
		return
	}
	line = append(line, '\n')

	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	if tracer.file != nil {
		_, _ = tracer.file.Write(line)
	}
}

// tracedBody keeps valid JSON as is and quotes anything else.
func tracedBody(data []byte) json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	if len(data) <= maxTracedBody && json.Valid(data) {
		return data
	}
	if len(data) > maxTracedBody {
		data = append(data[:maxTracedBody:maxTracedBody], "...(truncated)"...)
	}
	quoted, err := json.Marshal(string(data))
	if err != nil {
		return nil
	}
	return quoted
}

func redactEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.RawQuery == "" {
		return endpoint
	}
	query := parsed.Query()
	for _, name := range secretParams {
		if query.Has(name) {
			query.Set(name, "REDACTED")
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
