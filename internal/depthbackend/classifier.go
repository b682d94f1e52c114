package depthbackend

import "strings"

// FailureKind is the structured classification of a backend invocation.
type FailureKind int

const (
	// FailureNone means the invocation succeeded.
	FailureNone FailureKind = iota
	// FailureProcess is an ordinary non-zero exit without exhaustion markers.
	FailureProcess
	// FailureResourceExhausted is an out-of-memory class failure detected in
	// the tool's combined output.
	FailureResourceExhausted
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureProcess:
		return "process"
	case FailureResourceExhausted:
		return "resource_exhausted"
	default:
		return "unknown"
	}
}

// defaultExhaustionPatterns are the output signatures treated as resource
// exhaustion. Matching is case-insensitive substring search.
var defaultExhaustionPatterns = []string{
	"cuda out of memory",
	"torch.outofmemoryerror",
	"cuda error: out of memory",
	"std::bad_alloc",
	"cannot allocate memory",
	"oom-kill",
	"out of memory: killed",
}

// Classifier maps invocation results to failure kinds.
type Classifier struct {
	patterns []string
}

// NewClassifier builds a classifier with the default exhaustion patterns.
func NewClassifier() *Classifier {
	return &Classifier{patterns: defaultExhaustionPatterns}
}

// NewClassifierWithPatterns builds a classifier with a custom pattern list.
func NewClassifierWithPatterns(patterns []string) *Classifier {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &Classifier{patterns: cleaned}
}

// Classify inspects an invocation error and the tool's combined output.
// Exhaustion markers dominate: a SIGKILL exit with an OOM signature in the
// output classifies as resource exhaustion even though both kinds trigger
// the same flat-depth fallback upstream.
func (c *Classifier) Classify(invokeErr error, output string) FailureKind {
	lowered := strings.ToLower(output)
	for _, pattern := range c.patterns {
		if strings.Contains(lowered, pattern) {
			return FailureResourceExhausted
		}
	}
	if invokeErr != nil {
		return FailureProcess
	}
	return FailureNone
}
