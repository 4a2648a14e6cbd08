package verifier

import (
	"context"
	"strings"
	"sync"

	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

// MockVerifier returns deterministic verdicts for offline demos and tests.
//
// Scripted verdicts are returned in order; once exhausted, any image/* proof
// is accepted and anything else is rejected.
type MockVerifier struct {
	Model string
	Err   error

	mu       sync.Mutex
	script   []verify.Verdict
	requests []verify.Request
}

// NewMockVerifier creates a mock that replays the given verdicts first.
func NewMockVerifier(script ...verify.Verdict) *MockVerifier {
	return &MockVerifier{Model: "mock", script: script}
}

func (m *MockVerifier) ID() string {
	return "mock:" + m.Model
}

func (m *MockVerifier) Verify(ctx context.Context, req verify.Request) (*verify.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.script) > 0 {
		v := m.script[0]
		m.script = m.script[1:]
		return &v, nil
	}

	if strings.HasPrefix(req.Image.ContentType(), "image/") {
		return &verify.Verdict{Verified: true, Reasoning: "Photo matches the task: " + req.TaskTitle + "."}, nil
	}
	return &verify.Verdict{Verified: false, Reasoning: "The upload is not a photo."}, nil
}

// Requests returns the requests received so far.
func (m *MockVerifier) Requests() []verify.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]verify.Request(nil), m.requests...)
}
