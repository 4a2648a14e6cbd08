// Package verify defines the proof verification contract.
package verify

import (
	"context"
	"errors"
	"net/http"
)

// SensorFailureReasoning is reported when the verifier could not produce a verdict.
const SensorFailureReasoning = "Verification failed due to sensor error. Please try again."

// ErrMalformedVerdict indicates the verifier answered with something that is not a verdict.
var ErrMalformedVerdict = errors.New("malformed verdict")

// Proof is the image submitted as evidence of completing a step.
type Proof struct {
	Data     []byte
	MIMEType string
}

// IsEmpty reports whether the proof carries no image content.
func (p Proof) IsEmpty() bool {
	return len(p.Data) == 0
}

// ContentType returns the declared MIME type, sniffing the data when none was given.
func (p Proof) ContentType() string {
	if p.MIMEType != "" {
		return p.MIMEType
	}
	return http.DetectContentType(p.Data)
}

// Request asks the verifier to judge one proof against one step.
type Request struct {
	TaskTitle       string
	TaskDescription string
	Image           Proof
}

// Verdict is the verifier's judgement.
type Verdict struct {
	Verified  bool   `json:"verified"`
	Reasoning string `json:"reasoning"`
}

// SensorFailure is the verdict substituted for any verifier error.
func SensorFailure() Verdict {
	return Verdict{Verified: false, Reasoning: SensorFailureReasoning}
}

// Verifier is the interface for all proof verification backends.
type Verifier interface {
	ID() string
	Verify(ctx context.Context, req Request) (*Verdict, error)
}
