package domain

import (
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine admission behaviour.
const (
	// SeverityBlock rejects the admission.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not reject.
	SeverityWarn Severity = "warn"
)

// ViolationCode classifies a violation for callers that branch on it.
type ViolationCode string

const (
	CodeIntegrity     ViolationCode = "integrity"
	CodeSchema        ViolationCode = "schema"
	CodeDuplicate     ViolationCode = "duplicate"
	CodeNearDuplicate ViolationCode = "near_duplicate"
	CodePushPull      ViolationCode = "push_pull"
	CodeUnknownID     ViolationCode = "unknown_id"
)

// Violation reports a failed check against a record.
type Violation struct {
	Rule     string        `json:"rule"`
	Code     ViolationCode `json:"code"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Entity   EntityKind    `json:"entity"`
	EntityID string        `json:"entity_id,omitempty"`
	Field    string        `json:"field,omitempty"`
}

func (v Violation) String() string {
	if v.Field != "" {
		return fmt.Sprintf("%s: %s: %s", v.Code, v.Field, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Add appends a single violation.
func (r *Result) Add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns the blocking violations in order.
func (r Result) Blocking() []Violation { return r.filter(SeverityBlock) }

// Warnings returns the non-blocking violations in order.
func (r Result) Warnings() []Violation { return r.filter(SeverityWarn) }

// Has reports whether any violation carries code.
func (r Result) Has(code ViolationCode) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (r Result) filter(sev Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == sev {
			out = append(out, v)
		}
	}
	return out
}

// RejectionError is returned when an admission is blocked. It carries every
// violated constraint, not just the first.
type RejectionError struct {
	Result Result
}

func (e RejectionError) Error() string {
	blocking := e.Result.Blocking()
	if len(blocking) == 0 {
		return "admission rejected"
	}
	msgs := make([]string, 0, len(blocking))
	for _, v := range blocking {
		msgs = append(msgs, v.String())
	}
	return "admission rejected: " + strings.Join(msgs, "; ")
}

// IntegrityError reports dangling or conflicting references discovered while
// loading or resolving records.
type IntegrityError struct {
	Violations []Violation
}

func (e IntegrityError) Error() string {
	if len(e.Violations) == 1 {
		return "integrity violation: " + e.Violations[0].Message
	}
	return fmt.Sprintf("%d integrity violations", len(e.Violations))
}
