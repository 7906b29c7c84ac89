// Package issues aggregates violated controls into a deduplicated
// resource -> control ID -> messages mapping.
package issues

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// ExceptionKey is the reserved control key under which collection exceptions
// are recorded with Note.
const ExceptionKey = "exception"

// ErrUnknownControl is returned when a control ID or message index does not
// resolve against the catalogue.
var ErrUnknownControl = errors.New("unknown control")

// Ledger is the issue aggregator. The zero value is not usable; call New.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	entries map[string]map[string][]string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]map[string][]string)}
}

// Log records message index of controlID against resource. Recording the same
// message twice for the same resource and control is a no-op.
func (l *Ledger) Log(resource, controlID string, index int) error {
	msg, err := controls.Message(controlID, index)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownControl, err)
	}
	l.add(resource, controlID, msg)
	return nil
}

// Note records a free-form collection exception for resource.
func (l *Ledger) Note(resource, msg string) {
	l.add(resource, ExceptionKey, msg)
}

func (l *Ledger) add(resource, key, msg string) {
	byControl, ok := l.entries[resource]
	if !ok {
		byControl = make(map[string][]string)
		l.entries[resource] = byControl
	}
	for _, existing := range byControl[key] {
		if existing == msg {
			return
		}
	}
	byControl[key] = append(byControl[key], msg)
}

// Merge folds other into l using the same dedupe rule as Log.
func (l *Ledger) Merge(other *Ledger) {
	if other == nil {
		return
	}
	for _, res := range other.Resources() {
		for _, ctrl := range other.Controls(res) {
			for _, msg := range other.entries[res][ctrl] {
				l.add(res, ctrl, msg)
			}
		}
	}
}

// Resources returns all resource keys in ascending order.
func (l *Ledger) Resources() []string {
	out := make([]string, 0, len(l.entries))
	for r := range l.entries {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Controls returns the control keys recorded for resource in control order.
func (l *Ledger) Controls(resource string) []string {
	byControl := l.entries[resource]
	out := make([]string, 0, len(byControl))
	for c := range byControl {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return controls.CompareIDs(out[i], out[j]) < 0
	})
	return out
}

// Messages returns a copy of the messages recorded for resource and control.
func (l *Ledger) Messages(resource, controlID string) []string {
	msgs := l.entries[resource][controlID]
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}

// Has reports whether any message is recorded for resource and control.
func (l *Ledger) Has(resource, controlID string) bool {
	return len(l.entries[resource][controlID]) > 0
}

// Len returns the number of (resource, control) pairs.
func (l *Ledger) Len() int {
	n := 0
	for _, byControl := range l.entries {
		n += len(byControl)
	}
	return n
}

// Map returns a deep copy of the ledger as plain nested maps.
func (l *Ledger) Map() map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(l.entries))
	for res, byControl := range l.entries {
		cp := make(map[string][]string, len(byControl))
		for ctrl, msgs := range byControl {
			cp[ctrl] = append([]string(nil), msgs...)
		}
		out[res] = cp
	}
	return out
}

// MarshalJSON encodes the ledger as its nested map.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Map())
}

// FromFindings builds a ledger from rule findings. Findings must carry a
// ControlID and a MessageIndex that resolve against the catalogue.
func FromFindings(findings []models.Finding) (*Ledger, error) {
	l := New()
	var errs []error
	for _, f := range findings {
		if err := l.Log(f.IssueKey(), f.ControlID, f.MessageIndex); err != nil {
			errs = append(errs, fmt.Errorf("finding %s: %w", f.ID, err))
		}
	}
	return l, errors.Join(errs...)
}

// FromMap rebuilds a ledger from its nested map form, such as the Issues
// field of a decoded report.
func FromMap(m map[string]map[string][]string) *Ledger {
	l := New()
	for res, byControl := range m {
		for ctrl, msgs := range byControl {
			for _, msg := range msgs {
				l.add(res, ctrl, msg)
			}
		}
	}
	return l
}
