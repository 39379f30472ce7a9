// Package workflow holds the lifecycle tables for design jobs, work orders and
// purchase orders and answers whether a status change is permitted.
//
// The tables ship embedded in the binary and are checked for consistency
// when parsed; there is no runtime mutation.
package workflow

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"production_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// EntityType names a lifecycle-managed entity.
type EntityType string

const (
	EntityDesignJob     EntityType = "design_job"
	EntityWorkOrder     EntityType = "work_order"
	EntityPurchaseOrder EntityType = "purchase_order"
)

// Status is a lifecycle status code.
type Status string

// Kind tags what an edge means. Only assignment edges may set assignee fields.
type Kind string

const (
	KindStandard     Kind = "standard"
	KindAssignment   Kind = "assignment"
	KindSubmission   Kind = "submission"
	KindReview       Kind = "review"
	KindDelay        Kind = "delay"
	KindReceipt      Kind = "receipt"
	KindApproval     Kind = "approval"
	KindCancellation Kind = "cancellation"
)

var knownKinds = map[Kind]bool{
	KindStandard: true, KindAssignment: true, KindSubmission: true, KindReview: true,
	KindDelay: true, KindReceipt: true, KindApproval: true, KindCancellation: true,
}

// Transition is one legal edge.
type Transition struct {
	From Status `yaml:"from" json:"from"`
	To   Status `yaml:"to" json:"to"`
	Kind Kind   `yaml:"kind" json:"kind"`
}

type tableSpec struct {
	Statuses    []Status     `yaml:"statuses"`
	Initial     []Status     `yaml:"initial"`
	Terminal    []Status     `yaml:"terminal"`
	Transitions []Transition `yaml:"transitions"`
}

type table struct {
	statuses []Status
	known    map[Status]bool
	initial  map[Status]bool
	terminal map[Status]bool
	edges    map[Status]map[Status]Transition
}

// Validator answers legality questions against the loaded tables.
type Validator struct {
	tables map[EntityType]*table
}

//go:embed transitions.yaml
var embeddedTables []byte

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns the validator built from the embedded tables.
// It panics if the embedded document is inconsistent, which is a build defect.
func Default() *Validator {
	defaultOnce.Do(func() {
		v, err := Parse(embeddedTables)
		if err != nil {
			panic(fmt.Sprintf("workflow: embedded transition tables invalid: %v", err))
		}
		defaultValidator = v
	})
	return defaultValidator
}

// Parse builds a Validator from a YAML document and checks it for consistency.
func Parse(data []byte) (*Validator, error) {
	var specs map[EntityType]tableSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse transition tables: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no transition tables defined")
	}

	v := &Validator{tables: make(map[EntityType]*table, len(specs))}
	for entity, spec := range specs {
		t, err := buildTable(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entity, err)
		}
		v.tables[entity] = t
	}
	return v, nil
}

func buildTable(spec tableSpec) (*table, error) {
	t := &table{
		statuses: spec.Statuses,
		known:    make(map[Status]bool, len(spec.Statuses)),
		initial:  make(map[Status]bool, len(spec.Initial)),
		terminal: make(map[Status]bool, len(spec.Terminal)),
		edges:    make(map[Status]map[Status]Transition),
	}
	for _, s := range spec.Statuses {
		if t.known[s] {
			return nil, fmt.Errorf("status %q declared twice", s)
		}
		t.known[s] = true
	}
	if len(spec.Initial) == 0 {
		return nil, fmt.Errorf("no initial status")
	}
	for _, s := range spec.Initial {
		if !t.known[s] {
			return nil, fmt.Errorf("initial status %q is not declared", s)
		}
		t.initial[s] = true
	}
	for _, s := range spec.Terminal {
		if !t.known[s] {
			return nil, fmt.Errorf("terminal status %q is not declared", s)
		}
		t.terminal[s] = true
	}

	for _, tr := range spec.Transitions {
		if !t.known[tr.From] || !t.known[tr.To] {
			return nil, fmt.Errorf("edge %s->%s uses an undeclared status", tr.From, tr.To)
		}
		if !knownKinds[tr.Kind] {
			return nil, fmt.Errorf("edge %s->%s has unknown kind %q", tr.From, tr.To, tr.Kind)
		}
		if t.terminal[tr.From] {
			return nil, fmt.Errorf("terminal status %q has outgoing edge to %q", tr.From, tr.To)
		}
		if tr.From == tr.To {
			return nil, fmt.Errorf("self edge on %q", tr.From)
		}
		if t.edges[tr.From] == nil {
			t.edges[tr.From] = make(map[Status]Transition)
		}
		if _, dup := t.edges[tr.From][tr.To]; dup {
			return nil, fmt.Errorf("edge %s->%s declared twice", tr.From, tr.To)
		}
		t.edges[tr.From][tr.To] = tr
	}

	for _, s := range spec.Statuses {
		if !t.terminal[s] && len(t.edges[s]) == 0 {
			return nil, fmt.Errorf("non-terminal status %q has no outgoing edge", s)
		}
	}
	return t, nil
}

// IsLegal reports whether from->to is an edge of entity's table.
func (v *Validator) IsLegal(entity EntityType, from, to Status) bool {
	t, ok := v.tables[entity]
	if !ok {
		return false
	}
	_, ok = t.edges[from][to]
	return ok
}

// ListLegalNext returns the statuses reachable from from in one step,
// ordered by their declaration order in the table.
func (v *Validator) ListLegalNext(entity EntityType, from Status) []Status {
	t, ok := v.tables[entity]
	if !ok {
		return nil
	}
	next := make([]Status, 0, len(t.edges[from]))
	for _, s := range t.statuses {
		if _, ok := t.edges[from][s]; ok {
			next = append(next, s)
		}
	}
	return next
}

// Check returns the tagged edge for from->to, or an InvalidTransition error
// naming the attempted edge and the legal alternatives.
func (v *Validator) Check(entity EntityType, from, to Status) (Transition, error) {
	t, ok := v.tables[entity]
	if !ok {
		return Transition{}, apperr.Internal(fmt.Sprintf("no lifecycle table for %s", entity))
	}
	if tr, ok := t.edges[from][to]; ok {
		return tr, nil
	}
	return Transition{}, NewInvalidTransition(entity, from, to, v.ListLegalNext(entity, from))
}

// CheckKind is Check that additionally requires the edge to carry kind.
func (v *Validator) CheckKind(entity EntityType, from, to Status, kind Kind) (Transition, error) {
	tr, err := v.Check(entity, from, to)
	if err != nil {
		return Transition{}, err
	}
	if tr.Kind != kind {
		reason := fmt.Sprintf("edge is %s, not %s", tr.Kind, kind)
		return Transition{}, apperr.InvalidTransition(fmt.Sprintf("%s cannot move from %s to %s: %s", entity, from, to, reason)).
			WithDetails(transitionDetails(entity, from, to, v.ListLegalNext(entity, from), reason))
	}
	return tr, nil
}

// IsInitial reports whether status is a permitted creation status.
func (v *Validator) IsInitial(entity EntityType, status Status) bool {
	t, ok := v.tables[entity]
	return ok && t.initial[status]
}

// IsTerminal reports whether status has no outgoing edges.
func (v *Validator) IsTerminal(entity EntityType, status Status) bool {
	t, ok := v.tables[entity]
	return ok && t.terminal[status]
}

// IsKnown reports whether status is declared for entity.
func (v *Validator) IsKnown(entity EntityType, status Status) bool {
	t, ok := v.tables[entity]
	return ok && t.known[status]
}

// Statuses returns every declared status of entity in declaration order.
func (v *Validator) Statuses(entity EntityType) []Status {
	t, ok := v.tables[entity]
	if !ok {
		return nil
	}
	out := make([]Status, len(t.statuses))
	copy(out, t.statuses)
	return out
}

// Terminal returns the terminal statuses of entity.
func (v *Validator) Terminal(entity EntityType) []Status {
	var out []Status
	for _, s := range v.Statuses(entity) {
		if v.IsTerminal(entity, s) {
			out = append(out, s)
		}
	}
	return out
}

// Entities returns the entity types with a table, sorted.
func (v *Validator) Entities() []EntityType {
	out := make([]EntityType, 0, len(v.tables))
	for e := range v.tables {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewInvalidTransition builds the error returned for a rejected edge.
func NewInvalidTransition(entity EntityType, from, to Status, legalNext []Status) *apperr.Error {
	return apperr.InvalidTransition(fmt.Sprintf("%s cannot move from %s to %s", entity, from, to)).
		WithDetails(transitionDetails(entity, from, to, legalNext, ""))
}

func transitionDetails(entity EntityType, from, to Status, legalNext []Status, reason string) map[string]interface{} {
	if legalNext == nil {
		legalNext = []Status{}
	}
	details := map[string]interface{}{
		"entityType": entity,
		"from":       from,
		"to":         to,
		"legalNext":  legalNext,
	}
	if reason != "" {
		details["reason"] = reason
	}
	return details
}
