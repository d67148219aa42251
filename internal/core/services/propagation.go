package services

import (
	"fmt"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// writeOrigin identifies who asked for a write; it decides lock handling.
type writeOrigin int

const (
	originUser writeOrigin = iota
	originAI
	originRule
	originRevert
)

func originFor(p domain.Provenance) writeOrigin {
	switch p.Kind {
	case domain.ProvenanceAutofilled:
		return originRule
	case domain.ProvenanceAISuggested:
		return originAI
	default:
		return originUser
	}
}

// writeKind classifies a recorded change for metrics and notices.
type writeKind int

const (
	writeDirect writeKind = iota
	writeRule
	writeRetract
)

// step is one field=value write on a propagation path.
type step struct {
	field string
	value string
}

func (s step) String() string { return s.field + "=" + s.value }

func pathStrings(path []step) []string {
	out := make([]string, len(path))
	for i, s := range path {
		out[i] = s.String()
	}
	return out
}

// onPath reports whether s is already an ancestor of the current write.
func onPath(path []step, s step) bool {
	for _, p := range path {
		if p == s {
			return true
		}
	}
	return false
}

type undoEntry struct {
	field string
	state domain.FieldState
}

// txn is one propagation transaction. It lives under the runtime mutex and
// records changes for delivery at commit.
type txn struct {
	rt      *Runtime
	changes []domain.Change
	kinds   []writeKind
	undo    []undoEntry
	saved   map[string]bool
	aborted bool
}

func (r *Runtime) begin() *txn {
	return &txn{
		rt:    r,
		saved: make(map[string]bool),
	}
}

// locked reports whether origin must leave a locked field alone.
func (tx *txn) locked(st *domain.FieldState, origin writeOrigin) bool {
	if !st.Locked {
		return false
	}
	switch origin {
	case originRule:
		return true
	case originAI:
		return tx.rt.opts.AIRespectsLock
	default:
		return false
	}
}

// write applies an originating write and runs propagation. The write is kept
// even when the cascade it starts is aborted.
func (tx *txn) write(fieldID, value string, p domain.Provenance, origin writeOrigin) (bool, error) {
	f, ok := tx.rt.fieldsByID[fieldID]
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownField, fieldID)
	}
	v, err := normalizeInput(f, value)
	if err != nil {
		return false, err
	}
	st := tx.rt.states[fieldID]
	if tx.locked(st, origin) {
		return false, nil
	}
	if st.Value == v {
		st.Provenance = p
		return false, nil
	}

	tx.record(fieldID, st.Value, v, p, writeDirect)
	st.Value = v
	st.Provenance = p

	changeMark, undoMark := len(tx.changes), len(tx.undo)
	if err := tx.propagate(fieldID, v, []step{{fieldID, v}}); err != nil {
		tx.rollback(changeMark, undoMark)
		tx.aborted = true
		return true, err
	}
	return true, nil
}

// propagate runs the retract then apply steps for trigger's new value.
// Each derived write recurses; path is the chain of writes leading here.
func (tx *txn) propagate(trigger, value string, path []step) error {
	if tx.rt.seeding {
		return nil
	}
	rules := tx.rt.rules[trigger]

	matched := make(map[string]bool)
	for _, rule := range rules {
		if rule.TriggerValue == value {
			matched[rule.TargetID] = true
		}
	}

	// Retract values this trigger set that its new value no longer supports.
	for _, id := range tx.rt.order {
		st := tx.rt.states[id]
		if matched[id] || st.Locked || !st.Provenance.IsAutofilledBy(trigger) {
			continue
		}
		if err := tx.derive(id, "", domain.Manual(), writeRetract, path); err != nil {
			return err
		}
	}

	for _, rule := range rules {
		if rule.TriggerValue != value {
			continue
		}
		st := tx.rt.states[rule.TargetID]
		if st.Locked || st.Value == rule.TargetValue {
			continue
		}
		if err := tx.derive(rule.TargetID, rule.TargetValue, domain.Autofilled(trigger), writeRule, path); err != nil {
			return err
		}
	}
	return nil
}

// derive performs a propagation write and recurses into its own rules.
// A write that repeats one of its own ancestors is a cycle; sibling branches
// may write the same field=value and the last write wins.
func (tx *txn) derive(fieldID, value string, p domain.Provenance, kind writeKind, path []step) error {
	st := tx.rt.states[fieldID]
	if st.Value == value {
		st.Provenance = p
		return nil
	}

	cur := step{fieldID, value}
	next := append(append([]step(nil), path...), cur)
	if onPath(path, cur) {
		return &domain.CascadeError{Path: pathStrings(next), Reason: "cycle"}
	}
	if len(next) > tx.rt.opts.MaxCascadeDepth {
		return &domain.CascadeError{Path: pathStrings(next), Reason: "depth"}
	}

	if !tx.saved[fieldID] {
		tx.saved[fieldID] = true
		tx.undo = append(tx.undo, undoEntry{field: fieldID, state: st.Clone()})
	}
	tx.record(fieldID, st.Value, value, p, kind)
	st.Value = value
	st.Provenance = p

	return tx.propagate(fieldID, value, next)
}

func (tx *txn) record(fieldID, old, value string, p domain.Provenance, kind writeKind) {
	tx.changes = append(tx.changes, domain.Change{FieldID: fieldID, Old: old, New: value, Provenance: p})
	tx.kinds = append(tx.kinds, kind)
}

// rollback undoes the derived writes recorded after the marks.
func (tx *txn) rollback(changeMark, undoMark int) {
	for i := len(tx.undo) - 1; i >= undoMark; i-- {
		e := tx.undo[i]
		restored := e.state
		*tx.rt.states[e.field] = restored
		delete(tx.saved, e.field)
	}
	tx.undo = tx.undo[:undoMark]
	tx.changes = tx.changes[:changeMark]
	tx.kinds = tx.kinds[:changeMark]
}

// setItem records a checklist selection. Checklists carry no rules.
func (tx *txn) setItem(fieldID, itemID, value string) (bool, error) {
	f, ok := tx.rt.fieldsByID[fieldID]
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownField, fieldID)
	}
	if f.Type != domain.FieldTypeChecklist {
		return false, fmt.Errorf("%w: %q is not a checklist", domain.ErrInvalidValue, fieldID)
	}
	item, ok := f.Item(itemID)
	if !ok {
		return false, fmt.Errorf("%w: %q in %q", domain.ErrUnknownItem, itemID, fieldID)
	}

	v := value
	if v != "" {
		choices := f.ChoicesFor(item)
		if len(choices) == 0 {
			choices = domain.DefaultChecklistChoices()
		}
		choice, ok := resolveChoice(choices, value)
		if !ok {
			return false, fmt.Errorf("%w: %q for item %q of %q", domain.ErrInvalidValue, value, itemID, fieldID)
		}
		v = choice.Value
	}

	st := tx.rt.states[fieldID]
	old := st.Items[itemID]
	if old == v {
		return false, nil
	}
	if v == "" {
		delete(st.Items, itemID)
	} else {
		st.Items[itemID] = v
	}
	tx.changes = append(tx.changes, domain.Change{
		FieldID:    fieldID,
		ItemID:     itemID,
		Old:        old,
		New:        v,
		Provenance: domain.Manual(),
	})
	tx.kinds = append(tx.kinds, writeDirect)
	return true, nil
}
