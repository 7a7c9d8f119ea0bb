package order

import "fmt"

// Lookup resolves a uid to the live simulation entity it names.
type Lookup func(uid uint64) (Entity, bool)

// UnknownUnitError reports a wire order referencing a uid the local
// simulation no longer knows, typically because the unit was destroyed
// before the order arrived.
type UnknownUnitError struct {
	UID uint64
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("order references unknown unit %d", e.UID)
}

// Encode translates a live order tree into its wire form, replacing every
// entity reference with the entity's uid.
func Encode(o *Live) *Wire {
	// The reference map cannot fail in this direction.
	w, _ := convert(o, func(e Entity) (uint64, error) {
		return e.UID(), nil
	})
	return w
}

// Decode reconstructs a live order tree from its wire form. Every
// referenced uid is resolved through lookup; a uid that no longer resolves
// yields an UnknownUnitError rather than a placeholder entity, so callers
// can drop the order and report it.
func Decode(w *Wire, lookup Lookup) (*Live, error) {
	return convert(w, func(uid uint64) (Entity, error) {
		e, ok := lookup(uid)
		if !ok {
			return nil, &UnknownUnitError{UID: uid}
		}
		return e, nil
	})
}

// Validate checks the structural invariants of a wire order: a known
// variant, and a target present exactly on the variants that carry one.
func Validate(w *Wire) error {
	if w == nil {
		return fmt.Errorf("nil order")
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("unknown order kind %q", w.Kind)
	}
	if w.Kind.Targeted() && w.Target == nil {
		return fmt.Errorf("%s order missing target", w.Kind)
	}
	if !w.Kind.Targeted() && w.Target != nil {
		return fmt.Errorf("%s order carries unexpected target", w.Kind)
	}
	if w.Next != nil {
		if err := Validate(w.Next); err != nil {
			return fmt.Errorf("next: %w", err)
		}
	}
	if w.UnitOrder != nil {
		if err := Validate(w.UnitOrder); err != nil {
			return fmt.Errorf("unitOrder: %w", err)
		}
	}
	return nil
}
