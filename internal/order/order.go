package order

// Kind enumerates the supported order variants.
type Kind string

const (
	KindMove          Kind = "move"
	KindAttack        Kind = "attack"
	KindMoveAndAttack Kind = "move-and-attack"
	KindPatrol        Kind = "patrol"
	KindGuard         Kind = "guard"
	KindDeploy        Kind = "deploy"
	KindBuild         Kind = "build"
	KindConstructUnit Kind = "construct-unit"
	KindStand         Kind = "stand"
	KindHunt          Kind = "hunt"
	KindFire          Kind = "fire"
	KindFollow        Kind = "follow"
)

var kinds = map[Kind]struct{}{
	KindMove: {}, KindAttack: {}, KindMoveAndAttack: {}, KindPatrol: {},
	KindGuard: {}, KindDeploy: {}, KindBuild: {}, KindConstructUnit: {},
	KindStand: {}, KindHunt: {}, KindFire: {}, KindFollow: {},
}

// Valid reports whether the kind names a known variant.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Targeted reports whether the variant carries an entity reference.
// These are the only fields the codec has to translate; every other
// payload field is plain data and crosses the wire untouched.
func (k Kind) Targeted() bool {
	switch k {
	case KindAttack, KindGuard, KindFollow, KindFire:
		return true
	default:
		return false
	}
}

// Point is a grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Order is the recursive command tree, generic over its reference
// representation: R is Entity in live form and a bare uid in wire form.
// Next queues a follow-up order (move-and-attack), UnitOrder is handed to
// the unit a construct-unit order produces.
type Order[R any] struct {
	Kind      Kind      `json:"kind"`
	To        *Point    `json:"to,omitempty"`
	From      *Point    `json:"from,omitempty"`
	Target    *R        `json:"target,omitempty"`
	Name      string    `json:"name,omitempty"`
	Next      *Order[R] `json:"next,omitempty"`
	UnitOrder *Order[R] `json:"unitOrder,omitempty"`
}

// Entity is the minimal surface the codec needs from a simulation object.
type Entity interface {
	UID() uint64
}

// Live embeds direct references to simulation entities.
type Live = Order[Entity]

// Wire embeds only uids and plain coordinates; safe to serialize.
type Wire = Order[uint64]

// convert maps an order tree onto a different reference representation,
// preserving structure and nesting depth.
func convert[A, B any](o *Order[A], ref func(A) (B, error)) (*Order[B], error) {
	if o == nil {
		return nil, nil
	}
	out := &Order[B]{Kind: o.Kind, Name: o.Name}
	if o.To != nil {
		p := *o.To
		out.To = &p
	}
	if o.From != nil {
		p := *o.From
		out.From = &p
	}
	if o.Target != nil {
		mapped, err := ref(*o.Target)
		if err != nil {
			return nil, err
		}
		out.Target = &mapped
	}
	next, err := convert(o.Next, ref)
	if err != nil {
		return nil, err
	}
	out.Next = next
	unit, err := convert(o.UnitOrder, ref)
	if err != nil {
		return nil, err
	}
	out.UnitOrder = unit
	return out, nil
}
