package variant

// traceAssigner holds hooks called while assigning identifiers.
// All hooks are optional.
type traceAssigner struct {
	OnAssign func(identifier string) traceAssign
}

type traceAssign struct {
	OnHash       func(hash uint32)
	OnDistribute func(index uint32)
	OnDone       func(variant uint32, err error)
}

// Compose returns a new traceAssigner which has functional fields composed
// both from t and x.
func (t traceAssigner) Compose(x traceAssigner) (ret traceAssigner) {
	switch {
	case t.OnAssign == nil:
		ret.OnAssign = x.OnAssign
	case x.OnAssign == nil:
		ret.OnAssign = t.OnAssign
	default:
		h1 := t.OnAssign
		h2 := x.OnAssign
		ret.OnAssign = func(id string) traceAssign {
			return h1(id).Compose(h2(id))
		}
	}
	return ret
}

// Compose returns a new traceAssign which has functional fields composed
// both from t and x.
func (t traceAssign) Compose(x traceAssign) (ret traceAssign) {
	switch {
	case t.OnHash == nil:
		ret.OnHash = x.OnHash
	case x.OnHash == nil:
		ret.OnHash = t.OnHash
	default:
		h1, h2 := t.OnHash, x.OnHash
		ret.OnHash = func(h uint32) {
			h1(h)
			h2(h)
		}
	}
	switch {
	case t.OnDistribute == nil:
		ret.OnDistribute = x.OnDistribute
	case x.OnDistribute == nil:
		ret.OnDistribute = t.OnDistribute
	default:
		h1, h2 := t.OnDistribute, x.OnDistribute
		ret.OnDistribute = func(i uint32) {
			h1(i)
			h2(i)
		}
	}
	switch {
	case t.OnDone == nil:
		ret.OnDone = x.OnDone
	case x.OnDone == nil:
		ret.OnDone = t.OnDone
	default:
		h1, h2 := t.OnDone, x.OnDone
		ret.OnDone = func(v uint32, err error) {
			h1(v, err)
			h2(v, err)
		}
	}
	return ret
}

func (t traceAssigner) onAssign(id string) traceAssign {
	fn := t.OnAssign
	if fn == nil {
		return traceAssign{}
	}
	return fn(id)
}

func (t traceAssign) onHash(h uint32) {
	if fn := t.OnHash; fn != nil {
		fn(h)
	}
}

func (t traceAssign) onDistribute(i uint32) {
	if fn := t.OnDistribute; fn != nil {
		fn(i)
	}
}

func (t traceAssign) onDone(v uint32, err error) {
	if fn := t.OnDone; fn != nil {
		fn(v, err)
	}
}
