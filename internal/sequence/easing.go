package sequence

// ease maps linear progress p in [0,1] through the transition curve. All
// curves are quadratic. TransitionStep never reaches here, step targets
// apply immediately.
func ease(t Transition, p float64) float64 {
	switch t {
	case TransitionLinear:
		return p
	case TransitionEaseIn:
		return p * p
	case TransitionEaseOut:
		return p * (2 - p)
	case TransitionEaseInOut:
		if p < 0.5 {
			return 2 * p * p
		}
		return -1 + (4-2*p)*p
	case TransitionEaseOutIn:
		// Mirror of EaseInOut: fast, slow through the middle, fast again.
		if p < 0.5 {
			return 2*p - 2*p*p
		}
		h := 2*p - 1
		return 0.5 + 0.5*h*h
	default:
		return p
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
