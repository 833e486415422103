package quiz

// Answers accumulates the chosen option value per question key over one
// funnel session. Any subset of keys may be populated; scoring accepts a
// partial set, the funnel itself requires all seven before email capture.
type Answers map[Key]string

// Complete reports whether every question in Order has been answered.
func (a Answers) Complete() bool {
	for _, key := range Order {
		if _, ok := a[key]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy, so a scored answer set can be carried
// through later funnel states without aliasing the live session map.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
