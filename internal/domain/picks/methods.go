package picks

// MethodSet is the ordered list of finish methods the backend currently accepts.
type MethodSet []Method

// NewMethodSet converts raw enum labels into a MethodSet, dropping blanks.
func NewMethodSet(labels []string) MethodSet {
	set := make(MethodSet, 0, len(labels))
	for _, l := range labels {
		if l != "" {
			set = append(set, Method(l))
		}
	}
	return set
}

// Contains reports whether m is a currently valid method.
func (s MethodSet) Contains(m Method) bool {
	for _, candidate := range s {
		if candidate == m {
			return true
		}
	}
	return false
}

// Default returns the first known method, or fallback when the set is empty.
func (s MethodSet) Default(fallback Method) Method {
	if len(s) == 0 {
		return fallback
	}
	return s[0]
}
