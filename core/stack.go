package core

// workStack is the LIFO of modules waiting for a provider to start.
type workStack struct {
	items []*Module
}

func (s *workStack) push(m *Module) { s.items = append(s.items, m) }

// pop returns nil when the stack is empty.
func (s *workStack) pop() *Module {
	if len(s.items) == 0 {
		return nil
	}
	m := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return m
}

func (s *workStack) contains(m *Module) bool {
	for _, it := range s.items {
		if it == m {
			return true
		}
	}
	return false
}

func (s *workStack) names() []string {
	out := make([]string, len(s.items))
	for i, m := range s.items {
		out[i] = m.name
	}
	return out
}
