package worker

// idSet remembers at most max ids, forgetting the oldest first.
type idSet struct {
	max   int
	ids   map[int64]struct{}
	order []int64
}

func newIDSet(max int) *idSet {
	return &idSet{max: max, ids: make(map[int64]struct{}, max)}
}

func (s *idSet) add(id int64) {
	if _, ok := s.ids[id]; ok {
		return
	}
	if len(s.order) >= s.max {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// take removes id and reports whether it was present.
func (s *idSet) take(id int64) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *idSet) len() int { return len(s.ids) }
