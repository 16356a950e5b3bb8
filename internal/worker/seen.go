package worker

// seenSet is a bounded FIFO set of notification IDs. Once full, adding a
// new ID evicts the oldest remembered one. It is only touched from the
// worker goroutine and needs no locking.
type seenSet struct {
	capacity int
	order    []string
	members  map[string]struct{}
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		capacity: capacity,
		members:  make(map[string]struct{}, capacity),
	}
}

func (s *seenSet) Contains(id string) bool {
	_, ok := s.members[id]
	return ok
}

func (s *seenSet) Add(id string) {
	if _, ok := s.members[id]; ok {
		return
	}
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.members, oldest)
	}
	s.order = append(s.order, id)
	s.members[id] = struct{}{}
}

func (s *seenSet) Len() int {
	return len(s.order)
}
