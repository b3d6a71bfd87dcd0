package budget

// LockedProjects returns the number of projects with a live write lock.
func (s *Service) LockedProjects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
