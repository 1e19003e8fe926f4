package memory

// setUserAttribute writes an arbitrary attribute on a user's public link
// document, creating it if needed.
func (s *Store) setUserAttribute(userID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc(s.links, userID)[key] = value
}

func (s *Store) userAttribute(userID, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.links[userID][key]
	return v, ok
}
