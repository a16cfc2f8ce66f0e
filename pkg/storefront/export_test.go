package storefront

// TrackedSessions reports how many sessions svc holds state for.
func TrackedSessions(svc Service) int {
	s := svc.(*service)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
