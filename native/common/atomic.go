package common

// Snapshotter is implemented by state backends that can roll back to an
// earlier point.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(id int)
	ReleaseSnapshot(id int)
}

// Atomic runs fn against a snapshot of s. When fn fails every state write it
// made is reverted, so an entry point either applies completely or not at all.
func Atomic(s Snapshotter, fn func() error) error {
	if s == nil {
		return fn()
	}
	id := s.Snapshot()
	if err := fn(); err != nil {
		s.RevertToSnapshot(id)
		return err
	}
	s.ReleaseSnapshot(id)
	return nil
}
