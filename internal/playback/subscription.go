package playback

const stateBufferSize = 16

// Subscription delivers state snapshots to one observer. The latest known
// state is replayed immediately on subscribe, so observers need no initial
// poll. A slow observer loses intermediate snapshots, never the newest one.
type Subscription struct {
	States <-chan State
	Done   <-chan struct{}

	stateCh chan State
	doneCh  chan struct{}
}

func newSubscription(current State) *Subscription {
	s := &Subscription{
		stateCh: make(chan State, stateBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.States = s.stateCh
	s.Done = s.doneCh
	s.stateCh <- current
	return s
}

// send publishes a snapshot without blocking. When the buffer is full the
// oldest pending snapshot is dropped so the newest always lands.
func (s *Subscription) send(st State) {
	for {
		select {
		case s.stateCh <- st:
			return
		default:
		}
		select {
		case <-s.stateCh:
		default:
		}
	}
}

// close signals the observer to stop by closing Done.
func (s *Subscription) close() {
	close(s.doneCh)
}
