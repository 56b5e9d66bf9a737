package matchmaking

// waitingQueue is a FIFO of user ids with no duplicate membership.
// It is not safe for concurrent use on its own: the owning Service
// holds its mutex around every call.
type waitingQueue struct {
	order  []string
	member map[string]struct{}
}

func newWaitingQueue() *waitingQueue {
	return &waitingQueue{
		member: make(map[string]struct{}),
	}
}

func (q *waitingQueue) contains(userID string) bool {
	_, ok := q.member[userID]
	return ok
}

// enqueue appends userID to the tail. A user already in the queue is a
// no-op; the caller checks membership inside the same critical section.
func (q *waitingQueue) enqueue(userID string) {
	if q.contains(userID) {
		return
	}
	q.order = append(q.order, userID)
	q.member[userID] = struct{}{}
}

// dequeueHead removes and returns the earliest-enqueued user.
func (q *waitingQueue) dequeueHead() (string, bool) {
	if len(q.order) == 0 {
		return "", false
	}
	head := q.order[0]
	q.order = q.order[1:]
	delete(q.member, head)
	return head, true
}

func (q *waitingQueue) len() int {
	return len(q.order)
}

// snapshot returns a copy of the queue in arrival order.
func (q *waitingQueue) snapshot() []string {
	return append([]string(nil), q.order...)
}
