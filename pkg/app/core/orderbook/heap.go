package orderbook

// bidQueue implements heap.Interface for resting buys: highest price on top,
// earliest sequence first within a price.
// Use container/heap to manipulate it (Init, Push, Pop, Fix).
type bidQueue []*Order

func (q bidQueue) Len() int { return len(q) }
func (q bidQueue) Less(i, j int) bool {
	if c := q[i].Price.Cmp(q[j].Price); c != 0 {
		return c > 0
	}
	return q[i].Seq < q[j].Seq
}
func (q bidQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *bidQueue) Push(x interface{}) {
	*q = append(*q, x.(*Order))
}

func (q *bidQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return x
}

// Peek returns the best bid without removing it
func (q bidQueue) Peek() *Order {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// askQueue implements heap.Interface for resting sells: lowest price on top,
// earliest sequence first within a price.
type askQueue []*Order

func (q askQueue) Len() int { return len(q) }
func (q askQueue) Less(i, j int) bool {
	if c := q[i].Price.Cmp(q[j].Price); c != 0 {
		return c < 0
	}
	return q[i].Seq < q[j].Seq
}
func (q askQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *askQueue) Push(x interface{}) {
	*q = append(*q, x.(*Order))
}

func (q *askQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return x
}

// Peek returns the best ask without removing it
func (q askQueue) Peek() *Order {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
