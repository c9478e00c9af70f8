package engine

// Seat rotation helpers. Seats are kept ordered by seat number; rotation is
// clockwise through that order, wrapping at the end.

// nextIndex returns the index after i in the seat ring
func (ts *TableState) nextIndex(i int) int {
	return (i + 1) % len(ts.Seats)
}

// nextWhere returns the first seat strictly after the seat at index from whose
// status satisfies pred, or nil after a full loop.
func (ts *TableState) nextWhere(from int, pred func(*Seat) bool) *Seat {
	if len(ts.Seats) == 0 {
		return nil
	}
	for i := ts.nextIndex(from); i != from; i = ts.nextIndex(i) {
		if pred(ts.Seats[i]) {
			return ts.Seats[i]
		}
	}
	return nil
}

// nextActive returns the next seat after from that can still act this round
func (ts *TableState) nextActive(from int) *Seat {
	return ts.nextWhere(from, func(s *Seat) bool { return s.Status == SeatActive })
}

// nextInHand returns the next seat after from still contending for the pot
func (ts *TableState) nextInHand(from int) *Seat {
	return ts.nextWhere(from, func(s *Seat) bool { return s.Status.InHand() })
}

// countWhere counts seats satisfying pred
func (ts *TableState) countWhere(pred func(*Seat) bool) int {
	n := 0
	for _, s := range ts.Seats {
		if pred(s) {
			n++
		}
	}
	return n
}

// countActive counts seats that can still act this round
func (ts *TableState) countActive() int {
	return ts.countWhere(func(s *Seat) bool { return s.Status == SeatActive })
}

// countInHand counts seats still contending for the pot
func (ts *TableState) countInHand() int {
	return ts.countWhere(func(s *Seat) bool { return s.Status.InHand() })
}

// participants returns the seats with chips to play the next hand, in ring
// order. Eliminated and empty-stack seats sit out.
func (ts *TableState) participants() []*Seat {
	var out []*Seat
	for _, s := range ts.Seats {
		if s.Status != SeatEliminated && s.BuyIn > 0 {
			out = append(out, s)
		}
	}
	return out
}

// positions computes button, small blind and big blind for a new hand. The
// button advances clockwise from the previous hand's button to the next
// participant; heads-up the button posts the small blind.
func (ts *TableState) positions(prevButtonSeatID string) (button, small, big *Seat) {
	isParticipant := func(s *Seat) bool { return s.Status != SeatEliminated && s.BuyIn > 0 }

	from := ts.seatIndexByID(prevButtonSeatID)
	if from < 0 {
		// First hand, or the previous button left: start from the lowest seat.
		for _, s := range ts.Seats {
			if isParticipant(s) {
				button = s
				break
			}
		}
	} else {
		button = ts.nextWhere(from, isParticipant)
		if button == nil && isParticipant(ts.Seats[from]) {
			button = ts.Seats[from]
		}
	}
	if button == nil {
		return nil, nil, nil
	}

	bi := ts.seatIndexByID(button.ID)
	if len(ts.participants()) == 2 {
		small = button
		big = ts.nextWhere(bi, isParticipant)
		return button, small, big
	}
	small = ts.nextWhere(bi, isParticipant)
	if small == nil {
		return nil, nil, nil
	}
	big = ts.nextWhere(ts.seatIndexByID(small.ID), isParticipant)
	return button, small, big
}

// firstToActPreflop returns the seat that opens the preflop betting round:
// heads-up the small blind (the button), otherwise the seat after the big
// blind.
func (ts *TableState) firstToActPreflop() *Seat {
	if ts.countInHand() == 2 {
		sb := ts.seatByID(ts.Hand.SmallBlindSeatID)
		if sb != nil && sb.Status == SeatActive {
			return sb
		}
		return ts.nextActive(ts.seatIndexByID(ts.Hand.SmallBlindSeatID))
	}
	return ts.nextActive(ts.seatIndexByID(ts.Hand.BigBlindSeatID))
}

// firstToActPostflop returns the seat that opens a postflop round: the first
// active seat after the button.
func (ts *TableState) firstToActPostflop() *Seat {
	bi := ts.seatIndexByID(ts.Hand.ButtonSeatID)
	if bi < 0 {
		bi = len(ts.Seats) - 1
	}
	return ts.nextActive(bi)
}
