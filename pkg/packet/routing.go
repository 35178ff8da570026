package packet

// PushHop appends hop to the routing trailer and returns the new hop count.
// The packet is unchanged when the trailer already holds MaxRoutingSize hops.
func (p *Packet) PushHop(hop byte) (int, error) {
	n := p.RoutingSize()
	if n >= MaxRoutingSize {
		return n, ErrRoutingFull
	}
	p.buf[p.RoutingOffset()+n] = hop
	p.setRoutingSize(n + 1)
	return n + 1, nil
}

// PopHop removes and returns the most recently pushed hop. The packet is
// unchanged when the trailer is empty.
func (p *Packet) PopHop() (byte, error) {
	n := p.RoutingSize()
	if n == 0 {
		return 0, ErrRoutingEmpty
	}
	n--
	p.setRoutingSize(n)
	return p.buf[p.RoutingOffset()+n], nil
}

// NextHop returns the hop PopHop would return, without removing it.
func (p *Packet) NextHop() (byte, bool) {
	n := p.RoutingSize()
	if n == 0 {
		return 0, false
	}
	return p.buf[p.RoutingOffset()+n-1], true
}
