// Package peerset tracks the set of known peer network addresses,
// excluding self. In a peer it is mutated only by the network
// dispatcher's peer-list handler; the tracker keeps its own instance as
// its membership list.
package peerset

// PeerSet is an ordered set of peer addresses. Order is preserved
// because the size-delta reconciliation heuristic (see state package)
// relies on the "new peer is always last" convention the tracker's
// broadcast uses.
//
// PeerSet has no lock of its own; foundation/blockchain/state serializes
// access under its own mutex, after the chain and before nothing else,
// per the chain -> pool -> peer-set acquisition order.
type PeerSet struct {
	addrs []string
}

// New constructs an empty peer set.
func New() *PeerSet {
	return &PeerSet{}
}

// Len reports how many peers are known.
func (p *PeerSet) Len() int {
	return len(p.addrs)
}

// Addrs returns a copy of the known peer addresses.
func (p *PeerSet) Addrs() []string {
	out := make([]string, len(p.addrs))
	copy(out, p.addrs)
	return out
}

// Contains reports whether addr is a known peer.
func (p *PeerSet) Contains(addr string) bool {
	for _, a := range p.addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// Add appends addr if it isn't already present.
func (p *PeerSet) Add(addr string) {
	if p.Contains(addr) {
		return
	}
	p.addrs = append(p.addrs, addr)
}

// Remove drops addr if present, reporting whether anything was removed.
func (p *PeerSet) Remove(addr string) bool {
	for i, a := range p.addrs {
		if a == addr {
			p.addrs = append(p.addrs[:i], p.addrs[i+1:]...)
			return true
		}
	}
	return false
}

// Reset replaces the peer set wholesale, used for the bootstrap case
// where the tracker's first list is adopted verbatim (minus self).
func (p *PeerSet) Reset(addrs []string) {
	p.addrs = append([]string(nil), addrs...)
}
