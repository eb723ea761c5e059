package klv

// Diagnostics accumulates scanner counters so that silent skip-on-error
// behavior stays observable. Counters are plain ints; a Scanner is
// single-threaded and so is its Diagnostics.
type Diagnostics struct {
	// Packets counts complete payloads handed to the caller.
	Packets int64 `json:"packets"`
	// KeyHits counts full 16-byte universal key matches, including
	// packets later dropped for a bad length or truncated payload.
	KeyHits int64 `json:"key_hits"`
	// NearMisses counts positions where the first key byte matched but
	// the following 15 bytes did not. Those 15 bytes are consumed and
	// never rescanned.
	NearMisses int64 `json:"near_misses"`
	// Truncations counts streams that ended inside a key, a length
	// field, or a payload.
	Truncations int64 `json:"truncations"`
	// LengthSkips counts packets dropped because their BER length was
	// corrupt or implausibly large.
	LengthSkips int64 `json:"length_skips"`
}

// The increment helpers tolerate a nil receiver so the scanner never has
// to branch on whether diagnostics were attached.

func (d *Diagnostics) addPacket() {
	if d != nil {
		d.Packets++
	}
}

func (d *Diagnostics) addKeyHit() {
	if d != nil {
		d.KeyHits++
	}
}

func (d *Diagnostics) addNearMiss() {
	if d != nil {
		d.NearMisses++
	}
}

func (d *Diagnostics) addTruncation() {
	if d != nil {
		d.Truncations++
	}
}

func (d *Diagnostics) addLengthSkip() {
	if d != nil {
		d.LengthSkips++
	}
}
