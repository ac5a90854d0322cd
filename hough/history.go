package hough

// how many detection results DoCommand can read back
const historySize = 100

// resultHistory keeps the most recent detection results in a fixed-size ring.
// Once full, the oldest entry is overwritten. Access is serialized by the
// owning service.
type resultHistory struct {
	results []Result
	next    int
}

func newResultHistory(size int) *resultHistory {
	return &resultHistory{results: make([]Result, 0, size)}
}

func (h *resultHistory) add(r Result) {
	if len(h.results) < cap(h.results) {
		h.results = append(h.results, r)
		return
	}
	h.results[h.next] = r
	h.next = (h.next + 1) % len(h.results)
}

// snapshot returns the stored results oldest first, in a form that survives
// the protobuf struct round trip of DoCommand.
func (h *resultHistory) snapshot() []interface{} {
	out := make([]interface{}, 0, len(h.results))
	for i := 0; i < len(h.results); i++ {
		r := h.results[(h.next+i)%len(h.results)]
		out = append(out, map[string]interface{}{
			"weight": r.Weight,
			"x":      float64(r.X),
			"y":      float64(r.Y),
		})
	}
	return out
}
