package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 200
)

// Params holds offset pagination inputs from controllers or services. The
// row store returns whole tables, so pages are windows over an in-memory list.
type Params struct {
	Limit  int
	Offset int
}

// Meta describes the page that was served.
type Meta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeOffset clamps negative offsets to zero.
func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// Normalize returns a copy with both fields clamped.
func (p Params) Normalize() Params {
	return Params{
		Limit:  NormalizeLimit(p.Limit),
		Offset: NormalizeOffset(p.Offset),
	}
}

// Window returns the half-open slice bounds [start, end) for a list of total
// items. Out-of-range offsets yield an empty window.
func Window(p Params, total int) (int, int) {
	p = p.Normalize()
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}
