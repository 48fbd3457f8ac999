package pipeline

// SizeRouter picks the delivery route from an artifact's byte size. The
// ceiling is fixed at construction and shared read-only by every job.
type SizeRouter struct {
	ceiling int64
}

// NewSizeRouter creates a router with the given byte ceiling
func NewSizeRouter(ceilingBytes int64) *SizeRouter {
	return &SizeRouter{ceiling: ceilingBytes}
}

// Ceiling returns the configured byte ceiling
func (r *SizeRouter) Ceiling() int64 {
	return r.ceiling
}

// Route returns the route for an artifact of size bytes
func (r *SizeRouter) Route(size int64) RouteChoice {
	return Route(size, r.ceiling)
}

// Route returns RouteDirectAttach when size fits under ceiling (inclusive),
// RouteRemoteHost otherwise.
func Route(size, ceiling int64) RouteChoice {
	if size <= ceiling {
		return RouteDirectAttach
	}
	return RouteRemoteHost
}
