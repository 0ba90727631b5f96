package transport

// Middleware wraps a RunCreator to add cross-cutting behavior.
type Middleware func(RunCreator) RunCreator

// Chain composes middleware so that Chain(a, b, c)(h) is a(b(c(h))): the
// first middleware sees the request first.
func Chain(middlewares ...Middleware) Middleware {
	return func(next RunCreator) RunCreator {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
