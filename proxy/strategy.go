// Package proxy defines the hook points a connection manager uses to run
// traffic through an HTTP proxy: CONNECT tunneling and per-message
// rewriting around an incoming connection's request/response cycle.
package proxy

// Strategy is a set of optional hooks invoked around a proxied connection.
// A nil hook is skipped; Strategy{} behaves as a transparent pass-through.
type Strategy struct {
	// TransformConnect rewrites the CONNECT request sent to establish a
	// tunnel through the proxy, e.g. to add Proxy-Authorization.
	TransformConnect func(target string, headers map[string]string) map[string]string

	// OnStatus is called with the proxy's response status line to the
	// CONNECT request. Returning a non-nil error aborts the connection.
	OnStatus func(status int) error

	// OnHeaders is called with each header field of a proxied response,
	// in order, before it reaches the caller.
	OnHeaders func(name, value string) (string, string)

	// OnBody is called with each chunk of a proxied response body.
	OnBody func(chunk []byte) []byte
}

// Chain composes strategies in order: each hook from s1 runs, then the
// corresponding hook from s2, and so on. A Chain of zero strategies is a
// transparent pass-through.
func Chain(strategies ...Strategy) Strategy {
	var out Strategy
	out.TransformConnect = func(target string, headers map[string]string) map[string]string {
		for _, s := range strategies {
			if s.TransformConnect != nil {
				headers = s.TransformConnect(target, headers)
			}
		}
		return headers
	}
	out.OnStatus = func(status int) error {
		for _, s := range strategies {
			if s.OnStatus != nil {
				if err := s.OnStatus(status); err != nil {
					return err
				}
			}
		}
		return nil
	}
	out.OnHeaders = func(name, value string) (string, string) {
		for _, s := range strategies {
			if s.OnHeaders != nil {
				name, value = s.OnHeaders(name, value)
			}
		}
		return name, value
	}
	out.OnBody = func(chunk []byte) []byte {
		for _, s := range strategies {
			if s.OnBody != nil {
				chunk = s.OnBody(chunk)
			}
		}
		return chunk
	}
	return out
}
