package access

// DecisionCache deduplicates policy queries for a sustained identity streak.
// As long as the stabilized identity does not change, repeated lookups reuse
// the stored result instead of hitting the policy store once per frame.
//
// The cache is owned by the recognition loop and is not safe for concurrent
// use. It must be invalidated whenever the stability filter resets or
// stabilizes a different identity.
type DecisionCache struct {
	// identity is the subject the cached result belongs to.
	identity Identity
	// result is the last policy result for identity.
	result PolicyResult
	// valid reports whether result may be served.
	valid bool
}

// GetOrQuery returns the cached result when it belongs to the given identity,
// otherwise it invokes query once, stores the outcome and returns it.
func (c *DecisionCache) GetOrQuery(identity Identity, query func(Identity) PolicyResult) PolicyResult {
	if c.valid && c.identity == identity {
		return c.result
	}

	c.identity = identity
	c.result = query(identity)
	c.valid = true

	return c.result
}

// Cached returns the stored result for the given identity, if present.
func (c *DecisionCache) Cached(identity Identity) (PolicyResult, bool) {
	if c.valid && c.identity == identity {
		return c.result, true
	}

	return PolicyResult{}, false
}

// Invalidate discards the stored result.
func (c *DecisionCache) Invalidate() {
	c.valid = false
	c.result = PolicyResult{}
}
