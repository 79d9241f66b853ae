package bakecache

// Handle tracks the single key a client currently holds in a Cache.
//
// A renderer recomputes its parameter key every frame and calls Update; the
// handle releases the old key before acquiring the new one. The two steps are
// not atomic; other holders may see both entries alive in between.
//
// Handle is not safe for concurrent use.
type Handle[P, R any] struct {
	c    Cache[P, R]
	key  Key
	res  R
	held bool
}

func NewHandle[P, R any](c Cache[P, R]) *Handle[P, R] {
	return &Handle[P, R]{c: c}
}

// Update makes key the held key. changed reports whether a new reference was
// acquired. On error the handle holds nothing.
func (h *Handle[P, R]) Update(key Key, params P) (res R, changed bool, err error) {
	if h.held && h.key == key {
		return h.res, false, nil
	}
	h.Close()

	res, err = h.c.Get(key, params)
	if err != nil {
		return res, false, err
	}
	h.key, h.res, h.held = key, res, true
	return res, true, nil
}

func (h *Handle[P, R]) Resource() (R, bool) { return h.res, h.held }

func (h *Handle[P, R]) Key() (Key, bool) { return h.key, h.held }

// Close releases the held key, if any. Safe to call repeatedly.
func (h *Handle[P, R]) Close() {
	if !h.held {
		return
	}
	h.c.Release(h.key)
	var zero R
	h.key, h.res, h.held = 0, zero, false
}
