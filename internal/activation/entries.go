package activation

// Entry is one key/value pair of an activation record.
type Entry struct {
	Key   string
	Value string
}

// Entries is an ordered mapping. Order is significant: it is the order the
// pairs were read in, and the order they are written back.
type Entries []Entry

// Index returns the position of key, or -1.
func (e Entries) Index(key string) int {
	for i := range e {
		if e[i].Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (e Entries) Get(key string) (string, bool) {
	if i := e.Index(key); i >= 0 {
		return e[i].Value, true
	}
	return "", false
}

// Has reports whether key is present.
func (e Entries) Has(key string) bool {
	return e.Index(key) >= 0
}

// Set overwrites key in place, or appends it when absent.
func (e *Entries) Set(key, value string) {
	if i := e.Index(key); i >= 0 {
		(*e)[i].Value = value
		return
	}
	*e = append(*e, Entry{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (e *Entries) Delete(key string) bool {
	i := e.Index(key)
	if i < 0 {
		return false
	}
	*e = append((*e)[:i], (*e)[i+1:]...)
	return true
}

// Keys returns the keys in order.
func (e Entries) Keys() []string {
	keys := make([]string, len(e))
	for i := range e {
		keys[i] = e[i].Key
	}
	return keys
}

// Equal reports whether both mappings hold the same pairs in the same order.
func (e Entries) Equal(other Entries) bool {
	if len(e) != len(other) {
		return false
	}
	for i := range e {
		if e[i] != other[i] {
			return false
		}
	}
	return true
}
