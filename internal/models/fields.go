package models

// Fields is an insertion-ordered string map holding control metadata.
// Keys are case-sensitive. The zero value is not usable; use NewFields.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields creates an empty field bag
func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// Set stores value under key. An existing key keeps its position.
func (f *Fields) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Value returns the value under key, or "" if absent.
// A nil *Fields reads as empty.
func (f *Fields) Value(key string) string {
	if f == nil {
		return ""
	}
	return f.values[key]
}

// Has reports whether key is present
func (f *Fields) Has(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[key]
	return ok
}

// Delete removes key, if present
func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of fields
func (f *Fields) Len() int {
	return len(f.keys)
}

// Clone returns an independent copy
func (f *Fields) Clone() *Fields {
	c := &Fields{
		keys:   make([]string, len(f.keys)),
		values: make(map[string]string, len(f.values)),
	}
	copy(c.keys, f.keys)
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}

// Merge copies every field of other into f, in other's order.
func (f *Fields) Merge(other *Fields) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		f.Set(k, other.values[k])
	}
}
