package model

// Apply returns a copy of d reduced to the projected fields plus the
// identifier. A nil projection returns d unchanged.
func (p Projection) Apply(d Document) Document {
	if p == nil {
		return d
	}
	out := Document{}
	if id, ok := d[IDField]; ok {
		out[IDField] = id
	}
	for _, path := range p {
		if v, ok := d.Lookup(path); ok {
			out.SetPath(path, v.clone())
		}
	}
	return out
}
