package domain

// Summary describes a finished document. Inserted is filled by the augmenter,
// the remaining counters by the verifier.
type Summary struct {
	Lines      int
	Normals    int
	Wildcards  int
	Exceptions int
	Inserted   int
	Duplicates []string
	Malformed  []string
	// Drift counts normal rules the compiled-in suffix table does not know.
	Drift int
}

// Rules returns the number of rule lines of any kind.
func (s Summary) Rules() int {
	return s.Normals + s.Wildcards + s.Exceptions
}

// Fields renders the summary as structured log fields.
func (s Summary) Fields() map[string]any {
	return map[string]any{
		"lines":      s.Lines,
		"normals":    s.Normals,
		"wildcards":  s.Wildcards,
		"exceptions": s.Exceptions,
		"inserted":   s.Inserted,
		"duplicates": len(s.Duplicates),
		"malformed":  len(s.Malformed),
		"drift":      s.Drift,
	}
}
