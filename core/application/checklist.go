package application

// Requirement is one entry of the document checklist.
type Requirement struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var requirements = [...]Requirement{
	{Key: "cv", Label: "Curriculum vitae (in English)"},
	{Key: "motivation", Label: "Motivation letter (in English)"},
	{Key: "grades", Label: "Transcript of records certified by the faculty"},
	{Key: "plan", Label: "Proposed study plan"},
	{Key: "language", Label: "Language proficiency certificate"},
	{Key: "passport", Label: "Passport copy (international students)"},
	{Key: "other", Label: "Other supporting documents"},
}

// Requirements returns the fixed, ordered document checklist.
func Requirements() []Requirement {
	out := make([]Requirement, len(requirements))
	copy(out, requirements[:])
	return out
}

// TotalRequirements is the denominator of the completion percentage.
func TotalRequirements() int { return len(requirements) }

func LookupRequirement(key string) (Requirement, bool) {
	for _, r := range requirements {
		if r.Key == key {
			return r, true
		}
	}
	return Requirement{}, false
}
