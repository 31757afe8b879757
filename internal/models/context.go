package models

// ContextBundle is the structured object the orchestrator feeds to the
// prompt assembler, reconstructed fresh for every turn.
type ContextBundle struct {
	Recent          []*MemoryEntry
	Important       []*MemoryEntry
	Entities        []*Entity
	SummaryContext  string
	SummaryPreviews []string
	EmotionalContext string
	EmotionalHistory []string
	Topic            string
	TopicDistribution map[string]int
	Stats            ContextStats
	ProfileInsights  ProfileInsights
	PersonalDetails  PersonalDetails
	FromCache        bool
	DegradedReason   string
}

// ContextStats carries counters useful to downstream heuristics.
type ContextStats struct {
	TotalMemories    int
	BufferCount      int
	SummaryCount     int
	ArchivedCount    int
	CompressedCount  int
	EmotionalCount   int
}

// ProfileInsights describes inferred communication style and interests.
type ProfileInsights struct {
	CommunicationStyle string // inquisitive|emotional|analytical|conversational
	TopInterests       []string
	ActiveHours        []int
}

// PersonalDetails is the accumulated structured facts about the user,
// produced by the personal-detail extractor.
type PersonalDetails struct {
	Name           string
	Age            string
	Location       string
	Work           string
	FamilyMembers  map[string][]string // role -> names
	Pets           []string
	Other          map[string][]string
}

// NewPersonalDetails returns an empty, ready-to-accumulate PersonalDetails.
func NewPersonalDetails() PersonalDetails {
	return PersonalDetails{
		FamilyMembers: make(map[string][]string),
		Other:         make(map[string][]string),
	}
}

// Preface renders the stable "About you, I remember ..." line consumed by
// the prompt assembler. Returns empty string if nothing has been learned.
func (p PersonalDetails) Preface() string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "your name is "+p.Name)
	}
	if p.Age != "" {
		parts = append(parts, "you're "+p.Age)
	}
	if p.Location != "" {
		parts = append(parts, "you live in "+p.Location)
	}
	if p.Work != "" {
		parts = append(parts, "you work as "+p.Work)
	}
	for role, names := range p.FamilyMembers {
		for _, name := range names {
			parts = append(parts, "your "+role+" "+name)
		}
	}
	for _, pet := range p.Pets {
		parts = append(parts, "your pet "+pet)
	}
	if len(parts) == 0 {
		return ""
	}
	out := "About you, I remember: "
	for i, p := range parts {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}
