package aggregate

// Cutoff is the lowest value (inclusive) earning Letter.
type Cutoff struct {
	Min    float64
	Letter string
}

// Band maps a value to a letter grade. Cutoffs are ordered from the highest Min down.
type Band struct {
	Name    string
	Cutoffs []Cutoff
	Floor   string
}

// The three letter-grade policies are distinct on purpose: their numeric domains are not comparable.
var (
	// GridGradeBand grades an average already normalized to 100.
	GridGradeBand = Band{
		Name: "grid",
		Cutoffs: []Cutoff{
			{Min: 90, Letter: "A"},
			{Min: 80, Letter: "B+"},
			{Min: 70, Letter: "B"},
			{Min: 60, Letter: "C"},
			{Min: 50, Letter: "D"},
			{Min: 40, Letter: "E"},
		},
		Floor: "F",
	}

	// ReportGradeBand grades the raw score-over-coefficient average.
	ReportGradeBand = Band{
		Name: "report",
		Cutoffs: []Cutoff{
			{Min: 45, Letter: "A"},
			{Min: 40, Letter: "B"},
			{Min: 35, Letter: "C"},
			{Min: 30, Letter: "D"},
			{Min: 25, Letter: "E"},
		},
		Floor: "F",
	}

	// SubjectLevelBand grades a single subject percentage.
	SubjectLevelBand = Band{
		Name: "subject-level",
		Cutoffs: []Cutoff{
			{Min: 80, Letter: "A"},
			{Min: 70, Letter: "B"},
			{Min: 60, Letter: "C"},
			{Min: 50, Letter: "D"},
			{Min: 40, Letter: "E"},
		},
		Floor: "F",
	}
)

// PassAverage is the report-band average needed to pass (the "E" cutoff).
const PassAverage = 25

func (b Band) Grade(v float64) string {
	for _, c := range b.Cutoffs {
		if v >= c.Min {
			return c.Letter
		}
	}
	return b.Floor
}

// Letters lists the band's letters from best to worst.
func (b Band) Letters() []string {
	letters := make([]string, 0, len(b.Cutoffs)+1)
	for _, c := range b.Cutoffs {
		letters = append(letters, c.Letter)
	}
	return append(letters, b.Floor)
}
