package markbook

import "time"

// Rule names, in the fixed evaluation order of the metric deriver
const (
	RuleClassAverage    = "class_average"
	RuleLowPerformers   = "low_performers"
	RuleFailing         = "failing"
	RuleHighPerformers  = "high_performers"
	RuleWeakQuestions   = "weak_questions"
	RuleHighVariability = "high_variability"
	RuleTiers           = "tiers"
)

// Finding is the output of one threshold rule: an insight and, when the
// rule calls for action, the recommendation it triggered.
type Finding struct {
	Rule           string `json:"rule"`
	Insight        string `json:"insight"`
	Recommendation string `json:"recommendation,omitempty"`
}

// TierName identifies one of the three percentage bands
type TierName string

const (
	TierSupport    TierName = "needs_support"
	TierDeveloping TierName = "developing"
	TierProficient TierName = "proficient"
)

// TierMember is a learner placed in a band with the questions they scored
// above and below the class mean on.
type TierMember struct {
	Name       string   `json:"name"`
	Percentage float64  `json:"percentage"`
	Above      []string `json:"above"`
	Below      []string `json:"below"`
}

// Tier is one band of learners
type Tier struct {
	Name    TierName     `json:"name"`
	Label   string       `json:"label"`
	Members []TierMember `json:"members"`
}

// QuestionMean pairs a question with its class mean
type QuestionMean struct {
	Question string  `json:"question"`
	Mean     float64 `json:"mean"`
}

// Analysis is everything the deriver computes from one normalized table
type Analysis struct {
	ClassAverage    float64        `json:"class_average"`
	StdDev          float64        `json:"std_dev"`
	QuestionMeans   []QuestionMean `json:"question_means"`
	MeanOfMeans     float64        `json:"mean_of_means"`
	LowPerformers   []string       `json:"low_performers"`
	Failing         []string       `json:"failing"`
	HighPerformers  []string       `json:"high_performers"`
	WeakQuestions   []string       `json:"weak_questions"`
	HighVariability bool           `json:"high_variability"`
	Tiers           []Tier         `json:"tiers"`
	Findings        []Finding      `json:"findings"`
}

// Insights returns the insight strings in rule order
func (a *Analysis) Insights() []string {
	out := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		if f.Insight != "" {
			out = append(out, f.Insight)
		}
	}
	return out
}

// Recommendations returns the recommendation strings in rule order
func (a *Analysis) Recommendations() []string {
	out := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		if f.Recommendation != "" {
			out = append(out, f.Recommendation)
		}
	}
	return out
}

// Mean returns the class mean of a question, false when unknown
func (a *Analysis) Mean(question string) (float64, bool) {
	for _, qm := range a.QuestionMeans {
		if qm.Question == question {
			return qm.Mean, true
		}
	}
	return 0, false
}

// QuestionSummary is the describe() view of one question
type QuestionSummary struct {
	Question string  `json:"question"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
}

// MarkCount is one slice of a mark distribution
type MarkCount struct {
	Mark  float64 `json:"mark"`
	Count int     `json:"count"`
}

// LearnerProfile compares one learner to the class per question
type LearnerProfile struct {
	Name       string    `json:"name"`
	Questions  []string  `json:"questions"`
	Scores     []float64 `json:"scores"`
	ClassMeans []float64 `json:"class_means"`
	FocusArea  string    `json:"focus_area"`
	FocusScore float64   `json:"focus_score"`
	Strengths  []string  `json:"strengths"`
	Weaknesses []string  `json:"weaknesses"`
	Percentage float64   `json:"percentage"`
	Tier       TierName  `json:"tier"`
}

// ProgressPoint is the class mean per question on one test date
type ProgressPoint struct {
	Date  time.Time          `json:"date"`
	Means map[string]float64 `json:"means"`
}

// Comparison holds the per-question means of two groups on shared questions
type Comparison struct {
	Questions []string  `json:"questions"`
	Original  []float64 `json:"original"`
	Other     []float64 `json:"other"`
}
