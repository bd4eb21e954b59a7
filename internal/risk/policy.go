// Package risk classifies work items for autonomous or human execution.
//
// The policy is a versioned pure function from a boolean signal vector to a
// score and a decision. Nothing here depends on a generative model; the
// optional HintProvider can nudge the score within a bounded range but never
// changes which signals are extracted or how decisions are ordered.
package risk

// PolicyVersion identifies the scoring weights and decision table below.
const PolicyVersion = "risk-policy/v1"

// Decision thresholds.
const (
	HumanThreshold     = 60
	SpotCheckThreshold = 30
	MinScore           = 0
	MaxScore           = 100
)

// Decision is the execution route for an item.
type Decision string

// Decisions.
const (
	DecisionAI     Decision = "AI"
	DecisionHuman  Decision = "Human"
	DecisionHybrid Decision = "Hybrid"
)

// Weights are the additive score contributions of each signal.
type Weights struct {
	Base            int `json:"base" yaml:"base"`
	Approval        int `json:"approval" yaml:"approval"`
	Ambiguous       int `json:"ambiguous" yaml:"ambiguous"`
	Security        int `json:"security" yaml:"security"`
	MissingCriteria int `json:"missing_criteria" yaml:"missing_criteria"`
	Children        int `json:"children" yaml:"children"`
}

// DefaultWeights returns the weight table for PolicyVersion.
func DefaultWeights() Weights {
	return Weights{
		Base:            10,
		Approval:        25,
		Ambiguous:       20,
		Security:        15,
		MissingCriteria: 25,
		Children:        10,
	}
}

// Policy holds the tunable inputs of signal extraction.
type Policy struct {
	// MinDescriptionLength is the rune count below which scope is ambiguous.
	MinDescriptionLength int
	// MaxHintDelta bounds the advisory hint contribution in both directions.
	MaxHintDelta     int
	VagueTerms       []string
	SecurityKeywords []string
	ApprovalTags     []string
	Weights          Weights
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MinDescriptionLength: 40,
		MaxHintDelta:         15,
		VagueTerms:           DefaultVagueTerms(),
		SecurityKeywords:     DefaultSecurityKeywords(),
		ApprovalTags:         DefaultApprovalTags(),
		Weights:              DefaultWeights(),
	}
}

// DefaultVagueTerms are phrases that mark a description as underspecified.
func DefaultVagueTerms() []string {
	return []string{"TBD", "etc", "somehow", "maybe", "investigate", "as needed", "various", "figure out"}
}

// DefaultSecurityKeywords mark work touching a security-sensitive area.
func DefaultSecurityKeywords() []string {
	return []string{
		"security", "auth", "authentication", "authorization", "authenticate", "oauth", "SSO",
		"credential", "secret", "password", "token", "encryption", "encrypt",
		"permission", "vulnerability", "CVE", "PII",
	}
}

// DefaultApprovalTags mark work gated on an external sign-off.
func DefaultApprovalTags() []string {
	return []string{"needs-approval", "approval-required", "legal-review", "compliance"}
}

// Rule is one row of the decision table, evaluated in order.
type Rule struct {
	Name      string `json:"name" yaml:"name"`
	Condition string `json:"condition" yaml:"condition"`
	Decision  string `json:"decision" yaml:"decision"`
}

// DecisionTable describes Decide for display.
func DecisionTable() []Rule {
	return []Rule{
		{Name: "missing-info", Condition: "missing info is non-empty", Decision: "Human, score raised to at least 60"},
		{Name: "high-risk", Condition: "score >= 60", Decision: "Human"},
		{Name: "compound", Condition: "item has children", Decision: "Hybrid, decompose before autonomous execution"},
		{Name: "low-risk", Condition: "score < 30", Decision: "AI"},
		{Name: "moderate-risk", Condition: "30 <= score < 60", Decision: "AI, spot-check recommended"},
	}
}
