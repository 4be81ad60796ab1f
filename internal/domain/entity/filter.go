package entity

// FilterRuleType selects which predicate shape FilterRule.Config holds.
type FilterRuleType string

const (
	RuleTypeKeyword  FilterRuleType = "KEYWORD"
	RuleTypePattern  FilterRuleType = "PATTERN"
	RuleTypeCategory FilterRuleType = "CATEGORY"
	// RuleTypeLLM is a supplemental rule type (§9 Open Questions) for a rule
	// whose predicate is an LLM classification call. The RULE_FILTER evaluator
	// accepts it but never matches it and makes no LLM call.
	RuleTypeLLM FilterRuleType = "LLM"
)

// KeywordRuleConfig is the typed payload for a KEYWORD FilterRule: the article
// is filtered if any keyword matches (case-insensitive substring) within any of
// MatchFields (e.g. "title", "tags", "content").
type KeywordRuleConfig struct {
	Keywords    []string `json:"keywords"`
	MatchFields []string `json:"match_fields"`
}

// PatternRuleConfig is the typed payload for a PATTERN FilterRule: the article
// is filtered if any regular expression in Patterns matches within MatchFields,
// unless one of ExcludeKeywords is also present (an escape hatch).
type PatternRuleConfig struct {
	Patterns        []string `json:"patterns"`
	MatchFields     []string `json:"match_fields"`
	ExcludeKeywords []string `json:"exclude_keywords"`
}

// CategoryRuleConfig is the typed payload for a CATEGORY FilterRule: the
// article is filtered if its Category or SubCategory is in the given sets.
type CategoryRuleConfig struct {
	Categories    []string `json:"categories"`
	SubCategories []string `json:"sub_categories"`
}

// FilterRule is a configurable predicate evaluated, in registration order,
// against every article reaching the RULE_FILTER stage. Each migration run
// inserts every default rule whose name is not already present (existing rules
// are left unchanged); rules are otherwise hand-editable.
type FilterRule struct {
	ID                 int64
	Name               string
	Description        string
	RuleType           FilterRuleType
	IsActive           bool
	Config             []byte // raw JSON; decoded into the *RuleConfig matching RuleType
	TotalFilteredCount int64
}

// ForceInclude overrides a filtered article's outcome to FORCE_INCLUDE
// regardless of which rule matched it.
type ForceInclude struct {
	ID        int64
	ArticleID int64 // unique
	Reason    string
	AddedBy   string
}
