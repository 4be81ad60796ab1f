// Package filter implements the C8.8 rule-filter stage: it evaluates one
// article against every active FilterRule in registration order and reports
// the first rule that matched, or KEEP if none did.
package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

// Verdict is one article's outcome against the active rule set. The caller
// must check FilterRepository.IsForceIncluded and short-circuit to
// FORCE_INCLUDE *before* calling Evaluate at all (§4.8): Evaluate itself never
// produces FORCE_INCLUDE.
type Verdict struct {
	Decision entity.FilterDecision
	RuleID   int64
	RuleName string
	Reason   string
}

// Evaluator runs the active FilterRule set against articles for the
// RULE_FILTER stage.
type Evaluator struct {
	rules repository.FilterRepository
}

func NewEvaluator(rules repository.FilterRepository) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate loads the active rule set fresh (cheap: rules are few and rarely
// change) and returns the first rule that filters a, or KEEP. The caller is
// responsible for bumping IncrementFilteredCount and for the ForceInclude
// override, both of which are pipeline-run-scoped concerns this package does
// not own.
func (e *Evaluator) Evaluate(ctx context.Context, a *entity.Article) (Verdict, error) {
	activeRules, err := e.rules.ListActive(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("Evaluate: list active rules: %w", err)
	}

	for _, rule := range activeRules {
		matched, reason, err := matchRule(rule, a)
		if err != nil {
			return Verdict{}, fmt.Errorf("Evaluate: rule %q: %w", rule.Name, err)
		}
		if matched {
			return Verdict{Decision: entity.DecisionFilter, RuleID: rule.ID, RuleName: rule.Name, Reason: reason}, nil
		}
	}
	return Verdict{Decision: entity.DecisionKeep}, nil
}

func matchRule(rule *entity.FilterRule, a *entity.Article) (bool, string, error) {
	switch rule.RuleType {
	case entity.RuleTypeKeyword:
		var cfg entity.KeywordRuleConfig
		if err := json.Unmarshal(rule.Config, &cfg); err != nil {
			return false, "", fmt.Errorf("decode KEYWORD config: %w", err)
		}
		return matchKeyword(cfg, a)
	case entity.RuleTypePattern:
		var cfg entity.PatternRuleConfig
		if err := json.Unmarshal(rule.Config, &cfg); err != nil {
			return false, "", fmt.Errorf("decode PATTERN config: %w", err)
		}
		return matchPattern(cfg, a)
	case entity.RuleTypeCategory:
		var cfg entity.CategoryRuleConfig
		if err := json.Unmarshal(rule.Config, &cfg); err != nil {
			return false, "", fmt.Errorf("decode CATEGORY config: %w", err)
		}
		return matchCategory(cfg, a), "", nil
	case entity.RuleTypeLLM:
		// Supplemental rule type (§9 Open Questions): an LLM-backed predicate
		// is out of scope for the synchronous RULE_FILTER pass, which must
		// stay a cheap, deterministic gate ahead of C9's batch analysis.
		// An LLM rule never matches here, and no LLM call is made.
		return false, "", nil
	default:
		return false, "", fmt.Errorf("unknown rule type %q", rule.RuleType)
	}
}

func fieldValue(a *entity.Article, field string) string {
	switch field {
	case "title":
		return a.Title
	case "content":
		return a.Content
	case "summary":
		return a.Summary
	case "tags":
		return strings.Join(a.Tags, " ")
	case "category":
		return a.Category
	case "sub_category":
		return a.SubCategory
	default:
		return ""
	}
}

func matchKeyword(cfg entity.KeywordRuleConfig, a *entity.Article) (bool, string, error) {
	for _, field := range cfg.MatchFields {
		haystack := strings.ToLower(fieldValue(a, field))
		for _, kw := range cfg.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(kw)) {
				return true, fmt.Sprintf("keyword %q matched in %s", kw, field), nil
			}
		}
	}
	return false, "", nil
}

func matchPattern(cfg entity.PatternRuleConfig, a *entity.Article) (bool, string, error) {
	for _, field := range cfg.MatchFields {
		haystack := strings.ToLower(fieldValue(a, field))
		for _, excl := range cfg.ExcludeKeywords {
			if excl != "" && strings.Contains(haystack, strings.ToLower(excl)) {
				return false, "", nil
			}
		}
	}
	for _, field := range cfg.MatchFields {
		haystack := fieldValue(a, field)
		for _, pat := range cfg.Patterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return false, "", fmt.Errorf("compile pattern %q: %w", pat, err)
			}
			if re.MatchString(haystack) {
				return true, fmt.Sprintf("pattern %q matched in %s", pat, field), nil
			}
		}
	}
	return false, "", nil
}

func matchCategory(cfg entity.CategoryRuleConfig, a *entity.Article) bool {
	for _, c := range cfg.Categories {
		if strings.EqualFold(c, a.Category) {
			return true
		}
	}
	for _, sc := range cfg.SubCategories {
		if strings.EqualFold(sc, a.SubCategory) {
			return true
		}
	}
	return false
}
