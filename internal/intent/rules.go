package intent

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/querybot/pkg/flowgraph/config"
)

// Rules are the phrase lists behind the heuristic layer.
// All entries are matched against the lowercased query.
type Rules struct {
	// Greetings match the whole query after trailing punctuation is removed.
	Greetings []string
	// GreetingPrefixes match the start of the query.
	GreetingPrefixes []string
	// ProductSignals match anywhere in the query and decide PRODUCT_QUERY.
	ProductSignals []string
	// AmbiguousPatterns match anywhere and defer to the model.
	AmbiguousPatterns []string
}

// DefaultRules returns the built-in phrase lists.
func DefaultRules() Rules {
	return Rules{
		Greetings: []string{
			"hi", "hello", "hey", "hola", "good morning", "good afternoon",
			"good evening", "goodbye", "bye", "thanks", "thank you",
			"how are you", "what's up", "nice to meet you",
		},
		GreetingPrefixes: []string{"hi ", "hello ", "hey ", "good morning", "good afternoon"},
		ProductSignals: []string{
			"$", "price", "cost", "buy", "purchase", "order", "cart",
			"available", "stock", "inventory", "size", "color",
			"brand", "model", "specification", "spec", "delivery",
			"shipping", "discount", "sale", "offer",
		},
		AmbiguousPatterns: []string{
			"do you have", "can i get", "show me", "find me",
			"what's available", "any", "which", "recommend",
		},
	}
}

// RulesFromConfig overlays the lists found in cfg onto DefaultRules.
// Lists may sit at the top level or under a "rules" section.
func RulesFromConfig(cfg config.Config) Rules {
	if cfg.Has("rules") {
		cfg = cfg.Section("rules")
	}
	d := DefaultRules()
	return Rules{
		Greetings:         cfg.LowerStringSlice("greetings", d.Greetings),
		GreetingPrefixes:  cfg.LowerStringSlice("greeting_prefixes", d.GreetingPrefixes),
		ProductSignals:    cfg.LowerStringSlice("product_signals", d.ProductSignals),
		AmbiguousPatterns: cfg.LowerStringSlice("ambiguous_patterns", d.AmbiguousPatterns),
	}
}

// LoadRules reads rule overrides from a YAML or JSON file.
func LoadRules(path string) (Rules, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("load intent rules: %w", err)
	}
	return RulesFromConfig(cfg), nil
}

type ruleOutcome int

const (
	ruleNoMatch ruleOutcome = iota
	ruleMatched
	// ruleDefer is an explicit "too weak to call" match.
	ruleDefer
)

// ruleSet is Rules prepared for matching.
type ruleSet struct {
	greetings map[string]struct{}
	prefixes  []string
	signals   []string
	ambiguous []string
}

func (r Rules) compile() *ruleSet {
	rs := &ruleSet{
		greetings: make(map[string]struct{}, len(r.Greetings)),
		prefixes:  lowerAll(r.GreetingPrefixes),
		signals:   lowerAll(r.ProductSignals),
		ambiguous: lowerAll(r.AmbiguousPatterns),
	}
	for _, g := range r.Greetings {
		rs.greetings[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
	}
	return rs
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out
}

// evaluate runs the heuristic layer on a normalized key.
// Order matters: greetings, then prefixes, then signals, then ambiguity.
func (rs *ruleSet) evaluate(key string) (Decision, ruleOutcome) {
	clean := strings.TrimRight(key, "!?.,")

	if _, ok := rs.greetings[clean]; ok {
		return GeneralConversation, ruleMatched
	}
	for _, p := range rs.prefixes {
		if strings.HasPrefix(clean, p) {
			return GeneralConversation, ruleMatched
		}
	}
	for _, s := range rs.signals {
		if strings.Contains(key, s) {
			return ProductQuery, ruleMatched
		}
	}
	for _, a := range rs.ambiguous {
		if strings.Contains(key, a) {
			return "", ruleDefer
		}
	}
	return "", ruleNoMatch
}
