package pricing

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Matcher selects customers by name. It is either a LiteralMatch or a
// PatternMatch; no other implementations exist.
type Matcher interface {
	Matches(name string) bool
	String() string
	isMatcher()
}

// LiteralMatch compares names case-insensitively after trimming whitespace.
type LiteralMatch struct {
	Name string
}

func (LiteralMatch) isMatcher() {}

// Matches implements Matcher.
func (m LiteralMatch) Matches(name string) bool {
	return strings.ToLower(strings.TrimSpace(name)) == strings.ToLower(strings.TrimSpace(m.Name))
}

func (m LiteralMatch) String() string { return m.Name }

// PatternMatch tests the untrimmed name against a regular expression given
// as a body and JavaScript-style flags.
type PatternMatch struct {
	Source string
	Flags  string

	// set by CompileOverrides
	re  *regexp.Regexp
	err error
}

func (PatternMatch) isMatcher() {}

// Matches implements Matcher. A pattern that does not compile never matches.
func (m PatternMatch) Matches(name string) bool {
	if m.re != nil {
		return m.re.MatchString(name)
	}
	if m.err != nil {
		return false
	}
	re, err := m.Compile()
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

func (m PatternMatch) String() string { return "/" + m.Source + "/" + m.Flags }

// Compile translates the flags into inline RE2 flags and compiles the body.
// Supported: i, m, s and y (anchor at start). g, u, d and v do not change
// the outcome of a single test and are accepted. Anything else is an error.
func (m PatternMatch) Compile() (*regexp.Regexp, error) {
	var inline strings.Builder
	sticky := false
	seen := make(map[rune]bool, len(m.Flags))

	for _, f := range m.Flags {
		if seen[f] {
			return nil, eris.Errorf("pricing: duplicate flag %q in %s", f, m)
		}
		seen[f] = true

		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		case 'y':
			sticky = true
		case 'g', 'u', 'd', 'v':
		default:
			return nil, eris.Errorf("pricing: unsupported flag %q in %s", f, m)
		}
	}

	expr := m.Source
	if sticky {
		expr = `\A(?:` + expr + `)`
	}
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, eris.Wrapf(err, "pricing: compile %s", m)
	}
	return re, nil
}

var delimitedPattern = regexp.MustCompile(`^/(.*)/(\w+)?$`)

// ParseMatch classifies a match string. "/body/flags" becomes a
// PatternMatch; everything else is a LiteralMatch.
func ParseMatch(s string) Matcher {
	if m := delimitedPattern.FindStringSubmatch(s); m != nil {
		return PatternMatch{Source: m[1], Flags: m[2]}
	}
	return LiteralMatch{Name: s}
}

// OverrideRule swaps tier parameters for customers selected by Match.
type OverrideRule struct {
	Match Matcher
	Tier  TierOverride
}

// MatchOverride returns the first rule whose matcher accepts name.
func MatchOverride(name string, rules []OverrideRule) (OverrideRule, bool) {
	for _, rule := range rules {
		if rule.Match == nil {
			continue
		}
		if rule.Match.Matches(name) {
			return rule, true
		}
	}
	return OverrideRule{}, false
}

// InvalidPatterns lists the pattern rules that can never match because they
// fail to compile.
func InvalidPatterns(rules []OverrideRule) []error {
	var errs []error
	for _, rule := range rules {
		pm, ok := rule.Match.(PatternMatch)
		if !ok {
			continue
		}
		if _, err := pm.Compile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// CompileOverrides returns a copy of rules with every pattern compiled once,
// plus the compile errors of the patterns that will never match. rules is
// not modified.
func CompileOverrides(rules []OverrideRule) ([]OverrideRule, []error) {
	out := make([]OverrideRule, len(rules))
	var errs []error
	for i, rule := range rules {
		out[i] = rule
		pm, ok := rule.Match.(PatternMatch)
		if !ok {
			continue
		}
		if pm.re == nil && pm.err == nil {
			pm.re, pm.err = pm.Compile()
		}
		if pm.err != nil {
			errs = append(errs, pm.err)
		}
		out[i].Match = pm
	}
	return out, errs
}

type matchObject struct {
	Pattern *string `json:"pattern,omitempty"`
	Flags   string  `json:"flags,omitempty"`
	Literal *string `json:"literal,omitempty"`
}

type overrideJSON struct {
	Match json.RawMessage `json:"match"`
	Tier  TierOverride    `json:"tier"`
}

// UnmarshalJSON accepts "match" as a string (literal or "/body/flags"), as
// {"pattern": "...", "flags": "..."}, or as {"literal": "..."}.
func (r *OverrideRule) UnmarshalJSON(data []byte) error {
	var raw overrideJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "pricing: decode override")
	}

	m, err := decodeMatch(raw.Match)
	if err != nil {
		return err
	}

	r.Match = m
	r.Tier = raw.Tier
	return nil
}

func decodeMatch(raw json.RawMessage) (Matcher, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, eris.New("pricing: override is missing \"match\"")
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, eris.Wrap(err, "pricing: decode match")
		}
		return ParseMatch(s), nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var obj matchObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, eris.Wrap(err, "pricing: decode match")
		}
		switch {
		case obj.Literal != nil:
			return LiteralMatch{Name: *obj.Literal}, nil
		case obj.Pattern != nil:
			return PatternMatch{Source: *obj.Pattern, Flags: obj.Flags}, nil
		}
		return nil, eris.New("pricing: match object needs \"pattern\" or \"literal\"")
	}

	return nil, eris.Errorf("pricing: match must be a string or object, got %s", trimmed)
}

// MarshalJSON writes match in the shortest form that decodes back to the
// same variant.
func (r OverrideRule) MarshalJSON() ([]byte, error) {
	var match any
	switch m := r.Match.(type) {
	case PatternMatch:
		match = m.String()
	case LiteralMatch:
		if _, isPattern := ParseMatch(m.Name).(PatternMatch); isPattern {
			name := m.Name
			match = matchObject{Literal: &name}
		} else {
			match = m.Name
		}
	default:
		match = nil
	}

	out := struct {
		Match any           `json:"match"`
		Tier  *TierOverride `json:"tier,omitempty"`
	}{Match: match}
	if !r.Tier.IsZero() {
		tier := r.Tier
		out.Tier = &tier
	}
	return json.Marshal(out)
}

// ParseOverridesJSON decodes an override list in the options-page format.
// An empty document is an empty list.
func ParseOverridesJSON(data []byte) ([]OverrideRule, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var rules []OverrideRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, eris.Wrap(err, "pricing: parse overrides")
	}
	return rules, nil
}

// FormatOverridesJSON renders rules in the options-page format.
func FormatOverridesJSON(rules []OverrideRule) (string, error) {
	if rules == nil {
		rules = []OverrideRule{}
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "pricing: format overrides")
	}
	return string(data), nil
}
