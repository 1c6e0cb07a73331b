package scanner

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxPatternLength caps user-supplied pattern sources.
	MaxPatternLength = 500

	// MaxGroupDepth caps group nesting in user-supplied patterns.
	MaxGroupDepth = 16
)

// allowedFlags is the fixed set of engine flags accepted on custom rules.
// All-matches behavior is not a flag here: the scanner always collects every
// match.
var allowedFlags = map[rune]bool{'i': true, 'm': true, 's': true}

// UnsafePatternError reports why a user-supplied pattern was rejected.
type UnsafePatternError struct {
	Source string
	Reason string
}

func (e *UnsafePatternError) Error() string {
	return fmt.Sprintf("unsafe pattern %q: %s", e.Source, e.Reason)
}

func reject(source, format string, args ...any) error {
	return &UnsafePatternError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// quantKind classifies a quantifier application.
type quantKind int

const (
	quantNone quantKind = iota
	quantFixed
	quantVariable  // bounded but not fixed: ?, {m,n} with m < n
	quantUnbounded // *, +, {m,}
)

// tokenKind is the type of the last consumed token, used to decide whether
// a quantifier has something valid to repeat.
type tokenKind int

const (
	tokenNone tokenKind = iota
	tokenLiteral
	tokenGroup
	tokenQuantifier
)

// groupState accumulates what the validator has seen inside one group.
type groupState struct {
	hasVariableQuantifier bool
	hasAlternation        bool
}

// ValidatePattern statically checks a user-supplied regex source for shapes
// that enable catastrophic backtracking. It never compiles or executes the
// pattern. A nil return means the pattern may be handed to the engine.
//
// Catalog patterns are exempt: they are reviewed once, at authoring time.
func ValidatePattern(source string) error {
	if len(source) > MaxPatternLength {
		return reject(source, "pattern exceeds %d characters", MaxPatternLength)
	}

	var (
		stack      []groupState
		current    groupState
		lastToken  = tokenNone
		lastClosed groupState // state of the most recently closed group
		inClass    bool
	)

	runes := []rune(source)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\\' {
			if i+1 >= len(runes) {
				return reject(source, "trailing backslash")
			}
			next := runes[i+1]
			if !inClass {
				if next >= '1' && next <= '9' {
					return reject(source, `numbered backreference \%c`, next)
				}
				if next == 'k' && i+2 < len(runes) && runes[i+2] == '<' {
					return reject(source, `named backreference \k<...>`)
				}
			}
			i++
			lastToken = tokenLiteral
			continue
		}

		if inClass {
			if r == ']' {
				inClass = false
				lastToken = tokenLiteral
			}
			continue
		}

		switch r {
		case '[':
			inClass = true
			// A leading ] is literal inside a class.
			if i+1 < len(runes) && runes[i+1] == ']' {
				i++
			} else if i+2 < len(runes) && runes[i+1] == '^' && runes[i+2] == ']' {
				i += 2
			}

		case '(':
			kind, skip, err := classifyGroup(source, runes, i)
			if err != nil {
				return err
			}
			if kind == groupLookbehind {
				return reject(source, "lookbehind assertion")
			}
			stack = append(stack, current)
			current = groupState{}
			if len(stack) > MaxGroupDepth {
				return reject(source, "group nesting deeper than %d", MaxGroupDepth)
			}
			i += skip
			lastToken = tokenNone

		case ')':
			if len(stack) == 0 {
				return reject(source, "unbalanced closing parenthesis")
			}
			lastClosed = current
			parent := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			// Anything seen inside the child counts as inside the parent.
			parent.hasVariableQuantifier = parent.hasVariableQuantifier || current.hasVariableQuantifier
			parent.hasAlternation = parent.hasAlternation || current.hasAlternation
			current = parent
			lastToken = tokenGroup

		case '|':
			current.hasAlternation = true
			lastToken = tokenNone

		case '*', '+', '?':
			kind := quantUnbounded
			if r == '?' {
				kind = quantVariable
			}
			// A ? directly after a quantifier makes it lazy, not a new
			// quantifier application.
			if r == '?' && lastToken == tokenQuantifier {
				continue
			}
			if err := applyQuantifier(source, &current, lastClosed, lastToken, kind); err != nil {
				return err
			}
			lastToken = tokenQuantifier

		case '{':
			kind, skip, ok := parseBraceQuantifier(runes, i)
			if !ok {
				// Not a quantifier; engines treat a stray { as a literal.
				lastToken = tokenLiteral
				continue
			}
			if err := applyQuantifier(source, &current, lastClosed, lastToken, kind); err != nil {
				return err
			}
			i += skip
			lastToken = tokenQuantifier

		default:
			lastToken = tokenLiteral
		}
	}

	if inClass {
		return reject(source, "unterminated character class")
	}
	if len(stack) != 0 {
		return reject(source, "unbalanced opening parenthesis")
	}
	return nil
}

// applyQuantifier records a quantifier application and rejects the nested
// unbounded shapes that produce catastrophic backtracking.
func applyQuantifier(source string, current *groupState, lastClosed groupState, lastToken tokenKind, kind quantKind) error {
	switch lastToken {
	case tokenNone:
		return reject(source, "quantifier has nothing to repeat")
	case tokenQuantifier:
		return reject(source, "quantifier applied to another quantifier")
	case tokenGroup:
		if kind == quantUnbounded && (lastClosed.hasVariableQuantifier || lastClosed.hasAlternation) {
			if lastClosed.hasAlternation {
				return reject(source, "unbounded repetition of a group containing alternation")
			}
			return reject(source, "unbounded repetition of a group containing an unbounded quantifier")
		}
	}
	if kind == quantVariable || kind == quantUnbounded {
		current.hasVariableQuantifier = true
	}
	return nil
}

type groupKind int

const (
	groupCapturing groupKind = iota
	groupOther
	groupLookbehind
)

// classifyGroup inspects the construct opened by the ( at position i and
// returns how many extra runes the opener consumed.
func classifyGroup(source string, runes []rune, i int) (groupKind, int, error) {
	if i+1 >= len(runes) || runes[i+1] != '?' {
		return groupCapturing, 0, nil
	}
	if i+2 >= len(runes) {
		return groupOther, 1, reject(source, "unterminated group")
	}
	switch runes[i+2] {
	case '<':
		if i+3 < len(runes) && (runes[i+3] == '=' || runes[i+3] == '!') {
			return groupLookbehind, 3, nil
		}
		// (?<name> is a named capturing group.
		return groupCapturing, 2, nil
	case ':', '=', '!', 'P':
		return groupOther, 2, nil
	default:
		return groupOther, 2, nil
	}
}

// parseBraceQuantifier parses {m}, {m,} or {m,n} starting at runes[i] == '{'.
// It returns the quantifier kind, how many runes past i the quantifier spans,
// and whether the braces actually form a quantifier.
func parseBraceQuantifier(runes []rune, i int) (quantKind, int, bool) {
	j := i + 1
	start := j
	for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
		j++
	}
	if j == start {
		return quantNone, 0, false
	}
	min := string(runes[start:j])

	if j < len(runes) && runes[j] == '}' {
		return quantFixed, j - i, true // {m}
	}
	if j >= len(runes) || runes[j] != ',' {
		return quantNone, 0, false
	}
	j++
	maxStart := j
	for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
		j++
	}
	if j >= len(runes) || runes[j] != '}' {
		return quantNone, 0, false
	}
	if j == maxStart {
		return quantUnbounded, j - i, true // {m,}
	}
	max := string(runes[maxStart:j])
	if min == max {
		return quantFixed, j - i, true // {m,m}
	}
	return quantVariable, j - i, true // {m,n}
}

// ValidateFlags checks a custom rule's flag string against the allow-list.
func ValidateFlags(flags string) error {
	for _, f := range flags {
		if !allowedFlags[f] {
			return fmt.Errorf("unsupported pattern flag %q", string(f))
		}
	}
	return nil
}

// CompileRule validates a user-supplied pattern and, if safe, compiles it
// into a catalog-compatible rule. Severity defaults to medium when empty.
func CompileRule(id, category, flags, source string, severity Severity) (PatternRule, error) {
	if err := ValidateFlags(flags); err != nil {
		return PatternRule{}, err
	}
	if err := ValidatePattern(source); err != nil {
		return PatternRule{}, err
	}
	expr := source
	if flags != "" {
		expr = "(?" + flags + ")" + source
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return PatternRule{}, fmt.Errorf("compiling custom pattern %s: %w", id, err)
	}
	if severity == "" {
		severity = SeverityMedium
	}
	if !strings.HasPrefix(id, "custom_") {
		id = "custom_" + id
	}
	return PatternRule{
		ID:          id,
		Category:    category,
		Severity:    severity,
		Description: "Custom pattern",
		Pattern:     re,
	}, nil
}
