// Package domquery builds the small set of DOM query scripts the session
// layer evaluates in the page, and parses them back for engines that do not
// run JavaScript.
package domquery

import (
	"regexp"
	"strconv"
)

type Kind int

const (
	KindExists Kind = iota + 1
	KindAttribute
	KindLocation
)

type Query struct {
	Kind      Kind
	Selector  string
	Attribute string
}

const locationScript = "() => document.location.href"

var (
	existsPattern    = regexp.MustCompile(`^\(\) => document\.querySelector\(("(?:[^"\\]|\\.)*")\) !== null$`)
	attributePattern = regexp.MustCompile(`^\(\) => \{ const el = document\.querySelector\(("(?:[^"\\]|\\.)*")\); return el === null \? null : el\.getAttribute\(("(?:[^"\\]|\\.)*")\); \}$`)
)

func Exists(selector string) string {
	return "() => document.querySelector(" + strconv.Quote(selector) + ") !== null"
}

// Attribute evaluates to null when the element or the attribute is missing.
func Attribute(selector, attribute string) string {
	return "() => { const el = document.querySelector(" + strconv.Quote(selector) +
		"); return el === null ? null : el.getAttribute(" + strconv.Quote(attribute) + "); }"
}

func Location() string {
	return locationScript
}

func Parse(js string) (Query, bool) {
	if js == locationScript {
		return Query{Kind: KindLocation}, true
	}
	if m := existsPattern.FindStringSubmatch(js); m != nil {
		selector, err := strconv.Unquote(m[1])
		if err != nil {
			return Query{}, false
		}
		return Query{Kind: KindExists, Selector: selector}, true
	}
	if m := attributePattern.FindStringSubmatch(js); m != nil {
		selector, err := strconv.Unquote(m[1])
		if err != nil {
			return Query{}, false
		}
		attribute, err := strconv.Unquote(m[2])
		if err != nil {
			return Query{}, false
		}
		return Query{Kind: KindAttribute, Selector: selector, Attribute: attribute}, true
	}
	return Query{}, false
}
