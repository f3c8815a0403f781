// Package identify builds vision model requests, parses their replies and
// runs several identifications in parallel.
package identify

import (
	"strings"

	"github.com/turtleson01/bird-app/internal/reference"
)

// Sentinel names produced by ParseResponse. None of them can be registered.
const (
	UnidentifiableName = "판별 불가"
	NotABirdName       = "새 아님"
	ErrorName          = "에러"
)

// PlaceholderRationale is used when a reply has no rationale.
const PlaceholderRationale = "분석 결과를 가져왔습니다."

// Outcome classifies a parsed reply
type Outcome int

const (
	OutcomeIdentified Outcome = iota
	OutcomeUnidentifiable
	OutcomeNotABird
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdentified:
		return "identified"
	case OutcomeUnidentifiable:
		return "unidentifiable"
	case OutcomeNotABird:
		return "not_a_bird"
	default:
		return "error"
	}
}

// Result is one identification.
type Result struct {
	Name      string
	Rationale string
	Outcome   Outcome
	Raw       string // reply text as received
	Err       error  // set for OutcomeError results produced by a failed call
}

// Registrable reports whether Name may be saved as a sighting
func (r Result) Registrable() bool {
	return r.Outcome == OutcomeIdentified && r.Name != ""
}

// SentinelNames returns every name that must never be stored as a species
func SentinelNames() []string {
	return []string{UnidentifiableName, NotABirdName, ErrorName}
}

// placeholders are words a model sometimes echoes back from the instruction
// instead of a species. Keys are normalized and lower-cased.
var placeholders = setOf(
	"이름", "새이름", "새의이름", "국명", "종", "종명", "종류", "새", "조류",
	"모름", "모르겠음", "알수없음", "알수없습니다", "불명", "미상", "없음", "판별불가",
	"name", "birdname", "species", "bird", "unknown", "n/a", "none", "?",
)

var notABird = setOf("새아님", "새가아님", "새가아닙니다", "notabird", "nobird")

var errorWords = setOf("에러", "오류", "error")

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// ParseResponse splits a "name | rationale" reply. Without a delimiter the
// whole reply is the name and the rationale is PlaceholderRationale.
// Placeholder words become UnidentifiableName.
func ParseResponse(raw string) Result {
	res := Result{Raw: raw}

	name, rationale, found := strings.Cut(strings.TrimSpace(raw), "|")
	name = cleanName(name)
	rationale = strings.TrimSpace(rationale)
	if !found || rationale == "" {
		rationale = PlaceholderRationale
	}
	res.Rationale = rationale

	name = reference.NormalizeName(name)
	key := strings.ToLower(name)
	switch {
	case key == "":
		res.Name, res.Outcome = UnidentifiableName, OutcomeUnidentifiable
	case contains(errorWords, key):
		res.Name, res.Outcome = ErrorName, OutcomeError
	case contains(notABird, key):
		res.Name, res.Outcome = NotABirdName, OutcomeNotABird
	case contains(placeholders, key):
		res.Name, res.Outcome = UnidentifiableName, OutcomeUnidentifiable
	default:
		res.Name, res.Outcome = name, OutcomeIdentified
	}
	return res
}

// ErrorResult is the outcome recorded for an image whose call failed
func ErrorResult(err error) Result {
	return Result{Name: ErrorName, Rationale: err.Error(), Outcome: OutcomeError, Err: err}
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// cleanName strips markdown emphasis, quotes and a leading label such as
// "이름:" that models add around the name.
func cleanName(s string) string {
	const decoration = " \t*_`\"'“”‘’「」"
	s = strings.Trim(s, decoration)
	for _, label := range []string{"이름:", "이름 :", "국명:", "Name:", "name:"} {
		if rest, ok := strings.CutPrefix(s, label); ok {
			s = rest
			break
		}
	}
	return strings.Trim(s, decoration)
}
