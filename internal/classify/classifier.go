/*
   Khabarchin - Telegram news watchdog and approval pipeline
   Copyright (C) 2025  Khabarchin contributors

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package classify implements the first lexical gate of the pipeline:
// cheap keyword scoring that decides whether a channel post is news worth
// segmenting at all, and which broad category it belongs to.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"khabarchin/internal/domain"
)

// Set weights. Urgency counts double on top of its weight, so a single
// urgency hit outscores anything else.
const (
	weightUrgency   = 6
	weightConflict  = 5
	weightActor     = 4
	weightFinancial = 4
	weightNews      = 2
	penaltyNonNews  = 6

	// A text with two or more non-news hits is treated as promo/off-topic
	// unless the news signal clearly dominates.
	nonNewsVetoCount = 2
	nonNewsVetoFloor = 15

	// Floor for the weakest accept rule (generic news wording only).
	newsScoreFloor = 8

	DefaultMinLength = 30
)

// Drop reasons, reported in Result.Reason when Accepted is false.
const (
	ReasonTooShort = "too_short"
	ReasonNonNews  = "non_news"
	ReasonNoRule   = "no_rule"
)

// Counts holds distinct-keyword hits per set. Repeats of the same keyword
// in a text do not inflate its count.
type Counts struct {
	Urgency   int
	Conflict  int
	Actor     int
	Financial int
	News      int
	NonNews   int
}

type Result struct {
	Accepted bool
	Category domain.Category
	Score    int
	Counts   Counts
	Reason   string
}

type matchSet struct {
	matcher *ahocorasick.Matcher
}

func newMatchSet(words []string) matchSet {
	seen := make(map[string]bool, len(words))
	dedup := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		dedup = append(dedup, w)
	}
	if len(dedup) == 0 {
		return matchSet{}
	}
	return matchSet{matcher: ahocorasick.NewStringMatcher(dedup)}
}

func (s matchSet) count(text []byte) int {
	if s.matcher == nil {
		return 0
	}
	return len(s.matcher.Match(text))
}

// Classifier is safe for concurrent use once built.
type Classifier struct {
	urgency   matchSet
	conflict  matchSet
	actors    matchSet
	financial matchSet
	news      matchSet
	nonNews   matchSet
	minLength int
}

func New(kw Keywords, minLength int) *Classifier {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Classifier{
		urgency:   newMatchSet(kw.Urgency),
		conflict:  newMatchSet(kw.Conflict),
		actors:    newMatchSet(kw.Actors),
		financial: newMatchSet(kw.Financial),
		news:      newMatchSet(kw.News),
		nonNews:   newMatchSet(kw.NonNews),
		minLength: minLength,
	}
}

// Classify scores normalized text. Callers are expected to run Normalize
// first; the raw post goes to the publisher untouched.
func (c *Classifier) Classify(text string) Result {
	if utf8.RuneCountInString(text) < c.minLength {
		return Result{Reason: ReasonTooShort}
	}

	b := []byte(text)
	counts := Counts{
		Urgency:   c.urgency.count(b),
		Conflict:  c.conflict.count(b),
		Actor:     c.actors.count(b),
		Financial: c.financial.count(b),
		News:      c.news.count(b),
		NonNews:   c.nonNews.count(b),
	}

	score := 2*counts.Urgency*weightUrgency +
		counts.Conflict*weightConflict +
		counts.Actor*weightActor +
		counts.Financial*weightFinancial +
		counts.News*weightNews -
		counts.NonNews*penaltyNonNews

	res := Result{Score: score, Counts: counts, Category: category(counts)}

	if counts.NonNews >= nonNewsVetoCount && score < nonNewsVetoFloor {
		res.Reason = ReasonNonNews
		return res
	}

	res.Accepted = counts.Urgency >= 1 ||
		counts.Conflict >= 2 ||
		(counts.Conflict >= 1 && counts.Actor >= 1) ||
		counts.Financial >= 2 ||
		(counts.Financial >= 1 && counts.News >= 1) ||
		(counts.News >= 2 && score >= newsScoreFloor)
	if !res.Accepted {
		res.Reason = ReasonNoRule
	}
	return res
}

func category(c Counts) domain.Category {
	switch {
	case c.Urgency > 0:
		return domain.CategoryUrgent
	case c.Conflict > 0:
		return domain.CategoryConflict
	case c.Actor > 0:
		return domain.CategoryActor
	case c.Financial > 0:
		return domain.CategoryFinancial
	default:
		return domain.CategoryGeneral
	}
}

var (
	urlRe     = regexp.MustCompile(`(https?://|www\.|t\.me/)\S+`)
	mentionRe = regexp.MustCompile(`@[A-Za-z0-9_]+`)
	styleRe   = regexp.MustCompile("[*_~`|#]+")
	symbolRe  = regexp.MustCompile(`[\p{So}\p{Sk}\p{Cs}]+`)
	spaceRe   = regexp.MustCompile(`[\s\p{Zs}]+`)

	// Arabic codepoints that Persian channels mix in freely.
	arabicNorm = strings.NewReplacer(
		"ي", "ی",
		"ك", "ک",
		"ة", "ه",
		"أ", "ا",
		"إ", "ا",
		"«", "\"",
		"»", "\"",
		"“", "\"",
		"”", "\"",
	)
)

// Normalize produces the matching form of a post: unified Persian letters,
// no links, mentions, styling or emoji, single spaces. The zero-width
// non-joiner is kept, keyword tables rely on it.
func Normalize(text string) string {
	cleaned := arabicNorm.Replace(text)
	cleaned = urlRe.ReplaceAllString(cleaned, " ")
	cleaned = mentionRe.ReplaceAllString(cleaned, " ")
	cleaned = styleRe.ReplaceAllString(cleaned, " ")
	cleaned = symbolRe.ReplaceAllString(cleaned, " ")

	cleaned = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)

	cleaned = spaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ExtractURL returns the first http(s) link of a post, if any. Used for
// optional page-context enrichment before relevance scoring.
func ExtractURL(text string) string {
	loc := urlRe.FindString(text)
	if loc == "" || strings.HasPrefix(loc, "t.me/") {
		return ""
	}
	if strings.HasPrefix(loc, "www.") {
		return "https://" + loc
	}
	return loc
}
