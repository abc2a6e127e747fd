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

// Package relevance is the second scoring stage. It runs per segment,
// weighs tiered topic keywords, rewards reportage wording and entity
// co-occurrence, and maps the final score onto delivery priorities.
package relevance

import (
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Tier weights, per distinct matched keyword.
const (
	weightCritical = 10
	weightEconomic = 7
	weightHigh     = 5
	weightRegional = 3

	// Flat bonus when any reportage marker is present.
	bonusReportage = 5

	DefaultMinScore = 5
)

// Co-occurrence bonus by number of distinct entity groups present.
func entityBonus(groups int) int {
	switch {
	case groups >= 4:
		return 10
	case groups == 3:
		return 7
	case groups == 2:
		return 5
	default:
		return 0
	}
}

// Priority maps a relevance score onto the five delivery bands,
// 1 being the most urgent.
func Priority(score int) int {
	switch {
	case score >= 40:
		return 1
	case score >= 25:
		return 2
	case score >= 15:
		return 3
	case score >= 8:
		return 4
	default:
		return 5
	}
}

type Result struct {
	Relevant bool
	Score    int
	Priority int
	Topics   []string // matched keywords, strongest tier first
}

type tier struct {
	matcher *ahocorasick.Matcher
	words   []string
	weight  int
}

func newTier(words []string, weight int) tier {
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
	t := tier{words: dedup, weight: weight}
	if len(dedup) > 0 {
		t.matcher = ahocorasick.NewStringMatcher(dedup)
	}
	return t
}

// hits returns the distinct matched keywords of this tier.
func (t tier) hits(text []byte) []string {
	if t.matcher == nil {
		return nil
	}
	idx := t.matcher.Match(text)
	if len(idx) == 0 {
		return nil
	}
	sort.Ints(idx)
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.words[i])
	}
	return out
}

const maxTopics = 8

// Filter is safe for concurrent use once built.
type Filter struct {
	tiers    []tier // critical, economic, high, regional: strongest first
	report   tier
	entities []tier
	minScore int
}

func NewFilter(tax Taxonomy, minScore int) *Filter {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Filter{
		tiers: []tier{
			newTier(tax.Critical, weightCritical),
			newTier(tax.EconomicWarfare, weightEconomic),
			newTier(tax.High, weightHigh),
			newTier(tax.Regional, weightRegional),
		},
		report: newTier(tax.Reportage, 0),
		entities: []tier{
			newTier(tax.EntityIran, 0),
			newTier(tax.EntityFoes, 0),
			newTier(tax.EntityMilitary, 0),
			newTier(tax.EntityWorld, 0),
		},
		minScore: minScore,
	}
}

// Score rates one normalized segment.
func (f *Filter) Score(text string) Result {
	b := []byte(text)

	score := 0
	var topics []string
	for _, t := range f.tiers {
		hits := t.hits(b)
		score += len(hits) * t.weight
		for _, h := range hits {
			if len(topics) < maxTopics && !contains(topics, h) {
				topics = append(topics, h)
			}
		}
	}

	if len(f.report.hits(b)) > 0 {
		score += bonusReportage
	}

	groups := 0
	for _, e := range f.entities {
		if len(e.hits(b)) > 0 {
			groups++
		}
	}
	score += entityBonus(groups)

	return Result{
		Relevant: score >= f.minScore,
		Score:    score,
		Priority: Priority(score),
		Topics:   topics,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
