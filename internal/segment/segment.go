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

// Package segment splits multi-item channel posts into standalone news
// segments. Persian news channels stack several items in one post divided
// by decorative rule lines; each part is approved and published on its own.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultMinLength = 20

// Runes a divider line may consist of. A trimmed line of two or more of
// these (spaces allowed) is a boundary and is never part of any segment.
const separatorRunes = "-–—ـ_=*~•●▪◾➖➗✂⸻〰═━─"

type Splitter struct {
	minLength int
}

func NewSplitter(minLength int) *Splitter {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Splitter{minLength: minLength}
}

// Split returns the post's segments in source order. Segments are trimmed
// but otherwise verbatim. Splitting an already split segment yields the
// segment itself, divider lines never survive a pass.
func (s *Splitter) Split(text string) []string {
	var segments []string
	var current []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if utf8.RuneCountInString(joined) >= s.minLength {
			segments = append(segments, joined)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if isSeparatorLine(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return segments
}

func isSeparatorLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	n := 0
	for _, r := range line {
		if unicode.IsSpace(r) || r == '️' {
			continue
		}
		if !strings.ContainsRune(separatorRunes, r) {
			return false
		}
		n++
	}
	return n >= 2
}
