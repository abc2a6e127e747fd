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

package relevance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khabarchin/internal/relevance"
)

func TestScore(t *testing.T) {
	t.Helper()

	f := relevance.NewFilter(relevance.DefaultTaxonomy(), 0)

	tests := []struct {
		name         string
		text         string
		wantRelevant bool
		wantScore    int
		wantPriority int
		wantTopics   []string
	}{
		{
			// Two economic keywords, no reportage marker, no entities.
			name:         "gold price segment",
			text:         "قیمت طلای ۱۸ عیار امروز ۲ میلیون تومان اعلام شد",
			wantRelevant: true,
			wantScore:    14,
			wantPriority: 4,
			wantTopics:   []string{"قیمت طلا", "طلا"},
		},
		{
			// Critical strike + two high-tier hits + reportage bonus +
			// three entity groups co-occurring.
			name:         "sourced strike report",
			text:         "حمله موشکی سپاه به تل‌آویو، به گزارش خبرگزاری",
			wantRelevant: true,
			wantScore:    32,
			wantPriority: 2,
			wantTopics:   []string{"حمله موشکی", "موشک", "سپاه"},
		},
		{
			// All four entity groups present lifts the bonus to its cap.
			name:         "four entity groups",
			text:         "حمله پهپادی ایران به اسرائیل پس از نشست شورای امنیت سازمان ملل",
			wantRelevant: true,
			wantScore:    25,
			wantPriority: 2,
			wantTopics:   []string{"حمله پهپادی", "پهپاد"},
		},
		{
			name:         "regional mention alone stays below the threshold",
			text:         "وضعیت غزه همچنان دشوار است",
			wantRelevant: false,
			wantScore:    3,
			wantPriority: 5,
			wantTopics:   []string{"غزه"},
		},
		{
			name:         "no keywords at all",
			text:         "هوا امروز آفتابی است",
			wantRelevant: false,
			wantScore:    0,
			wantPriority: 5,
			wantTopics:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := f.Score(tc.text)
			assert.Equal(t, tc.wantRelevant, res.Relevant)
			assert.Equal(t, tc.wantScore, res.Score)
			assert.Equal(t, tc.wantPriority, res.Priority)
			assert.Equal(t, tc.wantTopics, res.Topics)
		})
	}
}

func TestScoreCapsTopics(t *testing.T) {
	f := relevance.NewFilter(relevance.DefaultTaxonomy(), 0)

	text := "جنگ ادامه دارد: بمباران و انفجار در غزه و لبنان، حمله موشکی و حمله هوایی با موشک و پهپاد، سپاه و ارتش پس از آتش‌بس"
	res := f.Score(text)

	require.True(t, res.Relevant)
	assert.Equal(t, 1, res.Priority)
	// Strongest tiers fill the list first; regional hits no longer fit.
	assert.Equal(t, []string{
		"حمله موشکی", "حمله هوایی", "بمباران", "جنگ",
		"آتش‌بس", "انفجار", "موشک", "پهپاد",
	}, res.Topics)
}

func TestScoreHonorsMinScore(t *testing.T) {
	f := relevance.NewFilter(relevance.DefaultTaxonomy(), 20)

	res := f.Score("قیمت طلای ۱۸ عیار امروز ۲ میلیون تومان اعلام شد")
	assert.False(t, res.Relevant)
	assert.Equal(t, 14, res.Score)
}

func TestPriorityBands(t *testing.T) {
	t.Helper()

	tests := []struct {
		score int
		want  int
	}{
		{45, 1},
		{40, 1},
		{39, 2},
		{25, 2},
		{24, 3},
		{15, 3},
		{14, 4},
		{8, 4},
		{7, 5},
		{0, 5},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, relevance.Priority(tc.score), "score %d", tc.score)
	}
}
