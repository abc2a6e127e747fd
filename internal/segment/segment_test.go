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

package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khabarchin/internal/segment"
)

func TestSplit(t *testing.T) {
	t.Helper()

	s := segment.NewSplitter(10)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single story passes through",
			text: "حمله موشکی به پایگاه هوایی انجام شد",
			want: []string{"حمله موشکی به پایگاه هوایی انجام شد"},
		},
		{
			name: "rule line splits stacked stories",
			text: "خبر اول درباره بازار طلا و سکه\n➖➖➖\nخبر دوم درباره حمله پهپادی",
			want: []string{"خبر اول درباره بازار طلا و سکه", "خبر دوم درباره حمله پهپادی"},
		},
		{
			name: "spaced dashes split too",
			text: "گزارش نخست از تهران بزرگ\n- - -\nگزارش دوم از بازار ارز",
			want: []string{"گزارش نخست از تهران بزرگ", "گزارش دوم از بازار ارز"},
		},
		{
			name: "blank lines stay inside one segment",
			text: "سطر اول خبر واحد\n\nسطر دوم همان خبر",
			want: []string{"سطر اول خبر واحد\n\nسطر دوم همان خبر"},
		},
		{
			name: "short fragments are dropped",
			text: "خبر بلند اول که می‌ماند\n***\nکوتاه",
			want: []string{"خبر بلند اول که می‌ماند"},
		},
		{
			name: "consecutive rules produce no empty segments",
			text: "خبر اول برای آزمون تقسیم\n➖➖\n➖➖\nخبر دوم برای آزمون تقسیم",
			want: []string{"خبر اول برای آزمون تقسیم", "خبر دوم برای آزمون تقسیم"},
		},
		{
			name: "empty input yields nothing",
			text: "",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Split(tc.text))
		})
	}
}

func TestSplitOfSegmentReturnsItUnchanged(t *testing.T) {
	s := segment.NewSplitter(10)

	text := "قیمت دلار در بازار آزاد امروز اعلام شد"
	first := s.Split(text)
	require.Len(t, first, 1)
	assert.Equal(t, text, first[0])

	second := s.Split(first[0])
	assert.Equal(t, first, second)
}

func TestSeparatorLineShapes(t *testing.T) {
	t.Helper()

	s := segment.NewSplitter(10)
	splitsOn := func(line string) bool {
		parts := s.Split("بخش نخست متن آزمایشی\n" + line + "\nبخش دوم متن آزمایشی")
		return len(parts) == 2
	}

	tests := []struct {
		name string
		line string
		want bool
	}{
		{"em dashes", "——", true},
		{"tatweel run", "ـــــ", true},
		{"heavy minus emoji", "➖➖➖", true},
		{"heavy minus with variation selector", "➖️➖️", true},
		{"equals with spaces", "= = =", true},
		{"bullets", "• • •", true},
		{"asterisks", "***", true},
		{"single dash is text", "-", false},
		{"dashes inside words are text", "متن - متن", false},
		{"plain line is text", "ادامه خبر", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitsOn(tc.line))
		})
	}
}
