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

package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"khabarchin/internal/classify"
	"khabarchin/internal/domain"
)

func TestClassifyScenarios(t *testing.T) {
	t.Helper()

	c := classify.New(classify.DefaultKeywords(), 20)

	tests := []struct {
		name         string
		text         string
		wantAccepted bool
		wantCategory domain.Category
		wantReason   string
	}{
		{
			name:         "gold price report is financial news",
			text:         "قیمت طلای ۱۸ عیار امروز ۲ میلیون تومان اعلام شد",
			wantAccepted: true,
			wantCategory: domain.CategoryFinancial,
		},
		{
			name:       "sports result is vetoed as non-news",
			text:       "تیم ملی فوتبال ایران برنده شد",
			wantReason: classify.ReasonNonNews,
		},
		{
			name:         "urgent strike headline",
			text:         "فوری: حمله پهپادی به تل‌آویو لحظاتی پیش آغاز شد",
			wantAccepted: true,
			wantCategory: domain.CategoryUrgent,
		},
		{
			name:         "missile and blast wording is conflict",
			text:         "حمله موشکی و انفجار در چند شهر گزارش شده است",
			wantAccepted: true,
			wantCategory: domain.CategoryConflict,
		},
		{
			name:         "wire-style statement is general news",
			text:         "به گزارش خبرگزاری، سخنگوی وزارت امور خارجه اعلام کرد",
			wantAccepted: true,
			wantCategory: domain.CategoryGeneral,
		},
		{
			name:       "promo spam is vetoed",
			text:       "تخفیف ویژه! برای ثبت‌نام کلیک کنید و جایزه بگیرید",
			wantReason: classify.ReasonNonNews,
		},
		{
			name:       "plain chatter matches no rule",
			text:       "امروز هوا در شهر ما بسیار خوب و آفتابی بود",
			wantReason: classify.ReasonNoRule,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Classify(classify.Normalize(tc.text))
			assert.Equal(t, tc.wantAccepted, res.Accepted)
			if tc.wantAccepted {
				assert.Equal(t, tc.wantCategory, res.Category)
				assert.Positive(t, res.Score)
			} else {
				assert.Equal(t, tc.wantReason, res.Reason)
			}
		})
	}
}

func TestClassifyRejectsShortText(t *testing.T) {
	c := classify.New(classify.DefaultKeywords(), 0) // default minimum length

	// Even strong keywords do not save a text below the length floor.
	for _, text := range []string{"", "فوری", "طلا و سکه گران شد"} {
		res := c.Classify(text)
		assert.False(t, res.Accepted)
		assert.Equal(t, classify.ReasonTooShort, res.Reason)
	}
}

func TestClassifyCountsDistinctKeywords(t *testing.T) {
	c := classify.New(classify.DefaultKeywords(), 20)

	// Repeating one keyword must not inflate its set count or pass the
	// two-financial-hits rule.
	res := c.Classify("طلا طلا طلا طلا طلا طلا")
	assert.Equal(t, 1, res.Counts.Financial)
	assert.Equal(t, 4, res.Score)
	assert.False(t, res.Accepted)
	assert.Equal(t, classify.ReasonNoRule, res.Reason)
}

func TestNormalize(t *testing.T) {
	t.Helper()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unifies arabic letters", "علي كرد", "علی کرد"},
		{"strips links", "خبر مهم https://example.com/a?b=1 ادامه", "خبر مهم ادامه"},
		{"strips mentions and styling", "*مهم* @newschannel متن", "مهم متن"},
		{"collapses whitespace", "الف\n\nب\tج", "الف ب ج"},
		{"keeps zero-width non-joiner", "می‌رود", "می‌رود"},
		{"drops emoji", "🔴 خبر فوری اعلام شد", "خبر فوری اعلام شد"},
		{"straightens quotes", "«نقل‌قول» گفت", "\"نقل‌قول\" گفت"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify.Normalize(tc.in))
		})
	}
}

func TestExtractURL(t *testing.T) {
	t.Helper()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"https link", "متن https://example.com/x متن", "https://example.com/x"},
		{"http link", "http://news.ir/1 خبر", "http://news.ir/1"},
		{"www link gains scheme", "ببینید www.example.com/page حالا", "https://www.example.com/page"},
		{"telegram links are channel noise", "عضویت t.me/somechannel", ""},
		{"no link", "متن ساده بدون پیوند", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify.ExtractURL(tc.in))
		})
	}
}
