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

package relevance

// Taxonomy holds the tiered keyword tables the relevance filter scores
// segments against. Tiers carry different weights; the entity groups feed
// the co-occurrence bonus (a strike plus the parties involved is worth more
// than either alone).
type Taxonomy struct {
	Critical        []string `json:"critical"`
	High            []string `json:"high"`
	Regional        []string `json:"regional"`
	EconomicWarfare []string `json:"economic_warfare"`
	Reportage       []string `json:"reportage"`

	EntityIran     []string `json:"entity_iran"`
	EntityFoes     []string `json:"entity_foes"`
	EntityMilitary []string `json:"entity_military"`
	EntityWorld    []string `json:"entity_world"`
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Critical: []string{
			"حمله موشکی",
			"حمله هوایی",
			"حمله پهپادی",
			"بمباران",
			"جنگ",
			"آتش‌بس",
			"انفجار",
			"شهادت",
			"عملیات نظامی",
			"آژیر خطر",
			"پدافند هوایی",
			"موشک بالستیک",
			"تبادل آتش",
		},
		High: []string{
			"موشک",
			"پهپاد",
			"سپاه",
			"ارتش",
			"تحریم",
			"مذاکرات",
			"هسته‌ای",
			"غنی‌سازی",
			"جنگنده",
			"ناو",
			"رزمایش",
			"تهدید",
		},
		Regional: []string{
			"غزه",
			"لبنان",
			"سوریه",
			"عراق",
			"یمن",
			"انصارالله",
			"کرانه باختری",
			"خاورمیانه",
			"تنگه هرمز",
			"دریای سرخ",
		},
		EconomicWarfare: []string{
			"تحریم نفتی",
			"بازار ارز",
			"سقوط ریال",
			"قیمت دلار",
			"قیمت طلا",
			"جهش قیمت",
			"نرخ ارز",
			"طلا",
			"سکه",
			"دلار",
			"نفت",
			"بورس",
			"تورم",
		},
		Reportage: []string{
			"به گزارش",
			"خبرنگار",
			"گزارش میدانی",
			"منابع آگاه",
			"خبرگزاری",
			"اعلام کرد",
			"تایید کرد",
		},
		EntityIran: []string{
			"ایران",
			"تهران",
			"سپاه",
			"جمهوری اسلامی",
			"خامنه‌ای",
		},
		EntityFoes: []string{
			"اسرائیل",
			"تل‌آویو",
			"آمریکا",
			"واشنگتن",
			"پنتاگون",
			"نتانیاهو",
			"صهیونیستی",
		},
		EntityMilitary: []string{
			"موشک",
			"پهپاد",
			"حمله",
			"بمباران",
			"عملیات",
			"جنگنده",
			"ناو",
		},
		EntityWorld: []string{
			"سازمان ملل",
			"شورای امنیت",
			"آژانس",
			"اتحادیه اروپا",
			"مذاکرات",
		},
	}
}
