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

package classify

// Keywords holds the lexical sets the classifier scores against. Zero-value
// sets fall back to nothing; use DefaultKeywords for the built-in tables.
// All matching is plain substring containment on normalized text.
type Keywords struct {
	Urgency   []string `json:"urgency"`
	Conflict  []string `json:"conflict"`
	Actors    []string `json:"actors"`
	Financial []string `json:"financial"`
	News      []string `json:"news"`
	NonNews   []string `json:"non_news"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		Urgency: []string{
			"فوری",
			"عاجل",
			"خبر فوری",
			"هشدار",
			"لحظاتی پیش",
			"هم‌اکنون",
			"دقایقی پیش",
		},
		Conflict: []string{
			"جنگ",
			"حمله",
			"موشک",
			"پهپاد",
			"انفجار",
			"بمباران",
			"حمله هوایی",
			"پدافند",
			"آژیر",
			"شهید",
			"شهادت",
			"زخمی",
			"آتش‌بس",
			"عملیات",
			"تجاوز",
			"اصابت",
			"رهگیری",
			"درگیری",
			"تبادل آتش",
		},
		Actors: []string{
			"ایران",
			"تهران",
			"سپاه",
			"ارتش",
			"نیروهای مسلح",
			"جمهوری اسلامی",
			"اسرائیل",
			"تل‌آویو",
			"آمریکا",
			"واشنگتن",
			"پنتاگون",
			"نتانیاهو",
			"صهیونیست",
			"حزب‌الله",
			"حماس",
		},
		Financial: []string{
			"طلا",
			"سکه",
			"دلار",
			"یورو",
			"ارز",
			"قیمت",
			"نرخ",
			"تورم",
			"بورس",
			"نفت",
			"ریال",
			"تومان",
			"صرافی",
			"بازار ارز",
			"حباب سکه",
		},
		News: []string{
			"خبر",
			"گزارش",
			"اعلام",
			"منابع",
			"رسانه",
			"خبرگزاری",
			"به گزارش",
			"اعلام کرد",
			"تایید",
			"تکذیب",
			"بیانیه",
			"سخنگو",
			"وزارت",
			"رئیس‌جمهور",
		},
		// Promotions and off-topic chatter. Sports terms live here on
		// purpose: the feed covers war and markets, not leagues.
		NonNews: []string{
			"تبلیغ",
			"تبلیغات",
			"تخفیف",
			"کد تخفیف",
			"ثبت‌نام",
			"لینک عضویت",
			"کلیک کنید",
			"قرعه‌کشی",
			"جایزه",
			"فالو",
			"اینستاگرام",
			"پیج ما",
			"فروش ویژه",
			"فوتبال",
			"والیبال",
			"لیگ",
			"باشگاه",
			"تیم ملی",
			"بازیکن",
			"مربی",
			"دربی",
			"ورزشی",
		},
	}
}
