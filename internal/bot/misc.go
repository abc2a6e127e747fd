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

package bot

import (
	"sort"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"khabarchin/internal/domain"
)

// Levenshtein
func minDistance(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
		dp[i][0] = i
	}
	for j := range dp[0] {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1]
			} else {
				dp[i][j] = 1 + min(dp[i-1][j], dp[i][j-1], dp[i-1][j-1])
			}
		}
	}
	return dp[m][n]
}

func (bot *Bot) findSimilarCommands(input string) []string {
	type cmdDistance struct {
		name     string
		distance int
	}

	var distances []cmdDistance
	for _, cmd := range bot.commands {
		dist := minDistance(input, cmd.Name)
		distances = append(distances, cmdDistance{cmd.Name, dist})
	}

	sort.Slice(distances, func(i, j int) bool {
		return distances[i].distance < distances[j].distance
	})

	var suggestions []string
	for i := 0; i < 3 && i < len(distances); i++ {
		suggestions = append(suggestions, distances[i].name)
	}

	return suggestions
}

// callerName labels who triggered a command, for the audit trail.
func callerName(msg *tgbotapi.Message) string {
	if msg == nil {
		return "dashboard"
	}
	return callerFromUser(msg.From)
}

func callerFromUser(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return strconv.FormatInt(user.ID, 10)
}

func statusFa(s domain.Status) string {
	switch s {
	case domain.StatusQueued:
		return "در صف"
	case domain.StatusSent:
		return "منتظر تصمیم"
	case domain.StatusPublished:
		return "منتشرشده"
	case domain.StatusRejected:
		return "ردشده"
	case domain.StatusExpired:
		return "منقضی"
	}
	return string(s)
}

func (bot *Bot) sendError(chatID int64, text string, replyTo int) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	msg.ReplyToMessageID = replyTo
	bot.api.Send(msg)
}

func (bot *Bot) sendSuccess(chatID int64, text string, replyTo int) {
	msg := tgbotapi.NewMessage(chatID, "✅ "+text)
	msg.ReplyToMessageID = replyTo
	bot.api.Send(msg)
}

// reply sends Markdown and falls back to plain text, raw news text inside a
// response can break the markup.
func (bot *Bot) reply(chatID int64, text string, replyTo int) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyToMessageID = replyTo
	if _, err := bot.api.Send(msg); err != nil {
		msg.ParseMode = ""
		if _, err := bot.api.Send(msg); err != nil {
			bot.log.Warn("reply failed", zap.Int64("chat", chatID), zap.Error(err))
		}
	}
}
