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
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"khabarchin/internal/approval"
	"khabarchin/internal/telegram"
)

// handleCallback resolves an approve/reject button tap. A second tap on the
// same prompt finds the candidate already resolved and only gets a toast.
func (bot *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	action, id, ok := telegram.ParseCallback(cq.Data)
	if !ok {
		return
	}
	if !bot.allowedCallback(cq) {
		bot.api.Request(tgbotapi.NewCallback(cq.ID, "اجازه ندارید"))
		return
	}

	by := callerFromUser(cq.From)
	var err error
	switch action {
	case telegram.CallbackApprove:
		_, err = bot.machine.Approve(context.Background(), id, by)
	case telegram.CallbackReject:
		_, err = bot.machine.Reject(id, by)
	}

	var note string
	switch {
	case errors.Is(err, approval.ErrNotFound):
		note = "قبلا رسیدگی شده است"
	case err != nil:
		note = "خطا در انجام عملیات"
		bot.log.Error("callback failed",
			zap.String("action", action), zap.String("id", id), zap.Error(err))
	case action == telegram.CallbackApprove:
		note = "✅ منتشر شد"
	default:
		note = "❌ رد شد"
	}
	bot.api.Request(tgbotapi.NewCallback(cq.ID, note))

	// strike the buttons off the prompt and record who decided
	if err == nil && cq.Message != nil {
		edit := tgbotapi.NewEditMessageText(
			cq.Message.Chat.ID,
			cq.Message.MessageID,
			cq.Message.Text+"\n\n"+note+" توسط "+by,
		)
		bot.api.Send(edit)
	}
}

// allowedCallback also lets approval group members decide, they were
// trusted with the prompt in the first place.
func (bot *Bot) allowedCallback(cq *tgbotapi.CallbackQuery) bool {
	if bot.allowed(cq.From) {
		return true
	}
	return cq.Message != nil && cq.Message.Chat != nil &&
		cq.Message.Chat.ID == bot.conf.Telegram.ApprovalChatID
}
