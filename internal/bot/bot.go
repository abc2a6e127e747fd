package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"khabarchin/internal/approval"
	"khabarchin/internal/archive"
	"khabarchin/internal/config"
	"khabarchin/internal/pipeline"
	"khabarchin/internal/queue"
	"khabarchin/internal/store"
	"khabarchin/internal/telegram"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	conf     *config.Config
	log      *zap.Logger
	reader   *telegram.Reader
	store    *store.Store
	archive  *archive.DB
	machine  *approval.Machine
	pipe     *pipeline.Pipeline
	queue    *queue.Queue
	auto     approval.Provider // nil when no scorer is configured
	commands []Command
}

type Deps struct {
	API     *tgbotapi.BotAPI
	Conf    *config.Config
	Log     *zap.Logger
	Reader  *telegram.Reader
	Store   *store.Store
	Archive *archive.DB
	Machine *approval.Machine
	Pipe    *pipeline.Pipeline
	Queue   *queue.Queue
	Auto    approval.Provider
}

func New(d Deps) *Bot {
	bot := &Bot{
		api:     d.API,
		conf:    d.Conf,
		log:     d.Log,
		reader:  d.Reader,
		store:   d.Store,
		archive: d.Archive,
		machine: d.Machine,
		pipe:    d.Pipe,
		queue:   d.Queue,
		auto:    d.Auto,
	}
	bot.registerCommands()
	return bot
}

// Run consumes Telegram updates until ctx is canceled. Channel posts feed
// the reader buffer, callbacks resolve candidates, messages are admin
// commands.
func (bot *Bot) Run(ctx context.Context) {
	bot.log.Info("bot authorized", zap.String("account", bot.api.Self.UserName))

	// the approval group should notice restarts
	if bot.conf.Telegram.ApprovalChatID != 0 {
		bot.sendSuccess(bot.conf.Telegram.ApprovalChatID, "ربات خبرچین راه‌اندازی شد", 0)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query"}
	updates := bot.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			bot.handleUpdate(update)
		}
	}
}

func (bot *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.ChannelPost != nil:
		bot.reader.Buffer(update.ChannelPost)
	case update.CallbackQuery != nil:
		go bot.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		go bot.handleMessage(update.Message)
	}
}

func (bot *Bot) handleMessage(message *tgbotapi.Message) {
	bot.log.Debug("message",
		zap.String("from", callerName(message)), zap.String("text", message.Text))

	if !bot.allowed(message.From) {
		bot.sendError(message.Chat.ID, "شما اجازه استفاده از این ربات را ندارید!", message.MessageID)
		if bot.conf.Debug {
			bot.log.Debug("user refused", zap.String("from", callerName(message)))
		}
		return
	}

	message.Text = strings.TrimSpace(message.Text)
	lower := strings.ToLower(message.Text)
	for _, command := range bot.commands {
		if strings.HasPrefix(lower, command.Name) {
			bot.dispatch(command, message)
			return
		}
	}

	bot.sendCommandSuggestions(message.Chat.ID, lower)
}

func (bot *Bot) dispatch(command Command, message *tgbotapi.Message) {
	args := strings.TrimSpace(message.Text[len(command.Name):])
	response, err := command.Call(message, args)
	if err != nil {
		bot.sendError(message.Chat.ID, err.Error(), message.MessageID)
		return
	}
	if response != "" {
		bot.reply(message.Chat.ID, response, message.MessageID)
	}
}

func (bot *Bot) allowed(user *tgbotapi.User) bool {
	if bot.conf.Telegram.Public {
		return true
	}
	if user == nil {
		return false
	}
	for _, id := range bot.conf.Telegram.AllowedUserIDs {
		if user.ID == id {
			return true
		}
	}
	return false
}

func (bot *Bot) sendCommandSuggestions(chatID int64, input string) {
	suggestions := bot.findSimilarCommands(input)
	if len(suggestions) == 0 {
		return
	}

	message := "دستور ناشناخته. شاید منظورتان یکی از این دستورها بود:\n"
	for _, cmd := range suggestions {
		command := bot.CommandByName(cmd)
		if command != nil {
			message += fmt.Sprintf("`%s` - %s\n", command.Name, command.Description)
		}
	}
	message += "\nبرای راهنما از `help [دستور]` استفاده کنید"

	bot.reply(chatID, message, 0)
}
