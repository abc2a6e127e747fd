package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khabarchin/internal/approval"
	"khabarchin/internal/domain"
	"khabarchin/internal/report"
)

type Command struct {
	Name        string
	Description string
	Example     string
	Group       string
	Call        func(msg *tgbotapi.Message, args string) (string, error)
}

func (bot *Bot) NewCommand(cmd Command) {
	bot.commands = append(bot.commands, cmd)
}

func (bot *Bot) CommandByName(name string) *Command {
	for i := range bot.commands {
		if bot.commands[i].Name == name {
			return &bot.commands[i]
		}
	}

	return nil
}

func (bot *Bot) registerCommands() {
	bot.NewCommand(Command{
		Name:        "help",
		Description: "چاپ پیام راهنما",
		Example:     "help approve",
		Group:       "عمومی",
		Call:        bot.Help,
	})

	bot.NewCommand(Command{
		Name:        "about",
		Description: "درباره این ربات",
		Group:       "عمومی",
		Call:        bot.About,
	})

	bot.NewCommand(Command{
		Name:        "conf",
		Description: "نمایش پیکربندی فعلی",
		Group:       "عمومی",
		Call:        bot.PrintConfig,
	})

	bot.NewCommand(Command{
		Name:        "stats",
		Description: "آمار کلی خط پردازش",
		Group:       "گزارش",
		Call:        bot.PrintStats,
	})

	bot.NewCommand(Command{
		Name:        "pending",
		Description: "فهرست خبرهای در انتظار تصمیم",
		Group:       "تایید",
		Call:        bot.ListPending,
	})

	bot.NewCommand(Command{
		Name:        "show",
		Description: "نمایش کامل یک خبر در انتظار",
		Example:     "show 68a1b2c3-deadbeef",
		Group:       "تایید",
		Call:        bot.ShowCandidate,
	})

	bot.NewCommand(Command{
		Name:        "approve",
		Description: "تایید و انتشار یک خبر",
		Example:     "approve 68a1b2c3-deadbeef",
		Group:       "تایید",
		Call:        bot.Approve,
	})

	bot.NewCommand(Command{
		Name:        "reject",
		Description: "رد یک خبر",
		Example:     "reject 68a1b2c3-deadbeef",
		Group:       "تایید",
		Call:        bot.Reject,
	})

	bot.NewCommand(Command{
		Name:        "resend",
		Description: "ارسال دوباره پیام‌های تایید برای خبرهای بدون پیام",
		Group:       "تایید",
		Call:        bot.Resend,
	})

	bot.NewCommand(Command{
		Name:        "auto",
		Description: "نمایش یا تغییر وضعیت تصمیم‌گیری خودکار",
		Example:     "auto on",
		Group:       "تایید",
		Call:        bot.Auto,
	})

	bot.NewCommand(Command{
		Name:        "sweep",
		Description: "اجرای فوری پاکسازی خبرهای منقضی",
		Group:       "پایش",
		Call:        bot.Sweep,
	})

	bot.NewCommand(Command{
		Name:        "seen",
		Description: "تعداد پیام‌های پردازش‌شده در حافظه",
		Group:       "پایش",
		Call:        bot.SeenCount,
	})

	bot.NewCommand(Command{
		Name:        "channels",
		Description: "فهرست کانال‌های زیر نظر",
		Group:       "پایش",
		Call:        bot.ListChannels,
	})

	bot.NewCommand(Command{
		Name:        "addchannel",
		Description: "افزودن کانال به فهرست پایش",
		Example:     "addchannel @some_news_channel",
		Group:       "پایش",
		Call:        bot.AddChannel,
	})

	bot.NewCommand(Command{
		Name:        "rmchannel",
		Description: "حذف کانال از فهرست پایش",
		Example:     "rmchannel @some_news_channel",
		Group:       "پایش",
		Call:        bot.RemoveChannel,
	})

	bot.NewCommand(Command{
		Name:        "report",
		Description: "گزارش خبرهای رسیدگی‌شده در چند روز اخیر",
		Example:     "report 7",
		Group:       "گزارش",
		Call:        bot.Report,
	})

	bot.NewCommand(Command{
		Name:        "xlsx",
		Description: "ساخت و ارسال فایل XLSX از بایگانی",
		Group:       "گزارش",
		Call:        bot.GenerateSpreadsheet,
	})

	bot.NewCommand(Command{
		Name:        "adduser",
		Description: "دادن دسترسی به کاربر با شناسه عددی (برای گرفتن شناسه از @userinfobot استفاده کنید)",
		Example:     "adduser 5293210034",
		Group:       "دسترسی",
		Call:        bot.AddUser,
	})

	bot.NewCommand(Command{
		Name:        "rmuser",
		Description: "گرفتن دسترسی از کاربر با شناسه عددی",
		Example:     "rmuser 5293210034",
		Group:       "دسترسی",
		Call:        bot.RemoveUser,
	})

	bot.NewCommand(Command{
		Name:        "public",
		Description: "باز یا بسته کردن دسترسی عمومی به ربات",
		Group:       "دسترسی",
		Call:        bot.TogglePublicity,
	})
}

func constructCommandHelpMessage(command Command) string {
	commandHelp := ""
	commandHelp += fmt.Sprintf("\n*دستور:* \"%s\"\n*توضیح:* %s\n", command.Name, command.Description)
	if command.Example != "" {
		commandHelp += fmt.Sprintf("*مثال:* `%s`\n", command.Example)
	}

	return commandHelp
}

func (bot *Bot) Help(msg *tgbotapi.Message, args string) (string, error) {
	if strings.TrimSpace(args) != "" {
		command := bot.CommandByName(args)
		if command != nil {
			return constructCommandHelpMessage(*command), nil
		}
	}

	var helpMessage string

	commandsByGroup := make(map[string][]Command)
	for _, command := range bot.commands {
		commandsByGroup[command.Group] = append(commandsByGroup[command.Group], command)
	}

	groups := []string{}
	for g := range commandsByGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		helpMessage += fmt.Sprintf("\n\n*[%s]*\n", group)
		for _, command := range commandsByGroup[group] {
			helpMessage += constructCommandHelpMessage(command)
		}
	}

	return helpMessage, nil
}

func (bot *Bot) About(msg *tgbotapi.Message, args string) (string, error) {
	return `خبرچین - ربات پایش و انتشار اخبار

این ربات کانال‌های خبری تلگرام را زیر نظر می‌گیرد، خبرهای مرتبط را جدا می‌کند و پس از تایید، در کانال مقصد منتشر می‌کند.

مجوز: GPLv3
`, nil
}

func (bot *Bot) PrintConfig(msg *tgbotapi.Message, args string) (string, error) {
	var response strings.Builder

	response.WriteString("*پیکربندی فعلی:*\n")

	response.WriteString("\n*[تلگرام]*\n")
	response.WriteString(fmt.Sprintf("*عمومی؟*: `%v`\n", bot.conf.Telegram.Public))
	response.WriteString(fmt.Sprintf("*کاربران مجاز*: `%+v`\n", bot.conf.Telegram.AllowedUserIDs))
	response.WriteString(fmt.Sprintf("*گروه تایید*: `%d`\n", bot.conf.Telegram.ApprovalChatID))
	response.WriteString(fmt.Sprintf("*کانال مقصد*: `%s`\n", bot.conf.Telegram.TargetChannel))
	response.WriteString(fmt.Sprintf("*کانال‌های زیر نظر*: `%+v`\n", bot.conf.Telegram.Channels))

	response.WriteString("\n*[پردازش]*\n")
	response.WriteString(fmt.Sprintf("*بازه سرکشی*: `%d` ثانیه\n", bot.conf.Pipeline.PollSeconds))
	response.WriteString(fmt.Sprintf("*حداقل طول پیام*: `%d`\n", bot.conf.Pipeline.MinMessageLength))
	response.WriteString(fmt.Sprintf("*حداقل امتیاز ارتباط*: `%d`\n", bot.conf.Pipeline.MinRelevance))
	response.WriteString(fmt.Sprintf("*مهلت خبرهای بی‌پاسخ*: `%d` ساعت\n", bot.conf.Pipeline.MaxCandidateAgeHours))
	response.WriteString(fmt.Sprintf("*گرفتن متن لینک‌ها؟*: `%v`\n", bot.conf.Pipeline.FetchLinks))

	response.WriteString("\n*[صف ارسال]*\n")
	response.WriteString(fmt.Sprintf("*گنجایش*: `%d`\n", bot.conf.Queue.Capacity))
	response.WriteString(fmt.Sprintf("*فاصله ارسال*: `%d` میلی‌ثانیه\n", bot.conf.Queue.MinDelayMS))
	response.WriteString(fmt.Sprintf("*آستانه شلوغی*: `%d`\n", bot.conf.Queue.Congestion))

	response.WriteString("\n*[تصمیم خودکار]*\n")
	response.WriteString(fmt.Sprintf("*فعال؟*: `%v`\n", bot.conf.Ollama.Enabled))
	response.WriteString(fmt.Sprintf("*مدل*: `%s`\n", bot.conf.Ollama.Scorer.Model))
	response.WriteString(fmt.Sprintf("*آستانه تایید/رد*: `%d`/`%d`\n", bot.conf.Ollama.ApproveAt, bot.conf.Ollama.RejectAt))

	response.WriteString("\n*[گزارش]*\n")
	response.WriteString(fmt.Sprintf("*ارسال به Google Sheets؟*: `%v`\n", bot.conf.Sheets.PushToGoogleSheet))
	response.WriteString(fmt.Sprintf("*نام برگه*: `%s`\n", bot.conf.Sheets.Google.SheetName))

	return response.String(), nil
}

func (bot *Bot) PrintStats(msg *tgbotapi.Message, args string) (string, error) {
	st := bot.store.Stats()

	var response strings.Builder
	response.WriteString("*آمار خط پردازش:*\n")
	response.WriteString(fmt.Sprintf("*پیام‌های بررسی‌شده*: `%d`\n", st.Received))
	response.WriteString(fmt.Sprintf("*پذیرفته‌شده*: `%d`\n", st.Accepted))
	response.WriteString(fmt.Sprintf("*ارسال‌شده برای تایید*: `%d`\n", st.Sent))
	response.WriteString(fmt.Sprintf("*منتشرشده*: `%d`\n", st.Published))
	response.WriteString(fmt.Sprintf("*ردشده*: `%d`\n", st.Rejected))
	response.WriteString(fmt.Sprintf("*منقضی‌شده*: `%d`\n", st.Expired))
	response.WriteString(fmt.Sprintf("*در انتظار*: `%d`\n", len(bot.store.Pending())))
	response.WriteString(fmt.Sprintf("*در صف ارسال*: `%d`\n", bot.queue.Depth()))
	response.WriteString(fmt.Sprintf("*کلیدهای در حافظه*: `%d`\n", bot.store.SeenCount()))

	return response.String(), nil
}

const pendingListLimit = 15

func (bot *Bot) ListPending(msg *tgbotapi.Message, args string) (string, error) {
	pending := bot.store.Pending()
	if len(pending) == 0 {
		return "خبری در انتظار تصمیم نیست.", nil
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("*%d خبر در انتظار:*\n", len(pending)))
	for i, c := range pending {
		if i == pendingListLimit {
			response.WriteString(fmt.Sprintf("... و %d مورد دیگر\n", len(pending)-pendingListLimit))
			break
		}
		age := time.Since(c.CreatedAt).Round(time.Minute)
		response.WriteString(fmt.Sprintf("%d. `%s` | @%s | اولویت %d | %s | %v\n",
			i+1, c.ID, c.Channel, c.Priority, statusFa(c.Status), age))
	}
	response.WriteString("\nبرای دیدن متن کامل: `show [شناسه]`")

	return response.String(), nil
}

func (bot *Bot) ShowCandidate(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("شناسه خبر را وارد کنید")
	}

	c, ok := bot.store.Get(args)
	if !ok {
		return "", errors.New("خبری با این شناسه در انتظار نیست")
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("شناسه: %s\n", c.ID))
	response.WriteString(fmt.Sprintf("منبع: @%s (پیام %d", c.Channel, c.MessageID))
	if c.Segment > 0 {
		response.WriteString(fmt.Sprintf("، بخش %d", c.Segment+1))
	}
	response.WriteString(")\n")
	response.WriteString(fmt.Sprintf("وضعیت: %s\n", statusFa(c.Status)))
	response.WriteString(fmt.Sprintf("دسته: %s | امتیاز واژگانی: %d | ارتباط: %d | اولویت: %d\n",
		c.Category, c.LexicalScore, c.Relevance, c.Priority))
	if len(c.Topics) > 0 {
		response.WriteString("موضوعات: " + strings.Join(c.Topics, "، ") + "\n")
	}
	if c.Media != nil {
		response.WriteString(fmt.Sprintf("رسانه: %s\n", c.Media.Kind))
	}
	if c.Note != "" {
		response.WriteString("یادداشت: " + c.Note + "\n")
	}
	response.WriteString("\n" + c.Text)

	return response.String(), nil
}

func (bot *Bot) Approve(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("شناسه خبر را وارد کنید")
	}

	c, err := bot.machine.Approve(context.Background(), args, callerName(msg))
	if err != nil {
		if errors.Is(err, approval.ErrNotFound) {
			return "", errors.New("شناسه یافت نشد یا قبلا رسیدگی شده است")
		}
		return "", fmt.Errorf("انتشار ناموفق بود: %w", err)
	}

	return fmt.Sprintf("خبر `%s` منتشر شد.", c.ID), nil
}

func (bot *Bot) Reject(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("شناسه خبر را وارد کنید")
	}

	c, err := bot.machine.Reject(args, callerName(msg))
	if err != nil {
		if errors.Is(err, approval.ErrNotFound) {
			return "", errors.New("شناسه یافت نشد یا قبلا رسیدگی شده است")
		}
		return "", err
	}

	return fmt.Sprintf("خبر `%s` رد شد.", c.ID), nil
}

func (bot *Bot) Resend(msg *tgbotapi.Message, args string) (string, error) {
	n := bot.pipe.Resend()
	if n == 0 {
		return "خبری برای ارسال دوباره نبود.", nil
	}
	return fmt.Sprintf("%d خبر دوباره در صف ارسال قرار گرفت.", n), nil
}

func (bot *Bot) Auto(msg *tgbotapi.Message, args string) (string, error) {
	switch strings.TrimSpace(args) {
	case "":
		state := "خاموش"
		if bot.conf.Ollama.Enabled {
			state = "روشن"
		}
		return fmt.Sprintf("تصمیم‌گیری خودکار: %s\nبرای تغییر: `auto on` یا `auto off`", state), nil
	case "on":
		if bot.auto == nil {
			return "", errors.New("امتیازده خودکار پیکربندی نشده است")
		}
		bot.pipe.SetProvider(bot.auto)
		bot.conf.Ollama.Enabled = true
		bot.conf.Update()
		return "تصمیم‌گیری خودکار روشن شد.", nil
	case "off":
		bot.pipe.SetProvider(approval.HumanProvider{})
		bot.conf.Ollama.Enabled = false
		bot.conf.Update()
		return "تصمیم‌گیری خودکار خاموش شد. همه خبرها برای تایید انسانی می‌آیند.", nil
	default:
		return "", errors.New("گزینه نامعتبر. از on یا off استفاده کنید")
	}
}

func (bot *Bot) Sweep(msg *tgbotapi.Message, args string) (string, error) {
	expired, pruned := bot.pipe.Sweep()
	return fmt.Sprintf("پاکسازی انجام شد: %d خبر منقضی، %d کلید قدیمی حذف شد.", expired, pruned), nil
}

func (bot *Bot) SeenCount(msg *tgbotapi.Message, args string) (string, error) {
	return fmt.Sprintf("%d پیام در حافظه پردازش‌شده‌ها است.", bot.store.SeenCount()), nil
}

func (bot *Bot) ListChannels(msg *tgbotapi.Message, args string) (string, error) {
	channels := bot.reader.Channels()
	if len(channels) == 0 {
		return "هیچ کانالی زیر نظر نیست. با `addchannel` اضافه کنید.", nil
	}

	sort.Strings(channels)
	var response strings.Builder
	response.WriteString("*کانال‌های زیر نظر:*\n")
	for _, c := range channels {
		response.WriteString("- @" + c + "\n")
	}

	return response.String(), nil
}

func (bot *Bot) AddChannel(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("نام کانال را وارد کنید")
	}

	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(args), "@"))
	for _, c := range bot.conf.Telegram.Channels {
		if strings.ToLower(strings.TrimPrefix(c, "@")) == name {
			return "این کانال از قبل در فهرست است.", nil
		}
	}

	bot.conf.Telegram.Channels = append(bot.conf.Telegram.Channels, name)
	bot.reader.SetChannels(bot.conf.Telegram.Channels)
	bot.conf.Update()

	return fmt.Sprintf("کانال @%s به فهرست پایش اضافه شد.", name), nil
}

func (bot *Bot) RemoveChannel(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("نام کانال را وارد کنید")
	}

	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(args), "@"))
	found := false
	kept := []string{}
	for _, c := range bot.conf.Telegram.Channels {
		if strings.ToLower(strings.TrimPrefix(c, "@")) == name {
			found = true
			continue
		}
		kept = append(kept, c)
	}

	if !found {
		return "", errors.New("این کانال در فهرست نیست")
	}

	bot.conf.Telegram.Channels = kept
	bot.reader.SetChannels(kept)
	bot.conf.Update()

	return fmt.Sprintf("کانال @%s از فهرست پایش حذف شد.", name), nil
}

func (bot *Bot) Report(msg *tgbotapi.Message, args string) (string, error) {
	days := 7
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return "", errors.New("تعداد روز نامعتبر است")
		}
		days = n
	}

	entries, err := bot.archive.Since(time.Now().AddDate(0, 0, -days))
	if err != nil {
		return "", fmt.Errorf("خواندن بایگانی ناموفق بود: %w", err)
	}

	if len(entries) == 0 {
		return fmt.Sprintf("در %d روز گذشته خبری رسیدگی نشده است.", days), nil
	}

	byStatus := make(map[string]int)
	byCategory := make(map[string]int)
	for _, e := range entries {
		byStatus[e.Status]++
		byCategory[e.Category]++
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("*گزارش %d روز گذشته (%d خبر):*\n", days, len(entries)))
	response.WriteString(fmt.Sprintf("منتشرشده: %d | ردشده: %d | منقضی: %d\n",
		byStatus[string(domain.StatusPublished)],
		byStatus[string(domain.StatusRejected)],
		byStatus[string(domain.StatusExpired)]))

	categories := []string{}
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	response.WriteString("\n*به تفکیک دسته:*\n")
	for _, c := range categories {
		response.WriteString(fmt.Sprintf("- %s: %d\n", c, byCategory[c]))
	}

	return response.String(), nil
}

const xlsxExportLimit = 1000

func (bot *Bot) GenerateSpreadsheet(msg *tgbotapi.Message, args string) (string, error) {
	if msg == nil {
		return "", errors.New("فایل XLSX از داشبورد وب قابل دانلود است")
	}

	entries, err := bot.archive.Recent(xlsxExportLimit)
	if err != nil {
		return "", fmt.Errorf("خواندن بایگانی ناموفق بود: %w", err)
	}
	if len(entries) == 0 {
		return "بایگانی خالی است.", nil
	}

	fileBuffer, err := report.GenerateXLSX(entries)
	if err != nil {
		return "", fmt.Errorf("ساخت فایل ناموفق بود: %w", err)
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("khabarchin_%s.xlsx", time.Now().Format("2006-01-02")),
		Bytes: fileBuffer.Bytes(),
	})
	doc.ReplyToMessageID = msg.MessageID
	if _, err := bot.api.Send(doc); err != nil {
		return "", fmt.Errorf("ارسال فایل ناموفق بود: %w", err)
	}

	return "", nil
}

func (bot *Bot) AddUser(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("شناسه کاربر را وارد کنید")
	}

	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return "", errors.New("شناسه کاربر نامعتبر است")
	}

	for _, allowedID := range bot.conf.Telegram.AllowedUserIDs {
		if id == allowedID {
			return "این کاربر از قبل در فهرست مجاز است.", nil
		}
	}

	bot.conf.Telegram.AllowedUserIDs = append(bot.conf.Telegram.AllowedUserIDs, id)
	bot.conf.Update()

	return "کاربر با موفقیت اضافه شد.", nil
}

func (bot *Bot) RemoveUser(msg *tgbotapi.Message, args string) (string, error) {
	if args == "" {
		return "", errors.New("شناسه کاربر را وارد کنید")
	}

	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return "", errors.New("شناسه کاربر نامعتبر است")
	}

	found := false
	kept := []int64{}
	for _, allowedID := range bot.conf.Telegram.AllowedUserIDs {
		if allowedID == id {
			found = true
			continue
		}
		kept = append(kept, allowedID)
	}

	if !found {
		return "", errors.New("کاربر در فهرست مجاز نیست")
	}

	bot.conf.Telegram.AllowedUserIDs = kept
	bot.conf.Update()

	return "دسترسی کاربر گرفته شد.", nil
}

func (bot *Bot) TogglePublicity(msg *tgbotapi.Message, args string) (string, error) {
	if bot.conf.Telegram.Public {
		bot.conf.Telegram.Public = false
		bot.conf.Update()
		return "دسترسی به ربات از این پس فقط برای کاربران مجاز است.", nil
	} else {
		bot.conf.Telegram.Public = true
		bot.conf.Update()
		return "دسترسی به ربات برای همه باز شد.", nil
	}
}

// Dispatch runs a named command on behalf of the web dashboard.
func (bot *Bot) Dispatch(name, args string) (string, error) {
	command := bot.CommandByName(name)
	if command == nil {
		return "", errors.New("دستور ناشناخته")
	}
	return command.Call(nil, strings.TrimSpace(args))
}

// CommandList exposes command metadata, the dashboard renders it as its
// console help.
func (bot *Bot) CommandList() []Command {
	out := make([]Command, len(bot.commands))
	copy(out, bot.commands)
	return out
}
