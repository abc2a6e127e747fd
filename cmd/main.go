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

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"khabarchin/internal/approval"
	"khabarchin/internal/archive"
	"khabarchin/internal/bot"
	"khabarchin/internal/classify"
	"khabarchin/internal/config"
	"khabarchin/internal/domain"
	"khabarchin/internal/logging"
	"khabarchin/internal/metrics"
	"khabarchin/internal/pipeline"
	"khabarchin/internal/publish"
	"khabarchin/internal/queue"
	"khabarchin/internal/relevance"
	"khabarchin/internal/report"
	"khabarchin/internal/scorer"
	"khabarchin/internal/segment"
	"khabarchin/internal/store"
	"khabarchin/internal/telegram"
	"khabarchin/internal/web"
	"khabarchin/internal/webfetch"
)

const CONFIG_NAME string = "config.json"

var (
	CONFIG *config.Config
)

func init() {
	// secrets may live in .env next to the binary
	godotenv.Load()

	var err error
	CONFIG, err = config.ConfigFrom(CONFIG_NAME)
	if err != nil {
		log.Println("could not open configuration file: " + err.Error() + ". Creating a new one...")
		CONFIG = config.DefaultConfig()
		err = CONFIG.Save(CONFIG_NAME)
		if err != nil {
			log.Panic("could not create a new configuration file: " + err.Error())
		}
		log.Println("edit " + CONFIG_NAME + " and start again")
		os.Exit(0)
	}

	if CONFIG.Sheets.PushToGoogleSheet {
		credentials, err := os.ReadFile(CONFIG.Sheets.Google.CredentialsFile)
		if err != nil {
			log.Panic(err)
		}
		CONFIG.Sheets.Google.CredentialsJSON = credentials
	}
}

// sheetsRecorder pushes published candidates to the online report, other
// resolutions only land in the local archive.
type sheetsRecorder struct {
	client *report.SheetsClient
}

func (r sheetsRecorder) Record(c domain.Candidate) error {
	if c.Status != domain.StatusPublished {
		return nil
	}
	return r.client.AddPublishedWithRetry(c, 3)
}

type multiRecorder []approval.Recorder

func (m multiRecorder) Record(c domain.Candidate) error {
	var firstErr error
	for _, r := range m {
		if err := r.Record(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func main() {
	logger, err := logging.New(CONFIG.LogsFile, CONFIG.Debug)
	if err != nil {
		log.Panic(err)
	}
	defer logger.Sync()

	met := metrics.New()

	st, err := store.Open(CONFIG.Store.File, logger)
	if err != nil {
		logger.Fatal("state store unavailable", zap.Error(err))
	}

	arch, err := archive.Open(CONFIG.DB.File)
	if err != nil {
		logger.Fatal("archive unavailable", zap.Error(err))
	}
	defer arch.Close()

	api, err := tgbotapi.NewBotAPI(CONFIG.Telegram.ApiToken)
	if err != nil {
		logger.Fatal("telegram authorization failed", zap.Error(err))
	}

	reader := telegram.NewReader(CONFIG.Telegram.Channels)
	sender := telegram.NewSender(api, CONFIG.Telegram.ApprovalChatID, logger)
	channel := telegram.NewChannelPublisher(api, CONFIG.Telegram.TargetChannel, logger)
	media := telegram.NewMediaFetcher(api, "")

	publisher := publish.New(channel, media, CONFIG.Publish, logger)

	rec := multiRecorder{arch}
	if CONFIG.Sheets.PushToGoogleSheet {
		sheet, err := report.NewSheetsClient(context.Background(), CONFIG.Sheets.Google)
		if err != nil {
			logger.Fatal("google sheets client failed", zap.Error(err))
		}
		rec = append(rec, sheetsRecorder{client: sheet})
	}

	machine := approval.NewMachine(st, publisher, rec, logger, met)

	var auto approval.Provider
	if scr, err := scorer.New(CONFIG.Ollama.Scorer); err != nil {
		logger.Warn("scorer unavailable, automatic decisions disabled", zap.Error(err))
	} else {
		auto = approval.NewAutoProvider(scr, CONFIG.Ollama.ApproveAt, CONFIG.Ollama.RejectAt, logger)
	}

	var provider approval.Provider = approval.HumanProvider{}
	if CONFIG.Ollama.Enabled && auto != nil {
		provider = auto
	}

	q := queue.New(CONFIG.Queue, pipeline.NewPromptSender(st, machine, sender), logger, met)

	fetcher := webfetch.New(CONFIG.Pipeline.MaxContentSize, logger)
	classifier := classify.New(CONFIG.ClassifierKeywords(), CONFIG.Pipeline.MinMessageLength)
	splitter := segment.NewSplitter(CONFIG.Pipeline.MinSegmentLength)
	filter := relevance.NewFilter(CONFIG.RelevanceTaxonomy(), CONFIG.Pipeline.MinRelevance)

	pipe := pipeline.New(
		pipeline.Config{
			PollInterval:  time.Duration(CONFIG.Pipeline.PollSeconds) * time.Second,
			SweepInterval: time.Duration(CONFIG.Pipeline.SweepMinutes) * time.Minute,
			BatchLimit:    CONFIG.Pipeline.BatchLimit,
			MaxAge:        time.Duration(CONFIG.Pipeline.MaxCandidateAgeHours) * time.Hour,
			SeenRetention: time.Duration(CONFIG.Pipeline.SeenRetentionDays) * 24 * time.Hour,
			FetchLinks:    CONFIG.Pipeline.FetchLinks,
		},
		reader, classifier, splitter, filter, st, machine, provider, q, fetcher, logger, met,
	)

	tgbot := bot.New(bot.Deps{
		API:     api,
		Conf:    CONFIG,
		Log:     logger,
		Reader:  reader,
		Store:   st,
		Archive: arch,
		Machine: machine,
		Pipe:    pipe,
		Queue:   q,
		Auto:    auto,
	})

	var webSrv *web.Server
	if CONFIG.Web.Enabled {
		if CONFIG.Web.JWTSecret == "" {
			CONFIG.Web.JWTSecret = uuid.NewString()
			logger.Warn("no jwt secret configured, dashboard sessions will not survive a restart")
		}

		infos := []web.CommandInfo{}
		for _, c := range tgbot.CommandList() {
			infos = append(infos, web.CommandInfo{
				Name:        c.Name,
				Description: c.Description,
				Example:     c.Example,
				Group:       c.Group,
			})
		}

		webSrv = web.NewServer(web.Deps{
			Conf:     CONFIG.Web,
			LogsFile: CONFIG.LogsFile,
			Log:      logger,
			Store:    st,
			Archive:  arch,
			Dispatch: tgbot.Dispatch,
			Commands: infos,
			Metrics:  met.Handler(),
		})
		machine.OnEvent(webSrv.HandleEvent)
		webSrv.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeDone := make(chan struct{})
	go func() {
		pipe.Run(ctx)
		close(pipeDone)
	}()

	tgbot.Run(ctx)
	<-pipeDone

	// stop producing, let the in-flight prompt finish, persist state
	q.Stop()
	if webSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		webSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := st.Flush(); err != nil {
		logger.Error("final state flush failed", zap.Error(err))
	}

	logger.Info("shut down cleanly")
}
