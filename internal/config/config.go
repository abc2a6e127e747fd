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

package config

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"khabarchin/internal/classify"
	"khabarchin/internal/publish"
	"khabarchin/internal/queue"
	"khabarchin/internal/relevance"
	"khabarchin/internal/report"
	"khabarchin/internal/scorer"
)

var CONFIG_PATH string = ""

// Secrets may come from the environment instead of the file; .env works
// too, cmd loads it before reading the config.
const (
	EnvToken       = "KHABARCHIN_TG_TOKEN"
	EnvWebPassword = "KHABARCHIN_WEB_PASSWORD"
	EnvJWTSecret   = "KHABARCHIN_JWT_SECRET"
)

type TelegramConf struct {
	ApiToken       string   `json:"api_token"`
	Public         bool     `json:"is_public"`
	AllowedUserIDs []int64  `json:"allowed_user_ids"`
	ApprovalChatID int64    `json:"approval_chat_id"`
	TargetChannel  string   `json:"target_channel"`
	Channels       []string `json:"channels"`
}

type PipelineConf struct {
	PollSeconds          uint `json:"poll_seconds"`
	BatchLimit           int  `json:"batch_limit"`
	MinMessageLength     int  `json:"min_message_length"`
	MinSegmentLength     int  `json:"min_segment_length"`
	MinRelevance         int  `json:"min_relevance"`
	MaxCandidateAgeHours uint `json:"max_candidate_age_hours"`
	SeenRetentionDays    uint `json:"seen_retention_days"`
	SweepMinutes         uint `json:"sweep_minutes"`
	FetchLinks           bool `json:"fetch_links"`
	MaxContentSize       int  `json:"max_content_size"`
}

type OllamaConf struct {
	Enabled   bool          `json:"enabled"`
	Scorer    scorer.Config `json:"scorer"`
	ApproveAt int           `json:"approve_at"`
	RejectAt  int           `json:"reject_at"`
}

type SheetsConf struct {
	PushToGoogleSheet bool                `json:"push_to_google_sheet"`
	Google            report.SheetsConfig `json:"google"`
}

type WebConf struct {
	Enabled   bool   `json:"enabled"`
	Address   string `json:"address"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	JWTSecret string `json:"jwt_secret"`
	StaticDir string `json:"static_dir"`
}

type StoreConf struct {
	File string `json:"file"`
}

type DBConf struct {
	File string `json:"file"`
}

// Keyword overrides; nil sections run on the built-in tables.
type KeywordsConf struct {
	Classifier *classify.Keywords  `json:"classifier,omitempty"`
	Relevance  *relevance.Taxonomy `json:"relevance,omitempty"`
}

type Config struct {
	Telegram TelegramConf   `json:"telegram"`
	Pipeline PipelineConf   `json:"pipeline"`
	Queue    queue.Config   `json:"queue"`
	Publish  publish.Config `json:"publish"`
	Ollama   OllamaConf     `json:"ollama"`
	Sheets   SheetsConf     `json:"sheets"`
	Web      WebConf        `json:"web"`
	Store    StoreConf      `json:"store"`
	DB       DBConf         `json:"database"`
	Keywords KeywordsConf   `json:"keywords"`
	LogsFile string         `json:"logs_file"`
	Debug    bool           `json:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConf{
			ApiToken:       "tg_api_token",
			Public:         false,
			AllowedUserIDs: []int64{},
			ApprovalChatID: 0,
			TargetChannel:  "@my_news_channel",
			Channels:       []string{},
		},
		Pipeline: PipelineConf{
			PollSeconds:          30,
			BatchLimit:           50,
			MinMessageLength:     30,
			MinSegmentLength:     20,
			MinRelevance:         relevance.DefaultMinScore,
			MaxCandidateAgeHours: 24,
			SeenRetentionDays:    7,
			SweepMinutes:         30,
			FetchLinks:           false,
			MaxContentSize:       8000,
		},
		Queue:   queue.DefaultConfig(),
		Publish: publish.DefaultConfig(),
		Ollama: OllamaConf{
			Enabled:   false,
			Scorer:    scorer.DefaultConfig(),
			ApproveAt: 85,
			RejectAt:  20,
		},
		Sheets: SheetsConf{
			PushToGoogleSheet: false,
			Google: report.SheetsConfig{
				CredentialsFile: "secret.json",
				SpreadsheetID:   "spreadsheet_id",
				SheetName:       "Sheet 1",
			},
		},
		Web: WebConf{
			Enabled:   false,
			Address:   ":8080",
			Username:  "admin",
			Password:  "",
			JWTSecret: "",
			StaticDir: "web",
		},
		Store:    StoreConf{File: "pending.json"},
		DB:       DBConf{File: "khabarchin.sqlite3"},
		LogsFile: "khabarchin.log",
		Debug:    false,
	}
}

func (conf *Config) Save(filepath string) error {
	file, err := os.OpenFile(filepath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.ModePerm)
	if err != nil {
		return err
	}
	defer file.Close()

	// Credentials never land in the file
	c := *conf
	c.Sheets.Google.CredentialsJSON = nil

	jsonBytes, err := json.MarshalIndent(&c, "", "\t")
	if err != nil {
		return err
	}

	_, err = file.Write(jsonBytes)

	CONFIG_PATH = filepath

	return err
}

func ConfigFrom(filepath string) (*Config, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var conf Config
	err = json.Unmarshal(contents, &conf)
	if err != nil {
		return nil, err
	}

	conf.applyEnv()

	CONFIG_PATH = filepath

	return &conf, nil
}

// Update rewrites the config file the bot was started with.
func (conf *Config) Update() error {
	if CONFIG_PATH == "" {
		return errors.New("config file path unknown")
	}

	return conf.Save(CONFIG_PATH)
}

func (conf *Config) applyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		conf.Telegram.ApiToken = v
	}
	if v := os.Getenv(EnvWebPassword); v != "" {
		conf.Web.Password = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		conf.Web.JWTSecret = v
	}
}

// ClassifierKeywords returns the configured tables or the defaults.
func (conf *Config) ClassifierKeywords() classify.Keywords {
	if conf.Keywords.Classifier != nil {
		return *conf.Keywords.Classifier
	}
	return classify.DefaultKeywords()
}

// RelevanceTaxonomy returns the configured tables or the defaults.
func (conf *Config) RelevanceTaxonomy() relevance.Taxonomy {
	if conf.Keywords.Relevance != nil {
		return *conf.Keywords.Relevance
	}
	return relevance.DefaultTaxonomy()
}
