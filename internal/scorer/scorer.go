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

// Package scorer asks a local ollama model to rate candidates 0..100 for
// the automated decision provider. The ollama host comes from the
// OLLAMA_HOST environment, same as the ollama CLI.
package scorer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const TemplateText = "{{TEXT}}"

// DefaultPrompt asks for a bare number so parsing stays trivial.
const DefaultPrompt = "به متن خبری زیر از ۰ تا ۱۰۰ امتیاز بده که چقدر برای انتشار در یک کانال اخبار جنگ و بازار ارز مهم و قابل اعتماد است. فقط عدد را بنویس.\n\nمتن:\n" + TemplateText

type Config struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	TimeoutSeconds uint   `json:"timeout_seconds"`
}

func DefaultConfig() Config {
	return Config{
		Model:          "partai/dorna-llama3:latest",
		Prompt:         DefaultPrompt,
		TimeoutSeconds: 120,
	}
}

type Scorer struct {
	client *ollama.Client
	cfg    Config
}

func New(cfg Config) (*Scorer, error) {
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, err
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 120
	}
	return &Scorer{client: client, cfg: cfg}, nil
}

// Score rates one text. The model's reply may ramble; the first number in
// it wins, Persian digits included.
func (s *Scorer) Score(ctx context.Context, text string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	prompt := strings.ReplaceAll(s.cfg.Prompt, TemplateText, text)

	var response strings.Builder
	err := s.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  s.cfg.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return ParseScore(removeThinkBlock(response.String()))
}

var numberRe = regexp.MustCompile(`\d{1,3}`)

// ParseScore extracts the 0..100 rating from a model reply.
func ParseScore(reply string) (int, error) {
	normalized := asciiDigits(reply)
	raw := numberRe.FindString(normalized)
	if raw == "" {
		return 0, fmt.Errorf("no score in model reply %q", clipReply(reply))
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n > 100 {
		return 0, fmt.Errorf("score %d out of range", n)
	}
	return n, nil
}

func removeThinkBlock(input string) string {
	re := regexp.MustCompile(`(?s)<think>.*?</think>`)
	return strings.TrimSpace(re.ReplaceAllString(input, ""))
}

// asciiDigits folds Persian and Arabic-Indic digits into ASCII.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

func clipReply(s string) string {
	runes := []rune(s)
	if len(runes) > 80 {
		return string(runes[:80]) + "…"
	}
	return s
}
