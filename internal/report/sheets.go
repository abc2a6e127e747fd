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

// Package report ships the publication log out of the bot: row-per-publish
// into a Google Sheet for the editors, XLSX snapshots of the archive for
// everyone else.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"khabarchin/internal/domain"
)

type SheetsConfig struct {
	CredentialsJSON []byte `json:"credentials"`
	CredentialsFile string `json:"credentials_file"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	SheetName       string `json:"sheet_name"`
}

type SheetsClient struct {
	service       *sheets.Service
	SpreadsheetID string
	SheetName     string
}

// NewSheetsClient authenticates with a service account.
func NewSheetsClient(ctx context.Context, conf SheetsConfig) (*SheetsClient, error) {
	config, err := google.JWTConfigFromJSON(
		conf.CredentialsJSON,
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("sheets jwt config: %w", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		service:       srv,
		SpreadsheetID: conf.SpreadsheetID,
		SheetName:     conf.SheetName,
	}, nil
}

func formatDate(date time.Time) string {
	return fmt.Sprintf("%d.%d.%d", date.Day(), date.Month(), date.Year())
}

// AddPublished appends one published candidate to the sheet.
func (gsc *SheetsClient) AddPublished(c domain.Candidate) error {
	values := []interface{}{
		formatDate(c.ResolvedAt),
		"@" + c.Channel,
		string(c.Category),
		c.Relevance,
		c.Priority,
		strings.Join(c.Topics, ";"),
		c.ResolvedBy,
		firstLine(c.Text),
	}

	row := &sheets.ValueRange{
		Values: [][]interface{}{values},
	}

	_, err := gsc.service.Spreadsheets.Values.Append(
		gsc.SpreadsheetID,
		gsc.SheetName+"!A:H",
		row,
	).ValueInputOption("USER_ENTERED").Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}

	return nil
}

// AddPublishedWithRetry backs off linearly between attempts; a flaky sheet
// must never block publishing itself.
func (gsc *SheetsClient) AddPublishedWithRetry(c domain.Candidate, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := gsc.AddPublished(c); err == nil {
			return nil
		} else {
			lastErr = err
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return lastErr
}

func firstLine(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	runes := []rune(line)
	if len(runes) > 120 {
		return string(runes[:120]) + "…"
	}
	return line
}
