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

package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"khabarchin/internal/domain"
)

// MediaFetcher downloads Telegram-hosted files into a scratch directory.
// The publisher removes them after its cooldown.
type MediaFetcher struct {
	api    *tgbotapi.BotAPI
	dir    string
	client *http.Client
}

func NewMediaFetcher(api *tgbotapi.BotAPI, dir string) *MediaFetcher {
	if dir == "" {
		dir = os.TempDir()
	}
	return &MediaFetcher{
		api:    api,
		dir:    dir,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (f *MediaFetcher) Fetch(ctx context.Context, ref domain.MediaRef) (string, error) {
	file, err := f.api.GetFile(tgbotapi.FileConfig{FileID: ref.FileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(f.api.Token), nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	name := uuid.New().String()
	if ext := filepath.Ext(file.FilePath); ext != "" {
		name += ext
	}
	path := filepath.Join(f.dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write media: %w", err)
	}
	return path, nil
}
