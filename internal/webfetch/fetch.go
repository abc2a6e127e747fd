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

// Package webfetch pulls readable text out of linked articles. Posts often
// carry a bare headline plus a link; the page body gives the relevance
// filter something to chew on. Extraction failing is never fatal, the
// pipeline just scores the post as-is.
package webfetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const (
	fetchTimeout   = 15 * time.Second
	minArticleText = 100
	DefaultMaxSize = 8000
)

var ErrProtected = errors.New("page behind bot protection")

type Fetcher struct {
	client  *http.Client
	maxSize int
	log     *zap.Logger
}

func New(maxSize int, log *zap.Logger) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	jar, _ := cookiejar.New(nil)
	return &Fetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				req.Header = via[0].Header.Clone()
				return nil
			},
		},
		maxSize: maxSize,
		log:     log,
	}
}

// Extract downloads the page and returns its readable text, capped at the
// configured size.
func (f *Fetcher) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	default:
		reader = resp.Body
	}

	body, err := io.ReadAll(io.LimitReader(reader, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		if !utf8.Valid(body) {
			return "", errors.New("binary response")
		}
	}

	if isProtectedPage(body) {
		return "", ErrProtected
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	// Readability first, it handles most news sites.
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil && len(article.TextContent) > minArticleText {
		return f.cap(article.TextContent), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return f.extractFromDocument(doc)
}

func setBrowserHeaders(req *http.Request) {
	headers := map[string]string{
		"User-Agent":                userAgents[rand.Intn(len(userAgents))],
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "fa-IR,fa;q=0.8,en-US;q=0.5,en;q=0.3",
		"Accept-Encoding":           "gzip, deflate",
		"Connection":                "keep-alive",
		"Referer":                   "https://www.google.com/",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; SM-S901B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36",
}

func isProtectedPage(body []byte) bool {
	s := string(body)
	return strings.Contains(s, "Cloudflare") ||
		strings.Contains(s, "DDoS protection") ||
		strings.Contains(s, "Checking your browser") ||
		(len(s) < 100 && strings.Contains(s, "<html"))
}

func (f *Fetcher) extractFromDocument(doc *goquery.Document) (string, error) {
	// Structured articles first.
	if section := doc.Find("article, main, .article, .post, .content"); section.Length() > 0 {
		content := strings.Join(strings.Fields(section.Text()), " ")
		if len(content) >= minArticleText {
			return f.cap(content), nil
		}
	}

	// Strip noise and take the largest text block.
	doc.Find("script, style, noscript, iframe, nav, footer").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	mainContent := ""
	doc.Find("p, div, article").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); len(text) > len(mainContent) {
			mainContent = text
		}
	})
	if len(mainContent) < 500 {
		mainContent = strings.TrimSpace(doc.Find("body").Text())
	}

	mainContent = strings.Join(strings.Fields(mainContent), " ")
	if len(mainContent) < minArticleText {
		return "", errors.New("not enough text on page")
	}
	return f.cap(mainContent), nil
}

func (f *Fetcher) cap(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= f.maxSize {
		return string(runes)
	}
	return string(runes[:f.maxSize])
}
