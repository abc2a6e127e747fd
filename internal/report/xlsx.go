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

package report

import (
	"bytes"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"khabarchin/internal/archive"
)

// GenerateXLSX renders archive entries into an in-memory workbook.
func GenerateXLSX(entries []archive.Entry) (*bytes.Buffer, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Resolved")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	headers := []string{
		"Created", "Resolved", "Channel", "Category", "Status",
		"Relevance", "Priority", "Resolved by", "Topics", "Text",
	}
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.Value = h
	}

	for _, e := range entries {
		row := sheet.AddRow()

		cell := row.AddCell()
		cell.SetDate(time.Unix(e.CreatedAt, 0))

		cell = row.AddCell()
		cell.SetDate(time.Unix(e.ResolvedAt, 0))

		cell = row.AddCell()
		cell.Value = "@" + e.Channel

		cell = row.AddCell()
		cell.Value = e.Category

		cell = row.AddCell()
		cell.Value = e.Status

		cell = row.AddCell()
		cell.SetInt64(int64(e.Relevance))

		cell = row.AddCell()
		cell.SetInt64(int64(e.Priority))

		cell = row.AddCell()
		cell.Value = e.ResolvedBy

		cell = row.AddCell()
		cell.Value = strings.Join(e.Topics, ";")

		cell = row.AddCell()
		cell.Value = e.Text
	}

	buf := new(bytes.Buffer)
	if err := file.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
