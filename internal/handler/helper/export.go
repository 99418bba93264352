package helper

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

var resultHeaders = []string{"Место", "Участник", "Пользователь", "Работа", "Лайки", "Результат"}

// QualificationLabel переводит состояние квалификации для выгрузки
func QualificationLabel(q entity.Qualification) string {
	switch q {
	case entity.QualificationQualified:
		return "Прошел"
	case entity.QualificationDisqualified:
		return "Выбыл"
	default:
		return "Не обработан"
	}
}

// SanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func SanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// SafeSheetName приводит имя листа к ограничениям Excel: не длиннее 31 символа и без : \ / ? * [ ]
func SafeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Results"
	}
	runes := []rune(name)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return string(runes)
}

// WriteResultsCSV пишет результаты раунда в CSV с BOM для корректного UTF-8 в Excel
func WriteResultsCSV(w io.Writer, items []entity.FeedEntry) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeaders); err != nil {
		return err
	}
	for i, e := range items {
		err := writer.Write([]string{
			strconv.Itoa(i + 1),
			e.ParticipantID,
			SanitizeForExcel(e.UserID),
			e.PostID,
			strconv.FormatInt(e.LikeCount, 10),
			QualificationLabel(e.Qualification),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteResultsXLSX пишет результаты раунда в Excel с использованием StreamWriter
func WriteResultsXLSX(w io.Writer, sheetName string, items []entity.FeedEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	headers := make([]interface{}, len(resultHeaders))
	for i, h := range resultHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	for i, e := range items {
		rowNum := i + 2 // 1 - заголовки
		row := []interface{}{
			i + 1,
			e.ParticipantID,
			SanitizeForExcel(e.UserID),
			e.PostID,
			e.LikeCount,
			QualificationLabel(e.Qualification),
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return f.Write(w)
}
