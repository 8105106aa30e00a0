package bot

import (
	"fmt"
	"strings"
	"time"

	"stayhaven/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// calendar modes, carried in callback data
const (
	calSearchIn  = "in"
	calSearchOut = "out"
	calSelIn     = "sin"
	calSelOut    = "sout"
)

// GenerateCalendarKeyboard builds a Monday-first month grid. Days before
// minDay are shown disabled. Day buttons carry "cal:<mode>:YYYY-MM-DD".
func GenerateCalendarKeyboard(mode string, year int, month time.Month, minDay time.Time, allowSkip bool) tgbotapi.InlineKeyboardMarkup {
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	weekdayOffset := int(firstDay.Weekday())
	if weekdayOffset == 0 {
		weekdayOffset = 7
	}
	daysInMonth := daysIn(month, year)
	minDay = model.Day(minDay)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 9)

	prev := firstDay.AddDate(0, -1, 0)
	next := firstDay.AddDate(0, 1, 0)
	prevData := "noop"
	if !prev.AddDate(0, 1, -1).Before(minDay) {
		prevData = fmt.Sprintf("calnav:%s:%s", mode, prev.Format("2006-01"))
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("‹", prevData),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", month.String(), year), "noop"),
		tgbotapi.NewInlineKeyboardButtonData("›", fmt.Sprintf("calnav:%s:%s", mode, next.Format("2006-01"))),
	})

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, wd := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(wd, "noop"))
	}
	rows = append(rows, header)

	day := 1
	first := true
	for day <= daysInMonth {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for col := 1; col <= 7; col++ {
			if (first && col < weekdayOffset) || day > daysInMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
				continue
			}
			d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if d.Before(minDay) {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", "noop"))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("%d", day),
					fmt.Sprintf("cal:%s:%s", mode, d.Format("2006-01-02")),
				))
			}
			day++
		}
		first = false
		rows = append(rows, row)
	}

	if allowSkip {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Any dates", fmt.Sprintf("cal:%s:skip", mode)),
		})
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// parseCalendarData splits "cal:<mode>:<value>".
func parseCalendarData(data string) (mode, value string, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(data, "cal:"), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
