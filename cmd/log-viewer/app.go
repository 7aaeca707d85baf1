package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/ads-loiter/internal/dailylog"
)

// Viewer browses recorded loitering flights by day.
type Viewer struct {
	source  entrySource
	refresh time.Duration

	tviewApp *tview.Application
	days     *tview.List
	entries  *tview.Table
	details  *tview.TextView
	messages *Messages
	root     *tview.Flex

	mu          sync.Mutex
	currentDay  string
	current     []dailylog.Entry
	focusOnDays bool
	stopChan    chan struct{}
}

// NewViewer builds the UI. A zero refresh disables periodic reloads.
func NewViewer(source entrySource, refresh time.Duration) *Viewer {
	v := &Viewer{
		source:      source,
		refresh:     refresh,
		focusOnDays: true,
		stopChan:    make(chan struct{}),
	}
	v.setupUI()
	return v
}

func (v *Viewer) setupUI() {
	v.tviewApp = tview.NewApplication()

	v.days = tview.NewList().ShowSecondaryText(true)
	v.days.SetBorder(true).SetTitle(" Days ")
	v.days.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		v.showDay(mainText)
	})

	v.entries = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	v.entries.SetBorder(true).SetTitle(" Flights ")
	v.entries.SetSelectionChangedFunc(func(row, column int) {
		v.showDetails(row - 1)
	})

	v.details = tview.NewTextView().SetDynamicColors(true)
	v.details.SetBorder(true).SetTitle(" Entry ")

	v.messages = NewMessages(50)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.entries, 0, 3, false).
		AddItem(v.details, 7, 0, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(v.days, 18, 0, true).
		AddItem(right, 0, 1, false)

	v.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(v.messages.View(), 6, 0, false)

	v.tviewApp.SetRoot(v.root, true)
	v.tviewApp.SetInputCapture(v.handleKeyboard)
}

// Run loads the data and blocks until the user quits.
func (v *Viewer) Run() error {
	v.reload()

	if v.refresh > 0 {
		go v.refreshLoop()
	}
	defer close(v.stopChan)

	return v.tviewApp.Run()
}

func (v *Viewer) refreshLoop() {
	ticker := time.NewTicker(v.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-v.stopChan:
			return
		case <-ticker.C:
			v.tviewApp.QueueUpdateDraw(v.reload)
		}
	}
}

// reload re-reads the day list and keeps the current day selected when it still exists.
func (v *Viewer) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	days, err := v.source.Days(ctx)
	if err != nil {
		v.messages.Error("Failed to read %s: %v", v.source.Name(), err)
		return
	}

	v.mu.Lock()
	keep := v.currentDay
	v.mu.Unlock()

	v.days.Clear()
	selected := 0
	for i, d := range days {
		if d == keep {
			selected = i
		}
		v.days.AddItem(d, weekday(d), 0, nil)
	}

	if len(days) == 0 {
		v.showDay("")
		v.messages.Info("No loitering flights recorded in %s", v.source.Name())
		return
	}

	v.days.SetCurrentItem(selected)
	v.showDay(days[selected])
	v.messages.Info("Loaded %d day(s) from %s", len(days), v.source.Name())
}

// showDay fills the flights table for day.
func (v *Viewer) showDay(day string) {
	var entries []dailylog.Entry
	if day != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		entries, err = v.source.EntriesOn(ctx, day)
		if err != nil {
			v.messages.Error("Failed to read %s: %v", day, err)
			return
		}
	}

	v.mu.Lock()
	v.currentDay = day
	v.current = entries
	v.mu.Unlock()

	v.entries.Clear()
	for col, title := range []string{"Time", "Callsign", "Model", "Owner"} {
		v.entries.SetCell(0, col, tview.NewTableCell(title).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, e := range entries {
		row := i + 1
		v.entries.SetCell(row, 0, tview.NewTableCell(e.Date.Format("15:04")).SetTextColor(tcell.ColorGray))
		v.entries.SetCell(row, 1, tview.NewTableCell(e.Callsign).SetTextColor(tcell.ColorWhite))
		v.entries.SetCell(row, 2, tview.NewTableCell(e.Model).SetExpansion(1))
		v.entries.SetCell(row, 3, tview.NewTableCell(e.Owner).SetExpansion(1))
	}
	v.entries.SetTitle(fmt.Sprintf(" Flights %s (%d) ", day, len(entries)))

	if len(entries) > 0 {
		v.entries.Select(1, 0)
	}
	v.showDetails(0)
}

// showDetails prints the raw log entry for the i-th flight of the current day.
func (v *Viewer) showDetails(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if i < 0 || i >= len(v.current) {
		v.details.SetText("[gray]No flight selected[-]")
		return
	}
	e := v.current[i]
	v.details.SetText(fmt.Sprintf("[yellow]Owner:[-] %s\n[yellow]Callsign:[-] %s\n[yellow]Model:[-] %s\n[yellow]Date:[-] %s",
		tview.Escape(e.Owner), tview.Escape(e.Callsign), tview.Escape(e.Model), e.Date.Format(dailylog.DateLayout)))
}

func (v *Viewer) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	key := event.Key()
	r := event.Rune()

	switch {
	case key == tcell.KeyEscape || r == 'q':
		v.tviewApp.Stop()
		return nil
	case key == tcell.KeyTab:
		v.toggleFocus()
		return nil
	case r == 'r':
		v.reload()
		return nil
	}
	return event
}

func (v *Viewer) toggleFocus() {
	v.focusOnDays = !v.focusOnDays
	if v.focusOnDays {
		v.tviewApp.SetFocus(v.days)
	} else {
		v.tviewApp.SetFocus(v.entries)
	}
}

// weekday labels a YYYY-MM-DD day, or returns "" when it does not parse.
func weekday(day string) string {
	t, err := time.Parse(dailylog.DayLayout, day)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}
