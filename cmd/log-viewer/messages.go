package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// Level is the severity of a status message.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

type message struct {
	Time  time.Time
	Level Level
	Text  string
}

// Messages is the status panel at the bottom of the viewer.
type Messages struct {
	textView *tview.TextView
	messages []message
	max      int
	mu       sync.Mutex
}

// NewMessages creates a panel keeping the last max messages.
func NewMessages(max int) *Messages {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(max)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &Messages{textView: tv, max: max}
}

func (m *Messages) View() tview.Primitive {
	return m.textView
}

func (m *Messages) Add(level Level, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, message{Time: time.Now(), Level: level, Text: fmt.Sprintf(format, args...)})
	if len(m.messages) > m.max {
		m.messages = m.messages[len(m.messages)-m.max:]
	}
	m.refresh()
}

func (m *Messages) Info(format string, args ...interface{})  { m.Add(LevelInfo, format, args...) }
func (m *Messages) Warn(format string, args ...interface{})  { m.Add(LevelWarn, format, args...) }
func (m *Messages) Error(format string, args ...interface{}) { m.Add(LevelError, format, args...) }

// Last returns the newest message text, or "" when there is none.
func (m *Messages) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1].Text
}

func (m *Messages) refresh() {
	m.textView.Clear()
	for _, msg := range m.messages {
		fmt.Fprintf(m.textView, "[gray]%s[-] [%s]%-5s[-] %s\n",
			msg.Time.Format("15:04:05"), levelColor(msg.Level), msg.Level, tview.Escape(msg.Text))
	}
	m.textView.ScrollToEnd()
}

func levelColor(level Level) string {
	switch level {
	case LevelWarn:
		return "yellow"
	case LevelError:
		return "red"
	default:
		return "white"
	}
}
