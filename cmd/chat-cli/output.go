package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/ydkdan6/poly-com-ai/internal/chat"
	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/portal"
)

var (
	userColor      = color.New(color.Bold)
	assistantColor = color.New(color.FgCyan)
	promptColor    = color.New(color.FgGreen, color.Bold)
	titleColor     = color.New(color.FgGreen)
	warnColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
	okColor        = color.New(color.FgGreen)
)

const width = 72

func title(text string) {
	text = "  " + text + "  "
	left := (width - len(text)) / 2
	if left < 0 {
		left = 0
	}
	right := width - len(text) - left
	if right < 0 {
		right = 0
	}
	titleColor.Println(strings.Repeat("-", left) + text + strings.Repeat("-", right))
}

func printMessage(m chat.Message) {
	stamp := m.Timestamp.Format("15:04")
	if m.Role == models.RoleUser {
		userColor.Printf("[%s] you: %s\n", stamp, m.Content)
		return
	}
	assistantColor.Printf("[%s] assistant: ", stamp)
	fmt.Println(m.Content)
}

func showNotice(n portal.Notice) {
	if n.Error {
		errorColor.Printf("%s: %s\n", n.Title, n.Text)
		return
	}
	okColor.Printf("%s %s\n", n.Title, n.Text)
}
