package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mi-lab/backend/internal/client"
	"github.com/mi-lab/backend/internal/tui"
)

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8750", "Base URL of the session orchestrator")
	flag.Parse()

	m := tui.New(client.New(strings.TrimRight(*baseURL, "/")))
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
