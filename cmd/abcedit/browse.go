package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gemforce-team/abcedit/editor"
	"github.com/gemforce-team/abcedit/listing"
)

var browseTag int

var browseCmd = &cobra.Command{
	Use:   "browse <file>",
	Short: "Browse the listing of a document in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().IntVar(&browseTag, "abc", 0, "Which DoABC tag of a movie to browse")
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateLoading modelState = iota
	stateSelectFile
	stateViewFile
)

// fileItem adapts a listing file to the list widget.
type fileItem listing.File

func (f fileItem) Title() string       { return f.Name }
func (f fileItem) Description() string { return fmt.Sprintf("%d lines", strings.Count(f.Content, "\n")) }
func (f fileItem) FilterValue() string { return f.Name }

type browseModel struct {
	err   error
	doc   *editor.Document
	name  string
	jobID string
	files list.Model
	view  viewport.Model
	open  string
	state modelState

	width, height int
}

type decodedMsg struct {
	result editor.Result
	err    error
}

func newBrowseModel(name string, doc *editor.Document) *browseModel {
	files := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	files.Title = "Listing files"
	files.SetShowHelp(false)
	return &browseModel{
		doc:   doc,
		name:  name,
		files: files,
		view:  viewport.New(0, 0),
		state: stateLoading,
	}
}

func (m *browseModel) Init() tea.Cmd {
	id, err := m.doc.DecodeAsync()
	if err != nil {
		return func() tea.Msg { return decodedMsg{err: err} }
	}
	m.jobID = id
	return m.waitDecode
}

// waitDecode runs off the UI goroutine until the background decode is done.
func (m *browseModel) waitDecode() tea.Msg {
	if err := m.doc.Wait(context.Background()); err != nil {
		return decodedMsg{err: err}
	}
	r, ok := m.doc.Poll()
	if !ok {
		return decodedMsg{err: fmt.Errorf("decode job %s produced no result", m.jobID)}
	}
	return decodedMsg{result: r}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.files.SetSize(msg.Width, msg.Height-2)
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 3
		return m, nil

	case decodedMsg:
		if msg.err == nil {
			msg.err = msg.result.Err
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		files, err := m.doc.Listing()
		if err != nil {
			m.err = err
			return m, nil
		}
		items := make([]list.Item, len(files))
		for i, f := range files {
			items[i] = fileItem(f)
		}
		m.state = stateSelectFile
		return m, m.files.SetItems(items)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.state {
		case stateLoading:
			if msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil

		case stateSelectFile:
			if m.files.FilterState() == list.Filtering {
				break
			}
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "enter":
				if f, ok := m.files.SelectedItem().(fileItem); ok {
					m.open = f.Name
					m.view.SetContent(highlight(f.Content))
					m.view.GotoTop()
					m.state = stateViewFile
				}
				return m, nil
			}

		case stateViewFile:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "esc", "backspace":
				m.state = stateSelectFile
				return m, nil
			}
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}
	}

	if m.state == stateSelectFile {
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("abcedit"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n")

	switch m.state {
	case stateLoading:
		b.WriteString("\nDecoding...")

	case stateSelectFile:
		b.WriteString(m.files.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • / filter • enter open • q quit"))

	case stateViewFile:
		b.WriteString(headerStyle.Render(m.open))
		b.WriteString("\n")
		b.WriteString(m.view.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓ scroll • esc back • q quit", m.view.ScrollPercent()*100)))
	}
	return b.String()
}

// highlight colours labels, decode errors and block keywords of a listing.
func highlight(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "; error:"):
			lines[i] = errorStyle.Render(line)
		case strings.HasPrefix(trimmed, "L") && strings.HasSuffix(trimmed, ":"):
			lines[i] = labelStyle.Render(line)
		case strings.HasPrefix(trimmed, "end ;"),
			trimmed == "method", trimmed == "body", trimmed == "code",
			strings.HasPrefix(trimmed, "class"), strings.HasPrefix(trimmed, "script"):
			lines[i] = headerStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("browse needs a terminal; use dump to write listings to files")
	}
	inputs, err := readInputs(args[0])
	if err != nil {
		return err
	}
	if browseTag < 0 || browseTag >= len(inputs) {
		return fmt.Errorf("%s has %d documents, --abc %d is out of range", args[0], len(inputs), browseTag)
	}
	in := inputs[browseTag]

	p := tea.NewProgram(newBrowseModel(in.name, editor.Open(in.data, documentOptions()...)), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
