package cliapp

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// depTreeItem adapts a depTreeNode to bubbles/list's Item interface. Filtering
// uses list.Model's default FilterFunc, which fuzzy-matches FilterValue via
// github.com/sahilm/fuzzy — the same fuzzy-filterable list component the
// teacher's internal/ui/tui.go embeds as a placeholder for future flows,
// generalized here into an actual navigable view (SPEC_FULL.md §3
// "Interactive dependency-tree browser").
type depTreeItem struct {
	node depTreeNode
}

func (i depTreeItem) Title() string {
	label := i.node.Path
	if i.node.IsMain {
		label += " (main)"
	}
	return strings.Repeat("  ", i.node.Level) + label
}

func (i depTreeItem) Description() string {
	desc := i.node.URL
	if i.node.Revision != "" {
		desc += "@" + i.node.Revision
	}
	if i.node.ClonedInfo != "" {
		desc += " — " + i.node.ClonedInfo
	}
	return desc
}

func (i depTreeItem) FilterValue() string { return i.node.Path }

type depTreeModel struct {
	list    list.Model
	copied  string
	quitMsg string
}

func newDepTreeModel(nodes []depTreeNode) depTreeModel {
	items := make([]list.Item, len(nodes))
	for i, n := range nodes {
		items[i] = depTreeItem{node: n}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "gitws dep-tree"
	l.Styles.Title = lipgloss.NewStyle().Bold(true)
	return depTreeModel{list: l}
}

func (m depTreeModel) Init() tea.Cmd { return nil }

func (m depTreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "y":
			if item, ok := m.list.SelectedItem().(depTreeItem); ok {
				if err := clipboard.WriteAll(item.node.Path); err != nil {
					m.quitMsg = fmt.Sprintf("clipboard error: %v", err)
				} else {
					m.copied = item.node.Path
				}
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m depTreeModel) View() string {
	view := m.list.View()
	if m.copied != "" {
		view += fmt.Sprintf("\ncopied %s to clipboard\n", m.copied)
	}
	return view
}

// runDepTreeTUI blocks until the user quits (spec.md §6's CLI surface table
// treats `info dep-tree --interactive` as a thin rendering convenience over
// resolver.Result, never the sole way to read it).
func runDepTreeTUI(nodes []depTreeNode) error {
	p := tea.NewProgram(newDepTreeModel(nodes), tea.WithOutput(os.Stdout))
	_, err := p.Run()
	return err
}
