package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"ritedump/internal/config"
	"ritedump/internal/disasm"
	"ritedump/internal/ritedump/log"
	"ritedump/internal/ritedump/styles"
	"ritedump/internal/ui/colorize"
)

type viewMode int

const (
	viewInfo viewMode = iota
	viewRecords
	viewListing
)

// recordItem is one record in the browser list.
type recordItem struct {
	block      disasm.Block
	diags      int
	filterTerm string
}

func newRecordItem(b disasm.Block) recordItem {
	terms := []string{b.Label}
	for _, s := range b.Record.Syms {
		if !s.Null {
			terms = append(terms, s.Name)
		}
	}
	return recordItem{block: b, diags: len(b.Insts.Diags()), filterTerm: strings.Join(terms, " ")}
}

func (i recordItem) Title() string       { return i.block.Label }
func (i recordItem) Description() string { return "" }
func (i recordItem) FilterValue() string { return i.filterTerm }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(recordItem)
	if !ok {
		return
	}

	var labelStyle lipgloss.Style
	indicator := " "
	if index == m.Index() {
		indicator = ">"
		labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	} else {
		labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	}
	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	rec := i.block.Record
	str := fmt.Sprintf(" %s  %s  %s",
		indicator,
		labelStyle.Render(i.block.Label),
		countStyle.Render(fmt.Sprintf("%d insts, %d regs", len(rec.Code), rec.NRegs)))
	if i.diags > 0 {
		str += "  " + errStyle.Render(fmt.Sprintf("%d errors", i.diags))
	}
	fmt.Fprint(w, str)
}

type model struct {
	ctx      context.Context
	path     string
	settings *config.Config

	viewport viewport.Model // info report
	records  list.Model
	listing  viewport.Model
	spinner  spinner.Model
	mode     viewMode

	loaded  *loaded
	blocks  []disasm.Block
	err     error
	loading bool
	width   int
	height  int
}

type decodedMsg struct {
	loaded *loaded
	blocks []disasm.Block
	err    error
}

// decodeCmd loads and renders the image off the UI goroutine.
func decodeCmd(ctx context.Context, path string, s *config.Config) tea.Cmd {
	return func() (msg tea.Msg) {
		defer log.RecoverPanic("tui.decode", func() {
			msg = decodedMsg{err: fmt.Errorf("decoding %s panicked", path)}
		})

		l, err := load(path, s)
		if err != nil {
			return decodedMsg{err: err}
		}
		var blocks []disasm.Block
		for _, irep := range l.file.Ireps() {
			bs, err := disasm.WalkParallel(ctx, l.file.Revision, irep, l.file.LocalsFor(irep), s.Parallel)
			if err != nil {
				return decodedMsg{err: err}
			}
			blocks = append(blocks, bs...)
		}
		return decodedMsg{loaded: l, blocks: blocks}
	}
}

func newModel(ctx context.Context, path string, s *config.Config) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	lvp := viewport.New()
	lvp.SetWidth(80)
	lvp.SetHeight(24)

	records := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	records.SetShowStatusBar(false)
	records.SetFilteringEnabled(true)
	records.Title = "Records"
	records.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	records.SetShowHelp(true)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	m := model{
		ctx:      ctx,
		path:     path,
		settings: s,
		viewport: vp,
		records:  records,
		listing:  lvp,
		spinner:  sp,
		mode:     viewInfo,
		loading:  true,
		width:    80,
		height:   24,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		decodeCmd(m.ctx, m.path, m.settings),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case decodedMsg:
		m.loading = false
		m.loaded, m.blocks, m.err = msg.loaded, msg.blocks, msg.err
		items := make([]list.Item, len(m.blocks))
		for i, b := range m.blocks {
			items[i] = newRecordItem(b)
		}
		cmd = m.records.SetItems(items)
		m.updateContent()
		if len(m.blocks) > 0 {
			m.showListing(m.blocks[0])
		}
		return m, cmd

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			m.updateContent()
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.records.SetWidth(msg.Width)
			m.records.SetHeight(msg.Height - 2)
			m.listing.SetWidth(msg.Width)
			m.listing.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		if m.mode == viewRecords && m.records.FilterState() == list.Filtering {
			if k := msg.String(); k == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "i":
			m.mode = viewInfo
			return m, nil
		case "r":
			if len(m.blocks) > 0 {
				m.mode = viewRecords
			}
			return m, nil
		case "l":
			if len(m.blocks) > 0 {
				m.mode = viewListing
			}
			return m, nil
		case "enter":
			if m.mode == viewRecords {
				if item, ok := m.records.SelectedItem().(recordItem); ok {
					m.showListing(item.block)
					m.mode = viewListing
				}
			}
			return m, nil
		case "tab":
			if len(m.blocks) > 0 {
				m.mode = (m.mode + 1) % 3
			}
			return m, nil
		case "shift+tab":
			if len(m.blocks) > 0 {
				m.mode = (m.mode + 2) % 3
			}
			return m, nil
		}
	}

	switch m.mode {
	case viewRecords:
		m.records, cmd = m.records.Update(msg)
	case viewListing:
		m.listing, cmd = m.listing.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content string
	switch m.mode {
	case viewRecords:
		content = m.records.View()
	case viewListing:
		content = m.listing.View()
	default:
		content = m.viewport.View()
	}

	var menu string
	switch {
	case len(m.blocks) == 0:
		menu = " Q: quit "
	case m.mode == viewRecords:
		menu = " Enter: view listing • I: info • L: listing • Tab: cycle • Q: quit "
	case m.mode == viewListing:
		menu = " I: info • R: records • Tab: cycle • Q: quit "
	default:
		menu = " R: records • L: listing • Tab: cycle • Q: quit "
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

// showListing fills the listing viewport with one record's block.
func (m *model) showListing(b disasm.Block) {
	lines := b.Lines()
	for i, l := range lines {
		lines[i] = colorize.Line(l)
	}
	m.listing.SetContent(strings.Join(lines, "\n"))
	m.listing.GotoTop()
}

func (m *model) updateContent() {
	var markdown string
	switch {
	case m.loading:
		markdown = fmt.Sprintf("# ritedump\n\n```\n; %s\n```\n\n%s Decoding...", m.path, m.spinner.View())
	case m.err != nil:
		markdown = fmt.Sprintf("# ritedump\n\n```\n; %s\n\nError: %v\n```", m.path, m.err)
	default:
		markdown = infoMarkdown(m.loaded)
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	renderer, err := styles.MarkdownRenderer(width - 2)
	if err != nil {
		m.viewport.SetContent(markdown)
		return
	}
	rendered, _ := renderer.Render(markdown)
	m.viewport.SetContent(strings.TrimSuffix(rendered, "\n"))
}
