package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aims-sectors/internal/sector"
)

const (
	defaultListHeight = 18
	limitNotice       = "limit reached"
)

type rowKind int

const (
	categoryRow rowKind = iota
	sectorRow
	leafRow
)

type row struct {
	kind  rowKind
	code  string
	label string
}

// Model is a bubbletea model over a sector.Picker. Typing is routed to the
// query input while it is focused ("/" focuses, enter or esc leaves it).
// Otherwise space toggles the leaf under the cursor, x clears, enter
// confirms and esc cancels.
type Model struct {
	picker     *sector.Picker
	input      textinput.Model
	focused    bool
	rows       []row
	leafRows   []int // indexes into rows of selectable leaves
	cursor     int   // index into leafRows
	notice     string
	badges     int
	listHeight int
	title      string

	confirmed bool
	cancelled bool

	styles Styles
}

// Option configures a Model.
type Option func(*Model)

// WithTitle sets the header text.
func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// WithBadgeLimit caps how many selected labels the status line spells out.
func WithBadgeLimit(n int) Option {
	return func(m *Model) { m.badges = n }
}

// New creates a picker model showing p's current visible tree.
func New(p *sector.Picker, opts ...Option) Model {
	fi := textinput.New()
	fi.Placeholder = "Filter by code or name..."
	fi.CharLimit = 64
	fi.Width = 40
	fi.SetValue(p.Query())

	m := Model{
		picker:     p,
		input:      fi,
		badges:     2,
		listHeight: defaultListHeight,
		title:      "Sectors",
		styles:     DefaultStyles(),
	}
	for _, o := range opts {
		o(&m)
	}
	m.rebuild()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.listHeight = max(msg.Height-8, 3)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
		if m.focused {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.focused = false
		m.input.Blur()
		return m, nil
	case tea.KeyUp, tea.KeyDown:
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.picker.Query() {
		m.picker.SetQuery(m.input.Value())
		m.rebuild()
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "/":
		m.focused = true
		return m, m.input.Focus()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.leafRows)-1 {
			m.cursor++
		}
	case " ":
		if code, ok := m.Current(); ok {
			if m.picker.Toggle(code) == sector.LimitReached {
				m.notice = limitNotice
			}
		}
	case "x":
		m.picker.Clear()
	case "enter":
		m.confirmed = true
		return m, tea.Quit
	case "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// rebuild flattens the picker's visible tree and clamps the cursor.
func (m *Model) rebuild() {
	m.rows = make([]row, 0, len(m.rows))
	m.leafRows = make([]int, 0, len(m.leafRows))
	for _, cat := range m.picker.Visible() {
		m.rows = append(m.rows, row{kind: categoryRow, code: cat.Code, label: cat.Name})
		for _, sec := range cat.Sectors {
			m.rows = append(m.rows, row{kind: sectorRow, code: sec.Code, label: sec.Name})
			for _, leaf := range sec.Subsectors {
				m.leafRows = append(m.leafRows, len(m.rows))
				m.rows = append(m.rows, row{kind: leafRow, code: leaf.Code, label: leaf.Label()})
			}
		}
	}
	if m.cursor >= len(m.leafRows) {
		m.cursor = max(len(m.leafRows)-1, 0)
	}
}

// Current returns the code of the leaf under the cursor.
func (m Model) Current() (string, bool) {
	if len(m.leafRows) == 0 {
		return "", false
	}
	return m.rows[m.leafRows[m.cursor]].code, true
}

// Confirmed reports whether the user accepted the selection.
func (m Model) Confirmed() bool { return m.confirmed }

// Cancelled reports whether the user backed out.
func (m Model) Cancelled() bool { return m.cancelled }

// Notice returns the transient status message, if any.
func (m Model) Notice() string { return m.notice }

// View renders the picker.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render(" "+m.title+" ") + "\n\n")

	filter := m.styles.Filter
	if m.focused {
		filter = m.styles.Focused
	}
	sb.WriteString(filter.Render(m.input.View()) + "\n")

	if len(m.leafRows) == 0 {
		sb.WriteString(m.styles.Muted.Render("No sectors match.") + "\n")
	} else {
		start, end := m.window()
		for i := start; i < end; i++ {
			sb.WriteString(m.renderRow(i) + "\n")
		}
	}

	sb.WriteString("\n" + m.status())
	return sb.String()
}

// window picks the slice of rows to show so the cursor stays visible.
func (m Model) window() (int, int) {
	if len(m.rows) <= m.listHeight {
		return 0, len(m.rows)
	}
	cur := m.leafRows[m.cursor]
	start := max(cur-m.listHeight/2, 0)
	end := min(start+m.listHeight, len(m.rows))
	start = max(end-m.listHeight, 0)
	return start, end
}

func (m Model) renderRow(i int) string {
	r := m.rows[i]
	switch r.kind {
	case categoryRow:
		return m.styles.Category.Render(r.code + " " + r.label)
	case sectorRow:
		return m.styles.Sector.Render(r.code + " " + r.label)
	}

	box := "[ ]"
	if m.picker.IsSelected(r.code) {
		box = m.styles.Selected.Render("[x]")
	}
	line := box + " " + r.label
	if len(m.leafRows) > 0 && m.leafRows[m.cursor] == i {
		return m.styles.Cursor.Render("> " + line)
	}
	return m.styles.Leaf.Render("  " + line)
}

func (m Model) status() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d/%d selected", m.picker.Count(), m.picker.Max()))
	if summary := m.picker.Summary(m.badges); summary != "" {
		sb.WriteString(": " + summary)
	}
	if m.notice != "" {
		sb.WriteString("  " + m.styles.Notice.Render(m.notice))
	}
	sb.WriteString("\n" + m.styles.Muted.Render("/ filter · space toggle · x clear · enter confirm · esc cancel"))
	return sb.String()
}

// Run shows the picker full-screen and returns the final value and whether
// the user confirmed it.
func Run(ctx context.Context, p *sector.Picker, opts ...Option) ([]string, bool, error) {
	prog := tea.NewProgram(New(p, opts...), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return nil, false, eris.Wrap(err, "tui: run picker")
	}
	m, ok := final.(Model)
	if !ok {
		return nil, false, eris.New("tui: unexpected final model")
	}
	return p.Value(), m.Confirmed(), nil
}
