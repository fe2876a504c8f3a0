package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/geom"
	"github.com/matzehuels/mindmap/pkg/interaction"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
)

const (
	panStep    = 80.0
	nudgeStep  = 20.0
	zoomStep   = 0.1
	fitPadding = 20.0
	detailRows = 8
)

var (
	statusBarStyle = lipgloss.NewStyle().Foreground(colorGray)
	statusMsgStyle = lipgloss.NewStyle().Foreground(colorCyan)
	detailStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true).BorderForeground(colorDim)
)

var directionCycle = []layout.Direction{layout.LeftToRight, layout.TopToBottom, layout.RightToLeft, layout.BottomToTop}

type viewerMode int

const (
	modeBrowse viewerMode = iota
	modeAsk
	modeRename
	modeSearch
)

// answerMsg carries the result of a background answer request.
type answerMsg struct {
	id   string
	text string
	err  error
}

// ViewerModel is the bubbletea model for exploring a diagram. Bubbletea
// runs Update on a single goroutine, which owns the diagram; answers are
// fetched by commands and applied when their message arrives.
type ViewerModel struct {
	d     *diagram.Diagram
	st    *diagram.RenderState
	ctx   context.Context
	asker source.Asker
	save  func(*diagram.Diagram) error

	width, height int
	fitted        bool
	mode          viewerMode
	input         textinput.Model
	showDetail    bool
	md            *glamour.TermRenderer
	mdCache       map[string]string
	status        string
	now           func() time.Time
}

// NewViewerModel creates a viewer for d. save is called by the save key
// and may be nil.
func NewViewerModel(ctx context.Context, d *diagram.Diagram, asker source.Asker, save func(*diagram.Diagram) error) ViewerModel {
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 60

	md, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(72),
	)

	return ViewerModel{
		d:       d,
		st:      d.RenderState(),
		ctx:     ctx,
		asker:   asker,
		save:    save,
		input:   ti,
		md:      md,
		mdCache: map[string]string{},
		now:     time.Now,
	}
}

func (m ViewerModel) Init() tea.Cmd {
	return nil
}

func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.fitted {
			m.fitted = true
			m.dispatch(diagram.FitView{Screen: m.screenSize(), Padding: fitPadding})
		}
		return m, nil

	case answerMsg:
		if msg.err != nil {
			m.dispatch(diagram.AnswerFailed{ID: msg.id, Err: msg.err})
			m.status = "Answer failed: " + msg.err.Error()
			return m, nil
		}
		if res := m.dispatch(diagram.Answer{ID: msg.id, Text: msg.text}); res.Err == nil {
			m.status = "Answer received"
		}
		return m, nil

	case tea.MouseMsg:
		return m.mouse(msg), nil

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.prompt(msg)
		}
		return m.key(msg)
	}
	return m, nil
}

// dispatch applies cmd and refreshes the render snapshot. Structural
// failures are shown in the status bar.
func (m *ViewerModel) dispatch(cmd diagram.Command) diagram.Result {
	res := m.d.Dispatch(m.ctx, cmd)
	if res.Err != nil {
		m.status = res.Err.Error()
	}
	m.st = m.d.RenderState()
	return res
}

func (m ViewerModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	sel := m.selected()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.dispatch(diagram.Pan{DX: panStep})
	case "right", "l":
		m.dispatch(diagram.Pan{DX: -panStep})
	case "up", "k":
		m.dispatch(diagram.Pan{DY: panStep})
	case "down", "j":
		m.dispatch(diagram.Pan{DY: -panStep})
	case "+", "=":
		m.zoom(zoomStep)
	case "-", "_":
		m.zoom(-zoomStep)
	case "0":
		m.dispatch(diagram.ResetView{})
	case "f":
		m.dispatch(diagram.FitView{Screen: m.screenSize(), Padding: fitPadding})
	case "tab":
		m.cycleSelection(1)
	case "shift+tab":
		m.cycleSelection(-1)
	case "esc":
		m.dispatch(diagram.ClearSelection{})
	case "enter", " ":
		if sel != "" {
			m.dispatch(diagram.ToggleCollapse{ID: sel})
		}
	case "c":
		m.dispatch(diagram.CollapseToLevel{Level: 1})
	case "E":
		m.dispatch(diagram.ExpandAll{})
	case "d":
		m.dispatch(diagram.SetDirection{Direction: nextDirection(m.st.Direction)})
		m.dispatch(diagram.FitView{Screen: m.screenSize(), Padding: fitPadding})
	case "L":
		m.dispatch(diagram.Relayout{ResetOffsets: true})
	case "shift+left":
		m.nudge(sel, -nudgeStep, 0)
	case "shift+right":
		m.nudge(sel, nudgeStep, 0)
	case "shift+up":
		m.nudge(sel, 0, -nudgeStep)
	case "shift+down":
		m.nudge(sel, 0, nudgeStep)
	case "x", "delete":
		if sel != "" {
			if res := m.dispatch(diagram.DeleteNode{ID: sel}); res.Err == nil {
				m.status = fmt.Sprintf("Deleted %d node(s)", len(res.Removed))
			}
		}
	case "a":
		if m.asker == nil {
			m.status = "No answer service configured"
			break
		}
		m.mode = modeAsk
		m.input.Placeholder = "Ask a follow-up question"
		m.input.SetValue("")
		return m, m.input.Focus()
	case "r":
		if sel == "" {
			break
		}
		if res := m.dispatch(diagram.BeginEdit{ID: sel}); res.Err != nil {
			break
		}
		n, _ := m.st.Node(sel)
		m.mode = modeRename
		m.input.Placeholder = "Title"
		m.input.SetValue(n.Title)
		return m, m.input.Focus()
	case "/":
		m.mode = modeSearch
		m.input.Placeholder = "Find a node"
		m.input.SetValue("")
		return m, m.input.Focus()
	case "i":
		m.showDetail = !m.showDetail
	case "s":
		m.saveDiagram()
	}
	return m, nil
}

// prompt handles keys while the text input is active.
func (m ViewerModel) prompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		if m.mode == modeRename {
			m.dispatch(diagram.EndEdit{})
		}
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		switch mode {
		case modeRename:
			m.dispatch(diagram.EditNode{ID: m.st.Editing, Title: &value})
			m.dispatch(diagram.EndEdit{})
			return m, nil
		case modeSearch:
			m.search(value)
			return m, nil
		}
		return m, m.ask(value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask inserts a pending follow-up beneath the selection (or the first
// root) and starts fetching its answer.
func (m *ViewerModel) ask(question string) tea.Cmd {
	parent := m.selected()
	if parent == "" {
		if roots := m.d.Outline().Roots(); len(roots) > 0 {
			parent = roots[0]
		}
	}
	res := m.dispatch(diagram.InsertFollowUp{ParentID: parent, Question: question})
	if res.Err != nil {
		return nil
	}
	m.status = "Waiting for answer…"
	id, asker, ctx := res.ID, m.asker, m.ctx
	return func() tea.Msg {
		text, err := asker.Ask(ctx, id, question)
		return answerMsg{id: id, text: text, err: err}
	}
}

// search selects the best title match for query. Matches inside
// collapsed subtrees are selected but stay hidden.
func (m *ViewerModel) search(query string) {
	if query == "" {
		return
	}
	matches := m.d.Outline().Find(query)
	if len(matches) == 0 {
		m.status = fmt.Sprintf("No node matches %q", query)
		return
	}
	m.dispatch(diagram.Select{ID: matches[0]})
	m.status = fmt.Sprintf("%d match(es)", len(matches))
}

func (m *ViewerModel) mouse(msg tea.MouseMsg) ViewerModel {
	pos := fromCell(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.dispatch(diagram.Zoom{Delta: zoomStep, Anchor: &pos})
	case msg.Button == tea.MouseButtonWheelDown:
		m.dispatch(diagram.Zoom{Delta: -zoomStep, Anchor: &pos})
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		target, _ := m.st.HitTestScreen(pos)
		m.dispatch(diagram.PointerDown{Target: target, Kind: interaction.Mouse, Pos: pos, At: m.now()})
	case msg.Action == tea.MouseActionMotion:
		m.dispatch(diagram.PointerMove{Pos: pos})
	case msg.Action == tea.MouseActionRelease:
		m.dispatch(diagram.PointerUp{Pos: pos, At: m.now(), Additive: msg.Shift})
	}
	return *m
}

func (m *ViewerModel) zoom(delta float64) {
	size := m.screenSize()
	center := geom.Point{X: size.W / 2, Y: size.H / 2}
	m.dispatch(diagram.Zoom{Delta: delta, Anchor: &center})
}

// nudge moves a node by one drag step in diagram units.
func (m *ViewerModel) nudge(id string, dx, dy float64) {
	if id == "" {
		return
	}
	m.dispatch(diagram.BeginDrag{ID: id})
	m.dispatch(diagram.Drag{ID: id, DX: dx, DY: dy})
	m.dispatch(diagram.EndDrag{ID: id})
}

// cycleSelection selects the next visible node in pre-order.
func (m *ViewerModel) cycleSelection(step int) {
	visible := m.st.Visible()
	if len(visible) == 0 {
		return
	}
	i := -1
	sel := m.selected()
	for j, n := range visible {
		if n.ID == sel {
			i = j
			break
		}
	}
	next := (i + step + len(visible)) % len(visible)
	if i < 0 && step < 0 {
		next = len(visible) - 1
	}
	m.dispatch(diagram.Select{ID: visible[next].ID})
}

func (m *ViewerModel) selected() string {
	if len(m.st.Selected) == 0 {
		return ""
	}
	return m.st.Selected[len(m.st.Selected)-1]
}

func (m *ViewerModel) saveDiagram() {
	if m.save == nil {
		m.status = "Nowhere to save"
		return
	}
	if err := m.save(m.d); err != nil {
		m.status = "Save failed: " + err.Error()
		return
	}
	m.status = "Saved"
}

// canvasRows is the height left for the diagram after the status bar,
// prompt and detail pane.
func (m ViewerModel) canvasRows() int {
	rows := m.height - 1
	if m.mode != modeBrowse {
		rows--
	}
	if m.showDetail {
		rows -= detailRows + 1
	}
	return max(rows, 1)
}

func (m ViewerModel) screenSize() geom.Size {
	return geom.Size{W: float64(m.width) * cellWidth, H: float64(m.canvasRows()) * cellHeight}
}

func (m ViewerModel) View() string {
	if m.width == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(drawDiagram(m.st, m.width, m.canvasRows()).String())
	b.WriteString("\n")
	if m.showDetail {
		b.WriteString(detailStyle.Width(m.width).Render(m.detail()))
		b.WriteString("\n")
	}
	if m.mode != modeBrowse {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())
	return b.String()
}

func (m ViewerModel) detail() string {
	n, ok := m.st.Node(m.selected())
	if !ok {
		return listDimStyle.Render("Select a node with tab to see its description")
	}
	text := n.Description
	if n.State == outline.StatePending {
		text = "_waiting for answer…_"
	}
	src := "## " + n.Title + "\n\n" + text
	out, ok := m.mdCache[src]
	if !ok {
		out = src
		if m.md != nil {
			if r, err := m.md.Render(src); err == nil {
				out = strings.TrimRight(r, "\n ")
			}
		}
		m.mdCache[src] = out
	}
	lines := strings.Split(out, "\n")
	if len(lines) > detailRows {
		lines = lines[:detailRows]
	}
	return strings.Join(lines, "\n")
}

func (m ViewerModel) statusLine() string {
	parts := []string{
		StyleTitle.Render(m.st.Title),
		string(m.st.Direction),
		fmt.Sprintf("%.0f%%", m.st.Viewport.Zoom*100),
	}
	if n, ok := m.st.Node(m.selected()); ok {
		parts = append(parts, StyleHighlight.Render(n.Title))
	}
	if p := pendingCount(m.st); p > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d pending", p)))
	}
	if m.status != "" {
		parts = append(parts, statusMsgStyle.Render(m.status))
	} else {
		parts = append(parts, listDimStyle.Render("tab select · / find · ⏎ fold · a ask · r rename · x delete · d direction · i info · s save · q quit"))
	}
	return statusBarStyle.Render(strings.Join(parts, " · "))
}

func nextDirection(d layout.Direction) layout.Direction {
	for i, dir := range directionCycle {
		if dir == d {
			return directionCycle[(i+1)%len(directionCycle)]
		}
	}
	return layout.LeftToRight
}
