// Package tui is a terminal host for the interaction engine.
//
// The model draws the active module on a character canvas and forwards
// mouse presses, motion and releases on it to the editor as pointer events,
// one cell standing for a fixed block of screen pixels. Key presses are
// translated into the same events: selecting a node is a press and release
// on it, moving it is a short drag, and deleting it is a "Delete" key press.
// Mode gating, selection events and gesture hooks therefore behave exactly as
// they do in any other host.
package tui

import (
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// DefaultStep is how far one key press moves a node or the canvas, in pixels.
const DefaultStep = 10

// doubleClickInterval is the longest gap between two presses on the same cell
// that still counts as a double click.
const doubleClickInterval = 400 * time.Millisecond

// SaveFunc persists a snapshot.
type SaveFunc func(document.Snapshot) error

// mutations are the events that make the document differ from the saved file.
var mutations = []events.Name{
	events.NodeCreated, events.NodeRemoved, events.NodeMoved, events.NodeDataChanged,
	events.InputAdded, events.OutputAdded, events.InputRemoved, events.OutputRemoved,
	events.ConnectionCreated, events.ConnectionRemoved,
	events.RerouteAdded, events.RerouteRemoved, events.RerouteMoved,
	events.ModuleCreated, events.ModuleRemoved, events.Import,
}

// Model is the bubbletea model of the terminal editor.
type Model struct {
	ed    *editor.Editor
	title string
	save  SaveFunc
	step  float64

	cursor      int
	height      int
	width       int
	canvasRows  int
	status      string
	statusErr   bool
	dirty       bool
	confirmQuit bool

	// mouse state
	pressed   bool
	double    bool
	lastPress time.Time
	lastCell  [2]int
	now       func() time.Time

	subs []events.Subscription
}

// New returns a model hosting ed. title is shown in the header; save may be
// nil, in which case ctrl+s reports that there is nowhere to save.
func New(ed *editor.Editor, title string, save SaveFunc) *Model {
	m := &Model{
		ed:         ed,
		title:      title,
		save:       save,
		step:       DefaultStep,
		height:     15,
		width:      80,
		canvasRows: 12,
		now:        time.Now,
	}
	for _, name := range mutations {
		m.subs = append(m.subs, ed.Subscribe(name, func(events.Event) { m.dirty = true }))
	}
	m.subs = append(m.subs, ed.Subscribe(events.Error, func(ev events.Event) {
		if err, ok := ev.Payload.(error); ok {
			m.setError(err)
		}
	}))
	return m
}

// Close detaches the model from the editor's bus.
func (m *Model) Close() {
	for _, s := range m.subs {
		m.ed.Unsubscribe(s)
	}
	m.subs = nil
}

// Dirty reports whether the document changed since it was loaded or saved.
func (m *Model) Dirty() bool { return m.dirty }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 20)
		m.canvasRows = max(6, min(msg.Height/2, 20))
		m.height = max(msg.Height-10-m.canvasRows, 3)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	at, inside := m.cellToScreen(msg.X, msg.Y)
	if !inside && (!m.pressed || msg.Action == tea.MouseActionPress) {
		return
	}
	mods := editor.Modifiers{Ctrl: msg.Ctrl, Shift: msg.Shift, Alt: msg.Alt}
	ev := editor.PointerEvent{X: at.X, Y: at.Y, Modifiers: mods}

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		dy := 1.0
		if msg.Button == tea.MouseButtonWheelUp {
			dy = -1
		}
		if !m.ed.Wheel(editor.WheelEvent{X: at.X, Y: at.Y, DeltaY: dy, Modifiers: mods}) {
			m.pan(0, -dy*m.step)
		}

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		ev.Button = editor.ButtonSecondary
		m.ed.ContextMenu(ev)
		m.syncCursor()

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		now := m.now()
		cell := [2]int{msg.X, msg.Y}
		m.double = cell == m.lastCell && now.Sub(m.lastPress) <= doubleClickInterval
		m.lastPress, m.lastCell = now, cell
		m.pressed = true
		m.status, m.statusErr = "", false
		m.ed.PointerDown(ev)
		m.syncCursor()

	case msg.Action == tea.MouseActionMotion && m.pressed:
		m.ed.PointerMove(ev)

	case msg.Action == tea.MouseActionRelease && m.pressed:
		m.pressed = false
		m.ed.PointerUp(ev)
		if m.double {
			m.double = false
			m.lastPress = time.Time{}
			if err := m.ed.DoubleClick(ev); err != nil {
				m.setError(err)
			}
		}
		m.clampCursor()
	}
}

// syncCursor moves the list cursor to the selected node.
func (m *Model) syncCursor() {
	sel := m.ed.State().Selection
	if sel.Kind != editor.SelectNode {
		return
	}
	if i := slices.Index(m.nodeIDs(), sel.Node); i >= 0 {
		m.cursor = i
	}
}

func (m *Model) handleKey(key string) tea.Cmd {
	if key != "q" && key != "ctrl+c" {
		m.confirmQuit = false
	}
	m.status, m.statusErr = "", false

	switch key {
	case "q", "ctrl+c":
		if m.dirty && !m.confirmQuit {
			m.confirmQuit = true
			m.setStatus("unsaved changes: press q again to quit, ctrl+s to save")
			return nil
		}
		return tea.Quit
	case "ctrl+s":
		m.doSave()
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "H":
		m.moveSelected(-m.step, 0)
	case "L":
		m.moveSelected(m.step, 0)
	case "K":
		m.moveSelected(0, -m.step)
	case "J":
		m.moveSelected(0, m.step)
	case "a":
		m.pan(m.step, 0)
	case "d":
		m.pan(-m.step, 0)
	case "w":
		m.pan(0, m.step)
	case "s":
		m.pan(0, -m.step)
	case "+", "=":
		m.ed.ZoomIn()
	case "-":
		m.ed.ZoomOut()
	case "0":
		m.ed.ZoomReset()
	case "tab":
		m.nextConnection()
	case "esc":
		m.press(projection.CanvasTarget)
	case "x", "delete", "backspace":
		if err := m.ed.KeyDown(editor.KeyEvent{Key: "Delete"}); err != nil {
			m.setError(err)
		}
		m.clampCursor()
	case "n":
		m.addNode()
	case "c":
		m.connect()
	case "m":
		m.nextModule()
	case "e":
		m.nextMode()
	}
	return nil
}

func (m *Model) setStatus(format string, args ...any) {
	m.status, m.statusErr = fmt.Sprintf(format, args...), false
}

func (m *Model) setError(err error) {
	m.status, m.statusErr = errors.UserMessage(err), true
}

// nodeIDs returns the active module's nodes in insertion order.
func (m *Model) nodeIDs() []string {
	doc := m.ed.Document()
	return doc.NodeIDs(doc.ActiveModule())
}

func (m *Model) clampCursor() {
	n := len(m.nodeIDs())
	m.cursor = max(0, min(m.cursor, n-1))
}

// moveCursor moves the list cursor and selects the node under it.
func (m *Model) moveCursor(delta int) {
	ids := m.nodeIDs()
	if len(ids) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(ids)-1))
	m.press(projection.Target{Kind: projection.TargetNode, Node: ids[m.cursor], Segment: -1})
}

// press sends a press and release on t without moving.
func (m *Model) press(t projection.Target) {
	m.ed.PointerDown(editor.PointerEvent{Target: &t})
	m.ed.PointerUp(editor.PointerEvent{Target: &t})
}

// moveSelected drags the selected node by (dx, dy) content pixels.
func (m *Model) moveSelected(dx, dy float64) {
	sel := m.ed.State().Selection
	if sel.Kind != editor.SelectNode {
		m.setStatus("select a node first")
		return
	}
	t := projection.Target{Kind: projection.TargetNode, Node: sel.Node, Segment: -1}
	z := m.ed.Zoom()
	m.ed.PointerDown(editor.PointerEvent{Target: &t})
	m.ed.PointerMove(editor.PointerEvent{X: dx * z, Y: dy * z})
	m.ed.PointerUp(editor.PointerEvent{X: dx * z, Y: dy * z})
}

func (m *Model) pan(dx, dy float64) {
	v := m.ed.State().Viewport
	m.ed.Pan(v.X+dx, v.Y+dy)
}

// nextConnection selects the wire after the selected one.
func (m *Model) nextConnection() {
	conns := m.ed.Scene().Connections
	if len(conns) == 0 {
		m.setStatus("no connections in this module")
		return
	}
	next := 0
	if sel := m.ed.State().Selection; sel.Kind == editor.SelectConnection {
		i := slices.IndexFunc(conns, func(c projection.ConnectionView) bool { return c.Key == sel.Connection })
		next = (i + 1) % len(conns)
	}
	m.press(projection.Target{Kind: projection.TargetConnection, Connection: conns[next].Key, Segment: -1})
}

func (m *Model) editable() bool {
	if mode := m.ed.Mode(); mode != editor.ModeEdit {
		m.setStatus("read-only in %s mode", mode)
		return false
	}
	return true
}

func (m *Model) addNode() {
	if !m.editable() {
		return
	}
	k := float64(len(m.nodeIDs()))
	id, err := m.ed.AddNode("node", 1, 1, 40+24*k, 40+24*k, nil, nil)
	if err != nil {
		m.setError(err)
		return
	}
	m.cursor = len(m.nodeIDs()) - 1
	m.press(projection.Target{Kind: projection.TargetNode, Node: id, Segment: -1})
}

// connect wires the selected node's first output to the first input of the
// node below it in the list.
func (m *Model) connect() {
	if !m.editable() {
		return
	}
	sel := m.ed.State().Selection
	ids := m.nodeIDs()
	i := slices.Index(ids, sel.Node)
	if sel.Kind != editor.SelectNode || i < 0 || len(ids) < 2 {
		m.setStatus("select a node with another node below it")
		return
	}
	from, _ := m.ed.Node(ids[i])
	to, _ := m.ed.Node(ids[(i+1)%len(ids)])
	in, ok := to.FirstInput()
	if len(from.Outputs) == 0 || !ok {
		m.setStatus("%s needs an output and %s an input", from.Name, to.Name)
		return
	}
	key := document.ConnectionKey{OutputNode: from.ID, OutputPort: from.Outputs[0].ID, InputNode: to.ID, InputPort: in}
	added, err := m.ed.AddConnection(key)
	switch {
	case err != nil:
		m.setError(err)
	case !added:
		m.setStatus("%s already exists", key)
	default:
		m.setStatus("connected %s", key)
	}
}

func (m *Model) nextModule() {
	modules := m.ed.Document().Modules()
	i := slices.Index(modules, m.ed.Document().ActiveModule())
	if err := m.ed.SwitchModule(modules[(i+1)%len(modules)]); err != nil {
		m.setError(err)
		return
	}
	m.cursor = 0
}

func (m *Model) nextMode() {
	next := map[editor.Mode]editor.Mode{
		editor.ModeEdit:  editor.ModeFixed,
		editor.ModeFixed: editor.ModeView,
		editor.ModeView:  editor.ModeEdit,
	}
	m.ed.SetMode(next[m.ed.Mode()])
	m.setStatus("%s mode", m.ed.Mode())
}

func (m *Model) doSave() {
	if m.save == nil {
		m.setStatus("nowhere to save")
		return
	}
	if err := m.save(m.ed.Export()); err != nil {
		m.setError(err)
		return
	}
	m.dirty = false
	m.setStatus("saved")
}
