package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/projection"
)

const help = "j/k select  H/J/K/L move  w/a/s/d pan  +/-/0 zoom  tab wire  x delete  n node  c connect  m module  e mode  ctrl+s save  q quit\n" +
	"mouse: drag nodes and wires  double-click waypoint  right-click delete  wheel pan  ctrl+wheel zoom"

func (m *Model) View() string {
	var b strings.Builder
	st := m.ed.State()
	scene := m.ed.Scene()

	title := styleTitle.Render("nodewire")
	if m.title != "" {
		title += styleDim.Render(" · ") + styleValue.Render(m.title)
	}
	if m.dirty {
		title += styleDirty.Render(" *")
	}
	b.WriteString(title + "\n")
	b.WriteString(styleDim.Render(fmt.Sprintf("module %s · mode %s · zoom %.0f%% · pan %.0f,%.0f",
		st.Module, st.Mode, st.Viewport.Zoom*100, st.Viewport.X, st.Viewport.Y)))
	b.WriteString("\n\n")
	b.WriteString(m.renderCanvas(scene) + "\n")

	if len(scene.Nodes) == 0 {
		b.WriteString(styleDim.Render("  empty module (press n to add a node)"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.nodeTable(scene))
		b.WriteString("\n")
	}

	if line := selectionLine(st.Selection, scene); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + styleDim.Render(help) + "\n")
	if m.status != "" {
		style := styleWarning
		if m.statusErr {
			style = styleError
		}
		b.WriteString(style.Render(m.status) + "\n")
	}
	return b.String()
}

func (m *Model) nodeTable(s projection.Scene) string {
	offset := 0
	if m.cursor >= m.height {
		offset = m.cursor - m.height + 1
	}
	end := min(offset+m.height, len(s.Nodes))

	rows := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		n := s.Nodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		wires := 0
		for _, p := range n.Inputs {
			wires += p.Connections
		}
		for _, p := range n.Outputs {
			wires += p.Connections
		}
		rows = append(rows, []string{
			cursor,
			shortID(n.ID),
			n.Name,
			fmt.Sprintf("%.0f,%.0f", n.Rect.X, n.Rect.Y),
			fmt.Sprint(len(n.Inputs)),
			fmt.Sprint(len(n.Outputs)),
			fmt.Sprint(wires),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Name", "Position", "In", "Out", "Wires").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if offset+row < len(s.Nodes) && s.Nodes[offset+row].Selected {
				return styleSelected
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

func selectionLine(sel editor.Selection, s projection.Scene) string {
	switch sel.Kind {
	case editor.SelectNode:
		return styleDim.Render("selected node ") + styleValue.Render(sel.Node)
	case editor.SelectConnection, editor.SelectWaypoint:
		c, ok := s.Connection(sel.Connection)
		if !ok {
			return ""
		}
		line := styleDim.Render("selected wire ") + styleValue.Render(sel.Connection.String())
		if n := len(c.Waypoints); n > 0 {
			line += styleDim.Render(fmt.Sprintf(" (%d waypoints)", n))
		}
		return line
	}
	return ""
}

// shortID trims UUIDs to their first block.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
