package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/io"
)

// newCommand creates the "new" command that writes an empty document.
func (c *CLI) newCommand() *cobra.Command {
	var (
		modules []string
		sample  bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Create a new document",
		Long: `Create a new document containing the "Home" module.

Additional modules can be added with --module. With --sample the Home
module gets a small source → sink graph to experiment with.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			doc, err := newDocument(modules, sample)
			if err != nil {
				return err
			}
			if err := io.ExportJSON(doc, path); err != nil {
				return err
			}
			printSuccess("Created document")
			printFile(path)
			printNextStep("Edit", appName+" edit "+path)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&modules, "module", "m", nil, "additional module(s) to create")
	cmd.Flags().BoolVar(&sample, "sample", false, "add a sample graph to Home")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

// newDocument builds the document written by "new".
func newDocument(modules []string, sample bool) (*document.Document, error) {
	doc := document.New()
	for _, m := range modules {
		if err := doc.AddModule(m); err != nil {
			return nil, err
		}
	}
	if !sample {
		return doc, nil
	}

	src, err := doc.AddNode("source", 0, 1, 40, 80, map[string]any{"value": 1})
	if err != nil {
		return nil, err
	}
	mix, err := doc.AddNode("mix", 2, 1, 300, 40, nil)
	if err != nil {
		return nil, err
	}
	sink, err := doc.AddNode("sink", 1, 0, 560, 120, nil)
	if err != nil {
		return nil, err
	}
	wires := []document.ConnectionKey{
		{OutputNode: src, OutputPort: "output_1", InputNode: mix, InputPort: "input_1"},
		{OutputNode: mix, OutputPort: "output_1", InputNode: sink, InputPort: "input_1"},
	}
	for _, k := range wires {
		if _, err := doc.AddConnection(k); err != nil {
			return nil, err
		}
	}
	if err := doc.AddWaypoint(wires[1], geometry.Point{X: 520, Y: 60}, 0); err != nil {
		return nil, err
	}
	return doc, nil
}

// inspectCommand creates the "inspect" command that summarizes a document.
func (c *CLI) inspectCommand() *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a document's modules and nodes",
		Long: `Summarize a document.

Without --module, prints one row per module. With --module, lists the
nodes and connections of that module.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := io.ImportJSON(args[0])
			if err != nil {
				return err
			}
			if module == "" {
				fmt.Println(moduleTable(doc))
				return nil
			}
			if !doc.HasModule(module) {
				return errors.New(errors.ErrCodeModuleNotFound, "module %q", module)
			}
			fmt.Println(StyleTitle.Render(module))
			printKeyValue("Nodes", strconv.Itoa(doc.NodeCount(module)))
			printKeyValue("Connections", strconv.Itoa(doc.ConnectionCount(module)))
			fmt.Println(nodeTable(doc, module))
			if doc.ConnectionCount(module) > 0 {
				fmt.Println(connectionTable(doc, module))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&module, "module", "m", "", "list the nodes of this module")

	return cmd
}

func moduleTable(doc *document.Document) string {
	var rows [][]string
	for _, m := range doc.Modules() {
		waypoints := 0
		for _, conn := range doc.Connections(m) {
			waypoints += len(conn.Points)
		}
		rows = append(rows, []string{
			m,
			strconv.Itoa(doc.NodeCount(m)),
			strconv.Itoa(doc.ConnectionCount(m)),
			strconv.Itoa(waypoints),
		})
	}
	return renderTable([]string{"Module", "Nodes", "Connections", "Waypoints"}, rows)
}

func nodeTable(doc *document.Document, module string) string {
	var rows [][]string
	for _, n := range doc.Nodes(module) {
		rows = append(rows, []string{
			n.ID,
			n.Name,
			fmt.Sprintf("%s, %s", num(n.X), num(n.Y)),
			strconv.Itoa(len(n.Inputs)),
			strconv.Itoa(len(n.Outputs)),
		})
	}
	return renderTable([]string{"ID", "Name", "Position", "In", "Out"}, rows)
}

func connectionTable(doc *document.Document, module string) string {
	var rows [][]string
	for _, conn := range doc.Connections(module) {
		k := conn.Key
		rows = append(rows, []string{
			k.OutputNode + ":" + k.OutputPort,
			k.InputNode + ":" + k.InputPort,
			strconv.Itoa(len(conn.Points)),
		})
	}
	return renderTable([]string{"From", "To", "Waypoints"}, rows)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
