package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodewire/internal/tui"
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/io"
)

// editCommand creates the "edit" command that opens the terminal editor.
func (c *CLI) editCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a document in the terminal",
		Long: `Open a document in the full-screen terminal editor.

A missing file starts an empty document that is created on first save
(ctrl+s). The key bindings are listed at the bottom of the screen.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if mode != "" {
				if _, ok := editor.ParseMode(mode); !ok {
					return errors.New(errors.ErrCodeInvalidInput, "invalid mode %q (must be edit, fixed or view)", mode)
				}
				cfg.Editor.Mode = mode
			}

			doc, err := io.ImportJSON(path)
			switch {
			case errors.Is(err, errors.ErrCodeFileNotFound):
				doc = document.New()
				printInfo("New file %s", path)
			case err != nil:
				return err
			}

			ed := newEditor(cfg, doc)
			defer ed.Close()

			save := func(s document.Snapshot) error {
				return io.ExportSnapshot(s, path)
			}
			discarded, err := tui.Run(cmd.Context(), ed, filepath.Base(path), save)
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			if discarded {
				printWarning("Unsaved changes to %s were discarded", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "interaction mode: edit, fixed, view (default from config)")

	registerCompletions(cmd)
	return cmd
}
