package cli

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/pipeline"
	"github.com/matzehuels/nodewire/pkg/render/sink"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for nodewire.

To load completions:

Bash:
  $ source <(nodewire completion bash)

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  $ nodewire completion zsh > "${fpath[1]}/_nodewire"

Fish:
  $ nodewire completion fish > ~/.config/fish/completions/nodewire.fish

PowerShell:
  PS> nodewire completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// completeValues completes a flag from a fixed set of values. For comma
// separated flags the prefix before the last comma is kept.
func completeValues(values []string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		prefix := ""
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			prefix = toComplete[:i+1]
		}
		var out []cobra.Completion
		for _, v := range values {
			out = append(out, prefix+v)
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}

// registerCompletions attaches value completion to the well-known flags cmd
// defines. Flags it does not define are skipped.
func registerCompletions(cmd *cobra.Command) {
	known := map[string][]string{
		"format": slices.Sorted(maps.Keys(pipeline.ValidFormats)),
		"type":   slices.Sorted(maps.Keys(pipeline.ValidVizTypes)),
		"style":  slices.Sorted(maps.Keys(sink.Themes)),
		"mode":   {editor.ModeEdit.String(), editor.ModeFixed.String(), editor.ModeView.String()},
	}
	for name, values := range known {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, completeValues(values))
	}
}
