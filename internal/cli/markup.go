package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/pkg/markup"
)

// markupCommand creates the markup command for checking shape-name markup.
func (c *CLI) markupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "markup [name...]",
		Short: "Parse shape-name markup and print its directives",
		Long: `Parse shape-name markup and print its directives.

Each argument is parsed as a shape name. Names starting with '.' are markup;
anything else is reported as a plain name. Unknown directives and wrong
parameter counts are flagged the same way a build would report them.`,
		Example: `  flatmap markup ".boundary class(organ) id(liver)"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, arg := range args {
				if !describeMarkup(cmd.OutOrStdout(), arg) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d names have markup errors", failed, len(args))
			}
			return nil
		},
	}
}

// describeMarkup writes the directives of name to w and reports whether the
// name parsed cleanly.
func describeMarkup(w io.Writer, name string) bool {
	fmt.Fprintln(w, StyleTitle.Render(name))
	if !markup.IsMarkup(name) {
		fmt.Fprintln(w, "  "+StyleDim.Render("plain name, no directives"))
		return true
	}
	ds, err := markup.Parse(name)
	if err != nil {
		fmt.Fprintln(w, "  "+styleIconError.Render(iconError)+" "+StyleError.Render(err.Error()))
		return false
	}
	ok := true
	for _, d := range ds {
		icon := styleIconSuccess.Render(iconSuccess)
		note := ""
		switch {
		case d.Kind == markup.KindUnknown:
			icon, note, ok = styleIconWarning.Render(iconWarning), "unknown directive", false
		case !d.ArityOK():
			icon, note, ok = styleIconError.Render(iconError), "wrong number of parameters", false
		}
		line := "  " + icon + " " + StyleValue.Render(d.Name)
		if len(d.Params) > 0 {
			line += StyleDim.Render("(") + StyleNumber.Render(strings.Join(d.Params, ", ")) + StyleDim.Render(")")
		}
		if note != "" {
			line += "  " + StyleWarning.Render(note)
		}
		fmt.Fprintln(w, line)
	}
	return ok
}
