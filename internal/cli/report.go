package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/circuitry/internal/presentation/tui"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/muesli/termenv"
)

// Report formats accepted by --format.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// WriteReport prints the settled graph. On a terminal, markdown goes through glamour
// and text is colored; otherwise both are plain.
func WriteReport(w io.Writer, g *domain.Graph, format string, tty bool) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)

	case FormatMarkdown:
		md := tui.Markdown(g)
		if !tty {
			_, err := io.WriteString(w, md)
			return err
		}
		render, err := tui.NewRenderer()
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		out, err := render(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err

	case FormatText, "":
		profile := termenv.Ascii
		if tty {
			profile = termenv.EnvColorProfile()
		}
		return tui.Plain(w, g, profile)
	}
	return fmt.Errorf("unknown format %q (want text, markdown or json)", format)
}
