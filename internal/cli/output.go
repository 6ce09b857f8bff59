package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for command output.
type CLIResponse struct {
	Status string      `json:"status"`         // "ok" or "error"
	Data   interface{} `json:"data,omitempty"` // success payload
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// Success writes data as a JSON envelope, or calls text for human output.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	return text(f.Writer)
}
