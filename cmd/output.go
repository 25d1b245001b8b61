// File: cmd/output.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSON encodes v as one document, indented when output.pretty is set.
func writeJSON(w io.Writer, out config.OutputConfig, v interface{}) error {
	var (
		b   []byte
		err error
	)
	if out.Pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// printResults prints placement results in the configured format.
func printResults(w io.Writer, out config.OutputConfig, resp schemas.EvaluateResponse) error {
	if out.Format == "json" {
		return writeJSON(w, out, resp)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tTARGET\tPLACEMENT\tATTACH\tTOP\tLEFT")
	for _, r := range resp.Results {
		attach := "parent"
		if r.Request.AppendToBody {
			attach = "body"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%g\n",
			r.Request.Host, r.Request.Target, r.Spec, attach, r.Offset.Top, r.Offset.Left)
	}
	return tw.Flush()
}
