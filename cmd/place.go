// File: cmd/place.go
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/position"
)

// newPlaceCmd creates the `place` command, a pure computation over raw
// rectangles.
func newPlaceCmd() *cobra.Command {
	var hostFlag, sizeFlag, placement string

	placeCmd := &cobra.Command{
		Use:   "place",
		Short: "Computes a target offset from a host rectangle",
		Example: `  anchorpoint place --host 100,50,40,20 --size 10,6 --placement bottom-right
  anchorpoint place --host 0,0,200,30 --size 120,80 -o text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}

			host, err := parseFloats(hostFlag, 4)
			if err != nil {
				return fmt.Errorf("invalid --host: %w", err)
			}
			size, err := parseFloats(sizeFlag, 2)
			if err != nil {
				return fmt.Errorf("invalid --size: %w", err)
			}
			for _, f := range []float64{host[2], host[3], size[0], size[1]} {
				if f < 0 {
					return fmt.Errorf("sizes must not be negative")
				}
			}
			if placement == "" {
				placement = cfg.Position().DefaultPlacement
			}

			hostRect := schemas.Rect{Top: host[0], Left: host[1], Width: host[2], Height: host[3]}
			resp := schemas.PlaceResponse{
				Spec:   position.ParsePlacement(placement),
				Offset: position.Place(hostRect, size[0], size[1], placement),
			}

			if cfg.Output().Format == "json" {
				return writeJSON(cmd.OutOrStdout(), cfg.Output(), resp)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\ttop=%g\tleft=%g\n", resp.Spec, resp.Offset.Top, resp.Offset.Left)
			return err
		},
	}

	placeCmd.Flags().StringVar(&hostFlag, "host", "", "host rectangle as top,left,width,height")
	placeCmd.Flags().StringVar(&sizeFlag, "size", "", "target size as width,height")
	placeCmd.Flags().StringVarP(&placement, "placement", "p", "", "placement token such as bottom-right (default from config)")
	_ = placeCmd.MarkFlagRequired("host")
	_ = placeCmd.MarkFlagRequired("size")
	return placeCmd
}

// parseFloats parses exactly n comma-separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q): %w", i+1, p, err)
		}
		out[i] = f
	}
	return out, nil
}
