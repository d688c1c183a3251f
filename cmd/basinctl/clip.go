package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/basin-precip-etl/internal/adapter/render"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

func newClipCmd(s *settings) *cobra.Command {
	var listPoints bool
	cmd := &cobra.Command{
		Use:   "clip <grid-file>",
		Short: "Show the grid points of one file that fall inside the boundary.",
		Long: `Clip a single grid file (plain or .zst) to the boundary, list the points
inside it with their values and print their sum.

Examples:
  basinctl clip forecast_files/ETA40_p010124a020124.dat
  basinctl clip --points=false forecast_files/ETA40_p010124a020124.dat.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boundary, err := filesystem.LoadBoundary(s.Boundary)
			if err != nil {
				return err
			}
			samples, err := filesystem.ReadGrid(args[0])
			if err != nil {
				return err
			}

			inside := boundary.Clip(samples)
			res := domain.AggregateRun(domain.ForecastRun{SourcePath: args[0]}, inside, len(samples))

			out := cmd.OutOrStdout()
			if listPoints {
				if err := render.WritePoints(out, inside, res.AccumulatedValue, s.Precision); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "%s: %d of %d points inside, %.*f mm\n",
				args[0], res.PointsInside, res.PointsTotal, s.Precision, res.AccumulatedValue)
			return err
		},
	}
	cmd.Flags().BoolVar(&listPoints, "points", true, "List every inside point")
	return cmd
}
