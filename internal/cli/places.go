package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/tui/components"
)

var (
	placeName   string
	placeLat    float64
	placeLon    float64
	placeRadius float64
)

func init() {
	rootCmd.AddCommand(placesCmd)
	placesCmd.AddCommand(placesAddCmd)
	placesCmd.AddCommand(placesListCmd)

	placesAddCmd.Flags().StringVar(&placeName, "name", "", "place name (required)")
	placesAddCmd.Flags().Float64Var(&placeLat, "lat", 0, "center latitude (required)")
	placesAddCmd.Flags().Float64Var(&placeLon, "lon", 0, "center longitude (required)")
	placesAddCmd.Flags().Float64Var(&placeRadius, "radius", 50, "radius in meters")
	_ = placesAddCmd.MarkFlagRequired("name")
	_ = placesAddCmd.MarkFlagRequired("lat")
	_ = placesAddCmd.MarkFlagRequired("lon")
}

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Manage known places",
	Long:  "Known places name visits: a visit within reach of a place takes its name.",
}

var placesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a place",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		place := &models.Place{
			Name:         placeName,
			Center:       models.Coordinate{Latitude: placeLat, Longitude: placeLon},
			RadiusMeters: placeRadius,
		}
		if err := rt.places.Add(cmd.Context(), place); err != nil {
			return fmt.Errorf("add place: %w", err)
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), place)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added place %q (%s).\n", place.Name, place.ID)
		return err
	},
}

var placesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known places",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		places, err := rt.places.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list places: %w", err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), places)
		}

		rows := make([][]string, 0, len(places))
		for _, p := range places {
			rows = append(rows, []string{
				p.Name,
				strconv.FormatFloat(p.Center.Latitude, 'f', 5, 64),
				strconv.FormatFloat(p.Center.Longitude, 'f', 5, 64),
				components.FormatDistance(p.RadiusMeters),
			})
		}
		return writeTable(cmd.OutOrStdout(), placeColumns, rows)
	},
}
