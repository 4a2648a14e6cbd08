package cli

import (
	"encoding/json"
	"fmt"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/spf13/cobra"
)

var (
	cropsSeason string
	cropsJSON   bool
)

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "Browse the crop catalog",
}

var cropsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crops, optionally by season",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // read-only command

		crops := services.Workspace.Catalog.Crops
		if cropsSeason != "" {
			season, err := catalog.ParseSeason(cropsSeason)
			if err != nil {
				return NewCLIError("unknown season", "Use Kharif, Rabi or Zaid", err)
			}
			crops = services.Workspace.Catalog.CropsBySeason(season)
		}

		out := cmd.OutOrStdout()
		if cropsJSON {
			return json.NewEncoder(out).Encode(crops)
		}
		if len(crops) == 0 {
			fmt.Fprintln(out, "No crops found.")
			return nil
		}
		for _, c := range crops {
			points, eco := c.TotalRewards()
			fmt.Fprintf(out, "%-10s %-22s %-7s %d steps  %d pts  %d eco\n", c.ID, c.Name, c.Season, len(c.Workflow), points, eco)
		}
		return nil
	},
}

var cropsShowCmd = &cobra.Command{
	Use:   "show <crop-id>",
	Short: "Show a crop's workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // read-only command

		crop, err := catalog.FindCrop(services.Workspace.Catalog, args[0])
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		if cropsJSON {
			return json.NewEncoder(out).Encode(crop)
		}
		fmt.Fprintln(out, headerStyle.Render(crop.Name))
		fmt.Fprintf(out, "Season: %s   Water: %s   Soil: %s\n\n", crop.Season, crop.WaterRequirement, crop.SoilSuitability)
		for i, s := range crop.Workflow {
			glyph := catalog.IconCapabilities(s.Icon).Glyph
			fmt.Fprintf(out, "%d. %s %s [%s, %s]  +%d pts, +%d eco\n", i, glyph, s.Title, s.Category, s.VerificationType, s.Points, s.EcoPoints)
			if s.Description != "" {
				fmt.Fprintf(out, "   %s\n", s.Description)
			}
			for _, w := range s.Warnings {
				fmt.Fprintf(out, "   %s\n", statusErr.Render("! "+w))
			}
		}
		return nil
	},
}

func init() {
	cropsListCmd.Flags().StringVar(&cropsSeason, "season", "", "Filter by season (Kharif, Rabi, Zaid)")
	cropsCmd.PersistentFlags().BoolVar(&cropsJSON, "json", false, "Output as JSON")
	cropsCmd.AddCommand(cropsListCmd, cropsShowCmd)
	RootCmd.AddCommand(cropsCmd)
}
