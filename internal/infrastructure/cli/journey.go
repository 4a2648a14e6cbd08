package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/harvestpath/harvestpath/pkg/domain/events"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
	"github.com/spf13/cobra"
)

var (
	journeyJSON bool
	proofMIME   string
)

var journeyCmd = &cobra.Command{
	Use:     "journey",
	Aliases: []string{"j"},
	Short:   "Start and progress cultivation journeys",
}

var journeyStartCmd = &cobra.Command{
	Use:   "start <crop-id>",
	Short: "Start a journey for a crop (returns the active one if it exists)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		res, err := services.Journeys.StartJourney(cmd.Context(), user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to start journey: %w", err))
		}

		out := cmd.OutOrStdout()
		if journeyJSON {
			return json.NewEncoder(out).Encode(res)
		}
		if res.Redirected {
			fmt.Fprintf(out, "You already have an active %s journey: %s\n", res.Journey.CropName, res.Journey.ID)
			return nil
		}
		fmt.Fprintf(out, "Started %s journey %s with %d steps.\n", res.Journey.CropName, res.Journey.ID, len(res.Journey.Steps))
		return nil
	},
}

var journeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your journeys",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		journeys, err := services.Journeys.ListJourneys(cmd.Context(), user)
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		if journeyJSON {
			return json.NewEncoder(out).Encode(journeys)
		}
		if len(journeys) == 0 {
			fmt.Fprintln(out, "No journeys yet. Run 'harvestpath crops list' and 'harvestpath journey start <crop>'.")
			return nil
		}
		for i := range journeys {
			j := &journeys[i]
			fmt.Fprintf(out, "%s  %-22s %s  %3d%%  health %d\n",
				j.ID, j.CropName, statusStyle(j.Status).Render(fmt.Sprintf("%-9s", j.Status)), journey.CompletionPercent(j), j.HealthScore)
		}
		return nil
	},
}

var journeyShowCmd = &cobra.Command{
	Use:   "show <journey-id>",
	Short: "Show a journey's steps and progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		o, err := services.Journeys.Overview(cmd.Context(), user, args[0])
		if err != nil {
			return MapError(err)
		}
		if journeyJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(o)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderOverview(o))
		return nil
	},
}

var journeySubmitCmd = &cobra.Command{
	Use:   "submit <journey-id> <step> <image-file>",
	Short: "Submit a photo as proof for a step",
	Long: `Submit a photo as proof for a step.

The photo is judged by the verifier configured in .harvestpath/config.yaml.
The default provider is "mock", which accepts any image and is meant for
demos and tests; configure gemini or openai before earning real points.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		step, err := strconv.Atoi(args[1])
		if err != nil {
			return NewCLIError("step must be a number", "Step numbers start at 0", err)
		}
		// #nosec G304 -- the user names the proof file explicitly
		data, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("failed to read proof image: %w", err)
		}

		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit
		warnIfMockVerifier(cmd, services)

		res, err := services.Journeys.SubmitProof(cmd.Context(), user, args[0], step, verify.Proof{Data: data, MIMEType: proofMIME})
		if err != nil {
			return MapError(fmt.Errorf("failed to submit proof: %w", err))
		}

		out := cmd.OutOrStdout()
		if journeyJSON {
			return json.NewEncoder(out).Encode(res)
		}
		switch {
		case res.SensorFailure:
			fmt.Fprintln(out, statusErr.Render(res.Verdict.Reasoning))
		case res.Transition.Outcome == journey.OutcomeUnchanged:
			fmt.Fprintln(out, "Step already verified. Nothing changed.")
		case res.Verdict.Verified:
			fmt.Fprintln(out, stepVerified.Render("✓ Verified: "+res.Verdict.Reasoning))
			if res.RewardApplied {
				fmt.Fprintf(out, "Earned %d points and %d eco points.\n", res.Transition.Reward.Points, res.Transition.Reward.EcoPoints)
			}
			if res.RewardPending {
				fmt.Fprintln(out, "Reward could not be recorded yet. Run 'harvestpath ledger reconcile'.")
			}
			if res.Transition.Completed {
				fmt.Fprintf(out, "Journey complete! %s is ready for harvest.\n", res.Journey.CropName)
			}
		default:
			fmt.Fprintln(out, statusErr.Render("✗ Not verified: "+res.Verdict.Reasoning))
		}
		return nil
	},
}

var journeyResetCmd = &cobra.Command{
	Use:   "reset <journey-id>",
	Short: "Clear a journey's progress and start a new run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		j, err := services.Journeys.ResetJourney(cmd.Context(), user, args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to reset journey: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Journey %s reset (run %d). Earned points are kept.\n", j.ID, j.Run)
		return nil
	},
}

var journeyHealthCmd = &cobra.Command{
	Use:   "health <journey-id> <delta>",
	Short: "Adjust a journey's crop health score",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return NewCLIError("delta must be a number", "Use a negative number for damage, e.g. -20", err)
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		j, err := services.Journeys.AdjustHealth(cmd.Context(), user, args[0], delta)
		if err != nil {
			return MapError(fmt.Errorf("failed to adjust health: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Health is now %d (%s).\n", j.HealthScore, j.Status.DisplayName())
		return nil
	},
}

var journeyHistoryCmd = &cobra.Command{
	Use:   "history <journey-id>",
	Short: "Show the recorded events of a journey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		trail, err := services.Workspace.Events.LoadByAggregate(events.AggregateTypeJourney, args[0])
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		var mine []*events.BaseEvent
		for _, e := range trail {
			if e.UserID == user {
				mine = append(mine, e)
			}
		}

		out := cmd.OutOrStdout()
		if journeyJSON {
			return json.NewEncoder(out).Encode(mine)
		}
		if len(mine) == 0 {
			fmt.Fprintln(out, "No recorded events for this journey.")
			return nil
		}
		for _, e := range mine {
			fmt.Fprintf(out, "%s  %-24s %s\n", e.Timestamp.Local().Format(time.DateTime), e.Type, describeEvent(e))
		}
		if a, ok := services.Activity.Get(args[0]); ok {
			fmt.Fprintf(out, "\n%d verified, %d rejected (%d sensor failures), %d resets\n", a.Verifications, a.Rejections, a.SensorFailures, a.Resets)
		}
		return nil
	},
}

func describeEvent(e *events.BaseEvent) string {
	switch e.Type {
	case events.EventTypeStepVerified:
		return fmt.Sprintf("step %v verified (+%v pts)", e.Metadata["step_id"], e.Metadata["points"])
	case events.EventTypeStepRejected:
		if sf, _ := e.Metadata["sensor_failure"].(bool); sf {
			return fmt.Sprintf("step %v: verifier unavailable", e.Metadata["step_id"])
		}
		return fmt.Sprintf("step %v rejected: %v", e.Metadata["step_id"], e.Metadata["reasoning"])
	case events.EventTypeJourneyReset:
		return fmt.Sprintf("run %v started", e.Metadata["run"])
	case events.EventTypeHealthAdjusted:
		return fmt.Sprintf("health %v (%v)", e.Metadata["health_score"], e.Metadata["delta"])
	case events.EventTypeJourneyStarted:
		return fmt.Sprintf("%v", e.Metadata["crop_name"])
	default:
		return ""
	}
}

func init() {
	journeyCmd.PersistentFlags().BoolVar(&journeyJSON, "json", false, "Output as JSON")
	journeySubmitCmd.Flags().StringVar(&proofMIME, "mime", "", "Image MIME type (detected from content when empty)")
	journeyCmd.AddCommand(journeyStartCmd, journeyListCmd, journeyShowCmd, journeySubmitCmd, journeyResetCmd, journeyHealthCmd, journeyHistoryCmd)
	RootCmd.AddCommand(journeyCmd)
}
