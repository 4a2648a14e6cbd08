package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

type ListCropsArgs struct {
	Season string `json:"season,omitempty" jsonschema:"description=Optional season filter: Kharif, Rabi or Zaid"`
}

type CropArgs struct {
	CropID string `json:"crop_id" jsonschema:"description=The crop id, e.g. wheat"`
}

type UserArgs struct {
	UserID string `json:"user_id" jsonschema:"description=The user whose data to read"`
}

type StartJourneyArgs struct {
	UserID string `json:"user_id" jsonschema:"description=The user starting the journey"`
	CropID string `json:"crop_id" jsonschema:"description=The crop to cultivate"`
}

type JourneyArgs struct {
	UserID    string `json:"user_id" jsonschema:"description=The journey owner"`
	JourneyID string `json:"journey_id" jsonschema:"description=The journey id"`
}

type SubmitProofArgs struct {
	UserID      string `json:"user_id" jsonschema:"description=The journey owner"`
	JourneyID   string `json:"journey_id" jsonschema:"description=The journey id"`
	StepIndex   int    `json:"step_index" jsonschema:"description=Zero-based workflow step index"`
	ImageBase64 string `json:"image_base64" jsonschema:"description=The proof photo, base64 encoded"`
	MIMEType    string `json:"mime_type,omitempty" jsonschema:"description=Image MIME type, detected when omitted"`
}

type AdjustHealthArgs struct {
	UserID    string `json:"user_id" jsonschema:"description=The journey owner"`
	JourneyID string `json:"journey_id" jsonschema:"description=The journey id"`
	Delta     int    `json:"delta" jsonschema:"description=Health change, negative for damage"`
}

type HistoryArgs struct {
	UserID string `json:"user_id" jsonschema:"description=The ledger owner"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Keep only the most recent entries"`
}

// JourneySummary is the list view of a journey.
type JourneySummary struct {
	ID                string         `json:"id"`
	CropID            string         `json:"crop_id"`
	CropName          string         `json:"crop_name"`
	Status            journey.Status `json:"status"`
	CurrentStepIndex  int            `json:"current_step_index"`
	CompletionPercent int            `json:"completion_percent"`
	HealthScore       int            `json:"health_score"`
}

// SubmitResponse is returned by harvestpath_submit_proof.
type SubmitResponse struct {
	Verified         bool            `json:"verified"`
	Reasoning        string          `json:"reasoning"`
	Outcome          journey.Outcome `json:"outcome"`
	CurrentStepIndex int             `json:"current_step_index"`
	Status           journey.Status  `json:"status"`
	PointsEarned     int             `json:"points_earned"`
	EcoPointsEarned  int             `json:"eco_points_earned"`
	SensorFailure    bool            `json:"sensor_failure,omitempty"`
}

func (s *Server) handleListCrops(ctx context.Context, args ListCropsArgs) (any, error) {
	if args.Season == "" {
		return s.catalog.Crops, nil
	}
	season, err := catalog.ParseSeason(args.Season)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Unknown season %q. Use Kharif, Rabi or Zaid.", args.Season))
	}
	return s.catalog.CropsBySeason(season), nil
}

func (s *Server) handleGetCrop(ctx context.Context, args CropArgs) (any, error) {
	crop, err := catalog.FindCrop(s.catalog, args.CropID)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Crop '%s' not found. Use harvestpath_list_crops to see available crops.", args.CropID))
	}
	return crop, nil
}

func (s *Server) handleStartJourney(ctx context.Context, args StartJourneyArgs) (any, error) {
	res, err := s.journeys.StartJourney(ctx, args.UserID, args.CropID)
	if err != nil {
		return nil, friendly(err)
	}
	return map[string]any{
		"journey":    res.Journey,
		"redirected": res.Redirected,
	}, nil
}

func (s *Server) handleListJourneys(ctx context.Context, args UserArgs) (any, error) {
	journeys, err := s.journeys.ListJourneys(ctx, args.UserID)
	if err != nil {
		return nil, friendly(err)
	}
	out := make([]JourneySummary, 0, len(journeys))
	for i := range journeys {
		j := &journeys[i]
		out = append(out, JourneySummary{
			ID:                j.ID,
			CropID:            j.CropID,
			CropName:          j.CropName,
			Status:            j.Status,
			CurrentStepIndex:  j.CurrentStepIndex,
			CompletionPercent: journey.CompletionPercent(j),
			HealthScore:       j.HealthScore,
		})
	}
	return out, nil
}

func (s *Server) handleGetJourney(ctx context.Context, args JourneyArgs) (any, error) {
	o, err := s.journeys.Overview(ctx, args.UserID, args.JourneyID)
	if err != nil {
		return nil, friendly(err)
	}
	return o, nil
}

func (s *Server) handleSubmitProof(ctx context.Context, args SubmitProofArgs) (any, error) {
	data, err := base64.StdEncoding.DecodeString(args.ImageBase64)
	if err != nil {
		return nil, mcpErr("image_base64 is not valid base64.")
	}
	res, err := s.journeys.SubmitProof(ctx, args.UserID, args.JourneyID, args.StepIndex, verify.Proof{Data: data, MIMEType: args.MIMEType})
	if err != nil {
		return nil, friendly(err)
	}

	out := SubmitResponse{
		Verified:         res.Verdict.Verified,
		Reasoning:        res.Verdict.Reasoning,
		Outcome:          res.Transition.Outcome,
		CurrentStepIndex: res.Journey.CurrentStepIndex,
		Status:           res.Journey.Status,
		SensorFailure:    res.SensorFailure,
	}
	if res.RewardApplied {
		out.PointsEarned = res.Transition.Reward.Points
		out.EcoPointsEarned = res.Transition.Reward.EcoPoints
	}
	return out, nil
}

func (s *Server) handleResetJourney(ctx context.Context, args JourneyArgs) (any, error) {
	j, err := s.journeys.ResetJourney(ctx, args.UserID, args.JourneyID)
	if err != nil {
		return nil, friendly(err)
	}
	return j, nil
}

func (s *Server) handleAdjustHealth(ctx context.Context, args AdjustHealthArgs) (any, error) {
	j, err := s.journeys.AdjustHealth(ctx, args.UserID, args.JourneyID, args.Delta)
	if err != nil {
		return nil, friendly(err)
	}
	return map[string]any{"health_score": j.HealthScore, "status": j.Status}, nil
}

func (s *Server) handleGetBalance(ctx context.Context, args UserArgs) (any, error) {
	b, err := s.ledger.Balance(ctx, args.UserID)
	if err != nil {
		return nil, friendly(err)
	}
	return b, nil
}

func (s *Server) handleLedgerHistory(ctx context.Context, args HistoryArgs) (any, error) {
	entries, err := s.ledger.History(ctx, args.UserID, args.Limit)
	if err != nil {
		return nil, friendly(err)
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return entries, nil
}

// friendly maps domain errors to messages an MCP client can act on.
func friendly(err error) error {
	switch {
	case errors.Is(err, journey.ErrInvalidUser):
		return mcpErr("user_id is missing or invalid. Use letters, digits, '.', '_' or '-'.")
	case errors.Is(err, journey.ErrJourneyNotFound):
		return mcpErr("Journey not found. Use harvestpath_list_journeys to see the user's journeys.")
	case errors.Is(err, journey.ErrCropNotFound):
		return mcpErr("Crop not found. Use harvestpath_list_crops to see available crops.")
	case errors.Is(err, journey.ErrStepLocked):
		return mcpErr("This step is locked. Complete the current step first.")
	case errors.Is(err, journey.ErrStepNotFound):
		return mcpErr("The step does not exist in this journey's workflow.")
	case errors.Is(err, journey.ErrEmptyProof):
		return mcpErr("The proof image is empty.")
	case errors.Is(err, journey.ErrUnsupportedVerification):
		return mcpErr("This step cannot be verified with a photo yet.")
	case errors.Is(err, journey.ErrVerificationInProgress):
		return mcpErr("A proof for this journey is already being verified. Wait for it to finish.")
	case errors.Is(err, journey.ErrInvalidTransition):
		return mcpErr("The journey is not active. Reset it to start a new run.")
	case errors.Is(err, journey.ErrPersistence):
		return mcpErr("Progress could not be saved. Try again.")
	default:
		return mcpErr("The request failed. Check the arguments and try again.")
	}
}
