package server

import (
	"context"
	"log/slog"

	"github.com/snapflowhq/snapflow/internal/experience"
)

// SeedDemo creates the demo project with a published event wiring all
// three journey slots. Idempotent: does nothing if any project exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, admin AdminStore, projects *Registry) error {
	existing, err := admin.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	if err := admin.CreateProject(ctx, "demo", "Demo"); err != nil {
		return err
	}
	store, err := projects.Create(ctx, "demo")
	if err != nil {
		return err
	}

	pregate, err := store.CreateExperience(ctx, "Welcome Survey", experience.ProfileSurvey, experience.Snapshot{
		Intro: "A couple of quick questions before you start.",
		Steps: []experience.Step{
			{ID: "mood", Type: experience.StepChoice, Config: experience.ChoiceConfig{
				Prompt:  "How are you feeling tonight?",
				Options: []string{"Excited", "Curious", "Here for the snacks"},
			}},
			{ID: "heard-from", Type: experience.StepInput, Config: experience.InputConfig{
				Label:       "How did you hear about us?",
				Placeholder: "A friend, a poster...",
			}},
		},
	})
	if err != nil {
		return err
	}

	portrait, err := store.CreateExperience(ctx, "Neon Portrait", experience.ProfileFreeform, experience.Snapshot{
		Intro: "Strike a pose and we'll neon-ify you.",
		Outro: "Your portrait is on its way to the big screen.",
		Steps: []experience.Step{
			{ID: "shot", Type: experience.StepCapture, Config: experience.CaptureConfig{
				Facing:    "front",
				Countdown: 3,
			}},
			{ID: "style", Type: experience.StepTransform, Config: experience.TransformConfig{
				SourceStep: "shot",
				Style:      "neon",
				Strength:   0.8,
			}},
			{ID: "caption", Type: experience.StepInput, Config: experience.InputConfig{
				Label:     "Give your portrait a caption",
				MaxLength: 80,
			}},
		},
	})
	if err != nil {
		return err
	}

	preshare, err := store.CreateExperience(ctx, "Share Consent", experience.ProfileInformational, experience.Snapshot{
		Intro: "One last thing before your portrait goes up.",
		Steps: []experience.Step{
			{ID: "consent", Type: experience.StepChoice, Config: experience.ChoiceConfig{
				Prompt:  "May we show your portrait on the event screen?",
				Options: []string{"Yes, show it", "No, keep it private"},
			}},
		},
	})
	if err != nil {
		return err
	}

	for _, id := range []string{pregate.ID, portrait.ID, preshare.ID} {
		if _, err := store.PublishExperience(ctx, id); err != nil {
			return err
		}
	}

	ev, err := store.CreateEvent(ctx, "Launch Party", experience.SlotMap{
		Pregate:  pregate.ID,
		Main:     portrait.ID,
		Preshare: preshare.ID,
	})
	if err != nil {
		return err
	}
	if _, err := store.PublishEvent(ctx, ev.ID); err != nil {
		return err
	}

	logger.Info("demo project created and seeded", "event", ev.ID)
	return nil
}
