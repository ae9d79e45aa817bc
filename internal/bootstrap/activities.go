package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/roomcraft/roomcraft-backend/config"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/activities"
)

// BuildActivities wires the external collaborators from configuration. The
// intake agent and the artifact purger are optional.
func BuildActivities(ctx context.Context, cfg *config.Config) (*activities.Collaborators, error) {
	upstream := activities.NewUpstream(activities.UpstreamConfig{
		BaseURL: cfg.Upstream.URL,
		RPS:     cfg.Upstream.RPS,
		Timeout: cfg.Upstream.Timeout,
	})

	var intake activities.IntakeClient
	if cfg.IntakeEnabled() {
		agent, err := activities.NewIntakeAgent(cfg.Intake.APIKey, cfg.Intake.Model)
		if err != nil {
			return nil, fmt.Errorf("intake agent: %w", err)
		}
		intake = agent
	} else {
		log.Println("[warn] operation=bootstrap.activities intake=disabled reason=ANTHROPIC_API_KEY not set")
	}

	var purger *activities.Purger
	if cfg.S3.Bucket != "" {
		client, err := activities.NewS3Client(ctx, cfg.S3.Region, cfg.S3.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		purger = activities.NewPurger(client, cfg.S3.Bucket, cfg.S3.Prefix)
	} else {
		log.Println("[warn] operation=bootstrap.activities purge=store_only reason=S3_BUCKET not set")
	}

	return activities.NewCollaborators(upstream, intake, purger), nil
}
