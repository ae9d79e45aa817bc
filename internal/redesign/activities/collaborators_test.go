package activities

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollaborators_IntakeUnavailable(t *testing.T) {
	c := NewCollaborators(NewUpstream(UpstreamConfig{BaseURL: "http://localhost:1"}), nil, NewPurger(nil, "", ""))
	assert.False(t, c.IntakeEnabled())

	_, err := c.Intake(context.Background(), domain.IntakeInput{Message: "hi"})
	var ce *domain.CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.ErrorKindUnavailable, ce.Kind)
	assert.False(t, ce.Retryable)

	assert.NoError(t, c.Purge(context.Background(), "prj_1"))
}

func TestCollaborators_RoutesToUpstream(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewCollaborators(NewUpstream(UpstreamConfig{BaseURL: server.URL, RPS: 100}), nil, nil)
	ctx := context.Background()
	_, _ = c.Analyze(ctx, domain.AnalysisInput{})
	_, _ = c.Generate(ctx, domain.GenerationInput{})
	_, _ = c.Edit(ctx, domain.EditInput{})
	_, _ = c.Shop(ctx, domain.ShoppingInput{})

	assert.Equal(t, []string{"/v1/analyze", "/v1/generate", "/v1/edit", "/v1/shop"}, paths)
}
