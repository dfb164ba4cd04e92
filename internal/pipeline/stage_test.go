package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

func TestTransitionTable(t *testing.T) {
	legal := map[Stage][]models.Status{
		StageTranscribe: {models.StatusUploaded, models.StatusError, models.StatusTranscribed},
		StageGenerate:   {models.StatusTranscribed, models.StatusGenerated, models.StatusError},
		StageProcess:    {models.StatusTranslated, models.StatusCompleted, models.StatusError},
	}

	for stage, sources := range legal {
		allowed := make(map[models.Status]bool)
		for _, s := range sources {
			allowed[s] = true
		}
		for _, status := range models.AllStatuses() {
			assert.Equal(t, allowed[status], stage.AcceptsFrom(status), "%s from %s", stage, status)
		}
	}

	for _, stage := range []Stage{StageTranslate, StageRegenerateOverlay, StageRegeneratePost} {
		for _, status := range models.AllStatuses() {
			assert.True(t, stage.AcceptsFrom(status), "%s from %s", stage, status)
		}
	}
}

func TestRunningStatus(t *testing.T) {
	assert.Equal(t, models.StatusTranscribing, StageTranscribe.RunningStatus())
	assert.Equal(t, models.StatusGenerating, StageGenerate.RunningStatus())
	assert.Equal(t, models.StatusGenerating, StageRegenerateOverlay.RunningStatus())
	assert.Equal(t, models.StatusGenerating, StageRegeneratePost.RunningStatus())
	assert.Equal(t, models.StatusTranslating, StageTranslate.RunningStatus())
	assert.Equal(t, models.StatusProcessing, StageProcess.RunningStatus())

	for _, stage := range Stages() {
		assert.True(t, stage.RunningStatus().InProgress(), stage)
	}
}

func TestCheckTransitionPrerequisites(t *testing.T) {
	p := &models.ProductionProject{Status: models.StatusGenerated}

	err := CheckTransition(StageRegenerateOverlay, p)
	var transitionErr *TransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Contains(t, err.Error(), "overlay has not been generated")

	err = CheckTransition(StageRegeneratePost, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post has not been generated")

	p.OverlaySubtitles = models.Captions{{Start: 0, End: 1, Text: "x"}}
	p.PostText = "post"
	assert.NoError(t, CheckTransition(StageRegenerateOverlay, p))
	assert.NoError(t, CheckTransition(StageRegeneratePost, p))

	p.Status = models.StatusTranslated
	err = CheckTransition(StageProcess, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translations are empty")

	p.Translations = models.Translations{"en": {}}
	assert.NoError(t, CheckTransition(StageProcess, p))
}

func TestCheckTransitionIsValidationError(t *testing.T) {
	p := &models.ProductionProject{Status: models.StatusGenerating}
	err := CheckTransition(StageTranscribe, p)

	var validation *failure.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "cannot run transcribe from status generating", validation.Message)
	assert.Equal(t, "validation", failure.Kind(err))
	assert.Equal(t, models.StatusGenerating, p.Status)
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		input string
		want  Stage
	}{
		{"transcribe", StageTranscribe},
		{"regenerate-overlay", StageRegenerateOverlay},
		{"regenerate_post", StageRegeneratePost},
		{" Process ", StageProcess},
	}
	for _, tt := range tests {
		got, err := ParseStage(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStage("publish")
	var validation *failure.ValidationError
	assert.True(t, errors.As(err, &validation))
}
