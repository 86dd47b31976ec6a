package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/pipeline"
)

type mockSelector struct{ mock.Mock }

func (m *mockSelector) Classify(ctx context.Context, query string) models.ExpertID {
	return m.Called(ctx, query).Get(0).(models.ExpertID)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func expertPipeline(id models.ExpertID, reply string) *pipeline.Pipeline {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(reply, nil)
	return pipeline.New(pipeline.Config{Expert: id}, pipeline.Deps{Generator: gen})
}

func TestAskDispatchesToSelectedExpert(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Classify", mock.Anything, "En iyi kaleci kim?").Return(models.ExpertSports)

	reg := New(
		Entry{ID: models.ExpertSports, Pipeline: expertPipeline(models.ExpertSports, "Volkan")},
		Entry{ID: models.ExpertFood, Pipeline: expertPipeline(models.ExpertFood, "Mantı")},
	)
	svc := NewService(sel, reg, nil, nil)

	a := svc.Ask(context.Background(), "En iyi kaleci kim?")

	assert.Equal(t, models.ExpertSports, a.Expert)
	assert.Equal(t, "Volkan", a.Text)
	assert.Equal(t, models.SourceGeneration, a.Source)
	sel.AssertExpectations(t)
}

func TestAskNoneUsesGenericPath(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Classify", mock.Anything, mock.Anything).Return(models.ExpertNone)

	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, GenericPrompt, "Soru: Merhaba").Return("Merhaba!", nil).Once()

	svc := NewService(sel, New(), NewGeneric(gen, nil, nil, nil), nil)
	a := svc.Ask(context.Background(), "Merhaba")

	assert.Equal(t, models.ExpertNone, a.Expert)
	assert.Equal(t, models.SourceGeneration, a.Source)
	assert.Equal(t, "Merhaba!", a.Text)
	assert.Equal(t, 0.5, a.Confidence)
	assert.False(t, a.Supported)
	gen.AssertExpectations(t)
}

func TestAskUnregisteredExpertUsesGenericPath(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Classify", mock.Anything, mock.Anything).Return(models.ExpertSudostar)

	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("genel cevap", nil)

	reg := New(Entry{ID: models.ExpertSports, Pipeline: expertPipeline(models.ExpertSports, "spor")})
	a := NewService(sel, reg, NewGeneric(gen, nil, nil, nil), nil).Ask(context.Background(), "SudoStar nedir?")

	assert.Equal(t, models.ExpertNone, a.Expert)
	assert.Equal(t, "genel cevap", a.Text)
}

func TestGenericFailureIsUnresolved(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("boom"))

	a := NewGeneric(gen, nil, nil, nil).Resolve(context.Background(), "soru")

	assert.Equal(t, models.OutcomeUnresolved, a.Outcome)
	assert.Equal(t, models.UnresolvedMessage, a.Text)
	assert.Equal(t, models.ExpertNone, a.Expert)
}

func TestGenericPanicIsInternalError(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Panic("unexpected")

	a := NewGeneric(gen, nil, nil, nil).Resolve(context.Background(), "soru")

	assert.Equal(t, models.OutcomeError, a.Outcome)
	assert.Equal(t, models.InternalErrorMessage, a.Text)
}

func TestAskExpertSkipsClassification(t *testing.T) {
	sel := &mockSelector{}
	reg := New(Entry{ID: models.ExpertFood, Pipeline: expertPipeline(models.ExpertFood, "Baklava")})

	a := NewService(sel, reg, nil, nil).AskExpert(context.Background(), models.ExpertFood, "Tatlı önerisi?")

	assert.Equal(t, "Baklava", a.Text)
	sel.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestAskEmptyQueryDoesNotClassify(t *testing.T) {
	sel := &mockSelector{}

	a := NewService(sel, New(), nil, nil).Ask(context.Background(), "   ")

	assert.Equal(t, models.OutcomeUnresolved, a.Outcome)
	sel.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}
