package classifier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/retry"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		reply string
		want  models.ExpertID
	}{
		{"sports", models.ExpertSports},
		{"  Food\n", models.ExpertFood},
		{"AI", models.ExpertAI},
		{"sudostar", models.ExpertSudostar},
		{"general", models.ExpertGeneral},
		{"Bu soru spor ile ilgili görünüyor.", models.ExpertGeneral},
		{"none", models.ExpertGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			gen := &mockGenerator{}
			gen.On("Complete", mock.Anything, Prompt, "soru").Return(tt.reply, nil).Once()

			got := New(gen, nil, nil).Classify(context.Background(), "soru")
			assert.Equal(t, tt.want, got)
			gen.AssertExpectations(t)
		})
	}
}

func TestClassifyFailureGivesNone(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, Prompt, "soru").Return("", fmt.Errorf("%w: boom", llm.ErrAuth))

	assert.Equal(t, models.ExpertNone, New(gen, nil, nil).Classify(context.Background(), "soru"))
}

func TestClassifyEmptyReplyGivesNone(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, Prompt, "soru").Return("   ", nil)

	assert.Equal(t, models.ExpertNone, New(gen, nil, nil).Classify(context.Background(), "soru"))
}

func TestClassifyRetriesRateLimit(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, Prompt, "maç sonucu").Return("", llm.ErrRateLimited).Once()
	gen.On("Complete", mock.Anything, Prompt, "maç sonucu").Return("sports", nil).Once()

	policy := retry.New(retry.Config{}, llm.Classify, retry.WithSleep(func(context.Context, time.Duration) error { return nil }))
	got := New(gen, policy, nil).Classify(context.Background(), "maç sonucu")

	assert.Equal(t, models.ExpertSports, got)
	gen.AssertNumberOfCalls(t, "Complete", 2)
}

func TestClassifyExhaustedGivesNone(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Complete", mock.Anything, Prompt, "q").Return("", llm.ErrTransient)

	policy := retry.New(retry.Config{MaxAttempts: 2}, llm.Classify, retry.WithSleep(func(context.Context, time.Duration) error { return nil }))
	assert.Equal(t, models.ExpertNone, New(gen, policy, nil).Classify(context.Background(), "q"))
	gen.AssertNumberOfCalls(t, "Complete", 2)
}
