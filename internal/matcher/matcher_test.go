package matcher

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/relief-tracker/internal/embed"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

type fakeGenerator struct {
	fn    func(ctx context.Context, prompt string) (string, error)
	calls atomic.Int32
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx, prompt)
}

func newRetriever(t *testing.T) *rules.Retriever {
	t.Helper()
	ix, err := rules.Build(context.Background(), rules.DefaultRules(), embed.NewLexical())
	require.NoError(t, err)
	return rules.NewRetriever(ix, nil)
}

func fastConfig() Config {
	return Config{
		TopK:    3,
		Timeout: time.Second,
		Retry:   llm.RetryConfig{MaxAttempts: 2, BackoffBase: time.Millisecond, BackoffMultiplier: 1, MaxBackoff: time.Millisecond},
	}
}

var laptop = entity.ExpenseItem{Name: "Laptop", Price: 1500, Category: "electronics", Merchant: "TechStore", Date: "2024-11-04"}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t,
		"The receipt is from TechStore, category electronics, with RM 1500.00 spent on 2024-11-04. "+
			"What deductions can I make based on Malaysian LHDN tax rules?",
		BuildQuery(laptop))
}

func TestMatch_GroundsPromptAndResolvesRule(t *testing.T) {
	gen := &fakeGenerator{fn: func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "electronics, sports equipment, and books")
		assert.Contains(t, prompt, "Merchant: TechStore")
		return "Deductible: yes\nCategory: Lifestyle relief\nClaimable: RM1500", nil
	}}
	m := New(newRetriever(t), gen, fastConfig(), nil)

	res := m.Match(context.Background(), laptop)
	assert.True(t, res.IsDeductible)
	assert.Equal(t, "Lifestyle relief", res.MatchedCategory)
	assert.Equal(t, "RM1500", res.SuggestedClaim)
	assert.Equal(t, "Lifestyle", res.MatchedRule)
	assert.Empty(t, res.Error)
}

func TestMatch_UnknownCategoryLeavesRuleEmpty(t *testing.T) {
	gen := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		return "Deductible: no\nCategory: Groceries\nClaimable: RM0", nil
	}}
	res := New(newRetriever(t), gen, fastConfig(), nil).Match(context.Background(), laptop)
	assert.False(t, res.IsDeductible)
	assert.Equal(t, "Groceries", res.MatchedCategory)
	assert.Empty(t, res.MatchedRule)
}

func TestMatch_PreambleDoesNotOverrideNegativeMarker(t *testing.T) {
	gen := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		return "Here is my assessment of whether this laptop is deductible.\nDeductible: No\nCategory: none\nClaimable: RM0", nil
	}}
	res := New(newRetriever(t), gen, fastConfig(), nil).Match(context.Background(), laptop)
	assert.False(t, res.IsDeductible)
	assert.Empty(t, res.MatchedCategory)
	assert.Empty(t, res.MatchedRule)
}

func TestMatch_FatalErrorIsAnnotated(t *testing.T) {
	gen := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		return "", llm.NewFatalError(errors.New("invalid api key"))
	}}
	res := New(newRetriever(t), gen, fastConfig(), nil).Match(context.Background(), laptop)

	assert.False(t, res.IsDeductible)
	assert.False(t, res.Transient)
	assert.Contains(t, res.Error, "invalid api key")
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestMatch_TransientErrorIsRetried(t *testing.T) {
	gen := &fakeGenerator{}
	gen.fn = func(context.Context, string) (string, error) {
		if gen.calls.Load() == 1 {
			return "", llm.NewTransientError(errors.New("503"))
		}
		return "Deductible: yes\nCategory: Lifestyle\nClaimable: RM1500", nil
	}
	res := New(newRetriever(t), gen, fastConfig(), nil).Match(context.Background(), laptop)

	assert.True(t, res.IsDeductible)
	assert.Empty(t, res.Error)
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestMatch_TimeoutBecomesTransientAnnotation(t *testing.T) {
	gen := &fakeGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	cfg := fastConfig()
	cfg.Timeout = 10 * time.Millisecond
	res := New(newRetriever(t), gen, cfg, nil).Match(context.Background(), laptop)

	assert.False(t, res.IsDeductible)
	assert.True(t, res.Transient)
	assert.True(t, strings.HasPrefix(res.Error, "match timeout"), res.Error)
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestMatch_RetrieverFailure(t *testing.T) {
	gen := &fakeGenerator{fn: func(context.Context, string) (string, error) { return "", nil }}
	res := New(rules.NewRetriever(nil, nil), gen, fastConfig(), nil).Match(context.Background(), laptop)

	assert.Contains(t, res.Error, "retrieve rules")
	assert.Zero(t, gen.calls.Load())
}
