package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/testutil"
	"github.com/finsentry/aml-insight/pkg/errors"
)

const testPartnerID = "96a660ff-08e0-49c1-be6d-bb22a84e742e"

func seededStore() *testutil.FakeStore {
	store := testutil.NewFakeStore()
	open := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	store.Partners[testPartnerID] = partner.Partner{
		ID: testPartnerID, Name: "Acme Trading Ltd",
		Address: "12 Harbour Street", OpenDate: &open,
	}
	store.Roles[testPartnerID] = []partner.Role{
		{PartnerID: testPartnerID, EntityType: "BR", EntityID: "BR-1"},
	}
	store.BusinessRels["BR-1"] = partner.BusinessRel{ID: "BR-1"}
	store.AccountLinks["BR-1"] = []string{"ACC-1"}
	store.AccountRows["ACC-1"] = partner.Account{ID: "ACC-1", Currency: "EUR"}
	store.Transactions["ACC-1"] = []partner.Transaction{
		{AccountID: "ACC-1", Date: open.AddDate(0, 1, 0), Amount: 250, Currency: "EUR", Direction: "debit"},
	}
	return store
}

func newAnswerer(store *testutil.FakeStore, client *testutil.FakeLLM) *Answerer {
	builder := appprofile.NewBuilder(store, logging.NewNopLogger(), nil)
	return NewAnswerer(builder, client, logging.NewNopLogger(), nil)
}

func TestAnswer_FinancialQuestionSelectsFinancialContext(t *testing.T) {
	client := &testutil.FakeLLM{Response: "Total spending over 90 days is 250."}

	answer, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "How much spending in the last 90 days?")
	require.NoError(t, err)

	assert.Contains(t, answer.UCPSnapshot, "financial_aggregates")
	assert.Contains(t, answer.UCPSnapshot, "recent_transactions")
	assert.NotContains(t, answer.UCPSnapshot, "identity",
		"a purely financial question must not pull identity data into the prompt")
	assert.Contains(t, answer.UCPSnapshot, "canonical_id")
}

func TestAnswer_IdentityQuestionSelectsIdentityContext(t *testing.T) {
	client := &testutil.FakeLLM{Response: "The customer is Acme Trading Ltd."}

	answer, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "Who is this customer?")
	require.NoError(t, err)

	assert.Contains(t, answer.UCPSnapshot, "identity")
	assert.Contains(t, answer.UCPSnapshot, "static_profile")
	assert.NotContains(t, answer.UCPSnapshot, "financial_aggregates")
}

func TestAnswer_UnmatchedQuestionFallsBackToDefaults(t *testing.T) {
	client := &testutil.FakeLLM{Response: "Nothing notable."}

	answer, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "Anything notable here")
	require.NoError(t, err)

	assert.Contains(t, answer.UCPSnapshot, "identity")
	assert.Contains(t, answer.UCPSnapshot, "financial_aggregates")
}

func TestAnswer_CitationsOnlyForValuesInAnswer(t *testing.T) {
	client := &testutil.FakeLLM{Response: "The customer is Acme Trading Ltd."}

	answer, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "What is the name of this customer?")
	require.NoError(t, err)

	assert.Contains(t, answer.Citations, Citation{Field: "identity.name", Value: "Acme Trading Ltd"})
	for _, c := range answer.Citations {
		assert.NotContains(t, c.Field, "address",
			"the address never appears in the answer, so it must not be cited")
	}
}

func TestAnswer_NoCitationsWhenAnswerQuotesNothing(t *testing.T) {
	client := &testutil.FakeLLM{Response: "The data does not contain that information."}

	answer, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "What is their favourite colour?")
	require.NoError(t, err)
	assert.Empty(t, answer.Citations)
}

func TestAnswer_PromptCarriesContextAndQuestion(t *testing.T) {
	client := &testutil.FakeLLM{Response: "Acme Trading Ltd."}

	_, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "Who is this customer?")
	require.NoError(t, err)

	assert.Contains(t, client.LastRequest.Prompt, "Acme Trading Ltd")
	assert.Contains(t, client.LastRequest.Prompt, "Question: Who is this customer?")
	assert.Contains(t, client.LastRequest.System, "Do not produce a general profile")
}

func TestAnswer_UnknownPartner(t *testing.T) {
	client := &testutil.FakeLLM{}

	_, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		"33333333-3333-3333-3333-333333333333", "Who is this?")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePartnerNotFound))
	assert.Zero(t, client.Calls)
}

func TestAnswer_GenerationFailurePropagates(t *testing.T) {
	client := &testutil.FakeLLM{Err: errors.LLMUnavailable(context.DeadlineExceeded)}

	_, err := newAnswerer(seededStore(), client).Answer(context.Background(),
		testPartnerID, "Who is this customer?")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLLMUnavailable))
}
