package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsentry/aml-insight/internal/application/assessment"
	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/application/query"
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
		ID: testPartnerID, Name: "Acme Trading Ltd", OpenDate: &open,
	}
	store.Roles[testPartnerID] = []partner.Role{
		{PartnerID: testPartnerID, EntityType: "BR", EntityID: "BR-1"},
	}
	store.BusinessRels["BR-1"] = partner.BusinessRel{ID: "BR-1"}
	store.AccountLinks["BR-1"] = []string{"ACC-1"}
	store.AccountRows["ACC-1"] = partner.Account{ID: "ACC-1", Currency: "EUR"}
	return store
}

func newRouter(store *testutil.FakeStore, client *testutil.FakeLLM) *Router {
	log := logging.NewNopLogger()
	builder := appprofile.NewBuilder(store, log, nil)
	assessor := assessment.NewExplainableAssessor(builder, client, "explainable-v1", log, nil)
	answerer := query.NewAnswerer(builder, client, log, nil)
	return NewRouter(assessor, answerer, log, nil)
}

func TestRoute_AssessmentIntentWithInlineID(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 55\nRATIONALE: Elevated velocity."}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"Assess risk for partner "+testPartnerID, nil)

	assert.Equal(t, ActionRiskAssessment, reply.Action)
	assert.Equal(t, testPartnerID, reply.PartnerID)
	assert.Contains(t, reply.Response, "Risk score: 55 (moderate)")
	assert.Contains(t, reply.Response, "Elevated velocity.")
	require.NotNil(t, reply.Data)
}

func TestRoute_QuestionIntent(t *testing.T) {
	client := &testutil.FakeLLM{Response: "The customer is Acme Trading Ltd."}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"Who is partner "+testPartnerID+"?", nil)

	assert.Equal(t, ActionQuestion, reply.Action)
	assert.Equal(t, testPartnerID, reply.PartnerID)
	assert.Contains(t, reply.Response, "Acme Trading Ltd")
}

func TestRoute_IdentifierCarriedFromHistory(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 20\nRATIONALE: Quiet."}
	router := newRouter(seededStore(), client)

	history := []Turn{
		{Role: "user", Content: "Tell me about partner " + testPartnerID},
		{Role: "assistant", Content: "It is a trading company."},
	}
	reply := router.Route(context.Background(), "Now assess the fraud risk", history)

	assert.Equal(t, ActionRiskAssessment, reply.Action)
	assert.Equal(t, testPartnerID, reply.PartnerID)
}

func TestRoute_MostRecentHistoryIdentifierWins(t *testing.T) {
	otherID := "11111111-2222-3333-4444-555555555555"
	store := seededStore()
	store.Partners[otherID] = partner.Partner{ID: otherID, Name: "Other Co"}
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 20\nRATIONALE: Quiet."}
	router := newRouter(store, client)

	history := []Turn{
		{Role: "user", Content: "Look at partner " + otherID},
		{Role: "user", PartnerID: testPartnerID, Content: "Switch to the trading company"},
	}
	reply := router.Route(context.Background(), "Run a risk screening", history)

	assert.Equal(t, testPartnerID, reply.PartnerID)
}

func TestRoute_ExplicitTurnIdentifierBeatsContent(t *testing.T) {
	otherID := "11111111-2222-3333-4444-555555555555"
	store := seededStore()
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 20\nRATIONALE: Quiet."}
	router := newRouter(store, client)

	history := []Turn{
		{Role: "user", PartnerID: testPartnerID, Content: "Compare with " + otherID},
	}
	reply := router.Route(context.Background(), "Assess the risk", history)

	assert.Equal(t, testPartnerID, reply.PartnerID)
}

func TestRoute_RiskIntentWithoutIdentifierAsksForOne(t *testing.T) {
	router := newRouter(seededStore(), &testutil.FakeLLM{})

	reply := router.Route(context.Background(), "Assess the fraud risk please", nil)

	assert.Equal(t, ActionHelp, reply.Action)
	assert.Contains(t, reply.Response, "partner identifier")
}

func TestRoute_NoIntentNoIdentifierYieldsHelp(t *testing.T) {
	client := &testutil.FakeLLM{}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(), "hello there", nil)

	assert.Equal(t, ActionHelp, reply.Action)
	assert.Contains(t, reply.Response, "Assess risk for partner")
	assert.Zero(t, client.Calls)
}

func TestRoute_BareIdentifierTreatedAsQuestion(t *testing.T) {
	client := &testutil.FakeLLM{Response: "A trading company in good standing."}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(), testPartnerID, nil)

	assert.Equal(t, ActionQuestion, reply.Action)
	assert.Equal(t, testPartnerID, reply.PartnerID)
}

func TestRoute_UnknownPartnerYieldsErrorAction(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 20\nRATIONALE: Quiet."}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"Assess risk for partner 99999999-9999-9999-9999-999999999999", nil)

	assert.Equal(t, ActionError, reply.Action)
	assert.Contains(t, reply.Response, "could not find a partner")
}

func TestRoute_GenerationOutageYieldsErrorActionForQuestions(t *testing.T) {
	client := &testutil.FakeLLM{Err: errors.LLMUnavailable(context.DeadlineExceeded)}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"What is the spending of partner "+testPartnerID+"?", nil)

	assert.Equal(t, ActionError, reply.Action)
	assert.Contains(t, reply.Response, "unavailable")
}

func TestRoute_AssessmentSurvivesGenerationOutage(t *testing.T) {
	client := &testutil.FakeLLM{Err: errors.LLMUnavailable(context.DeadlineExceeded)}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"Assess risk for partner "+testPartnerID, nil)

	assert.Equal(t, ActionRiskAssessment, reply.Action,
		"rule-based contributions still produce an assessment reply")
	assert.Contains(t, reply.Response, "unavailable")
}

func TestRoute_MarkdownStrippedFromReplies(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 80\nRATIONALE: **Very** `high` risk."}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"Assess risk for partner "+testPartnerID, nil)

	assert.Contains(t, reply.Response, "Very high risk.")
	assert.NotContains(t, reply.Response, "**")
	assert.NotContains(t, reply.Response, "`")
}

func TestRoute_UppercaseUUIDNormalized(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 20\nRATIONALE: Quiet."}
	router := newRouter(seededStore(), client)

	reply := router.Route(context.Background(),
		"Assess risk for partner "+"96A660FF-08E0-49C1-BE6D-BB22A84E742E", nil)

	assert.Equal(t, testPartnerID, reply.PartnerID)
}
