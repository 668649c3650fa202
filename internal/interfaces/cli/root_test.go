package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPartnerID = "96a660ff-08e0-49c1-be6d-bb22a84e742e"

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"partner.csv":       "partner_id,partner_name,partner_open_date\n" + testPartnerID + ",Acme Trading Ltd,2024-01-15\n",
		"partner_role.csv":  "partner_id,entity_type,entity_id\n" + testPartnerID + ",BR,BR-1\n",
		"business_rel.csv":  "br_id,br_open_date\nBR-1,2024-01-15\n",
		"br_to_account.csv": "br_id,account_id\nBR-1,ACC-1\n",
		"account.csv":       "account_id,currency\nACC-1,EUR\n",
		"transactions.csv":  "account_id,date,amount,currency,debit_credit\nACC-1,2024-06-01,120.50,EUR,debit\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func setTestEnv(t *testing.T, csvDir, llmURL string) {
	t.Helper()
	t.Setenv("FINSENTRY_DATA_DRIVER", "csv")
	t.Setenv("FINSENTRY_DATA_CSV_DIR", csvDir)
	t.Setenv("FINSENTRY_LLM_BASE_URL", llmURL)
}

func fakeLlama(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":` +
			string(mustJSON(t, content)) + `}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"assess", "profile", "ask", "chat"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestProfileCommand_TextOutput(t *testing.T) {
	setTestEnv(t, writeFixtures(t), fakeLlama(t, "unused").URL)

	out, err := runCommand(t, "profile", testPartnerID)
	require.NoError(t, err)
	assert.Contains(t, out, "=== UNIFIED CUSTOMER PROFILE ===")
	assert.Contains(t, out, "Acme Trading Ltd")
}

func TestProfileCommand_JSONOutput(t *testing.T) {
	setTestEnv(t, writeFixtures(t), fakeLlama(t, "unused").URL)

	out, err := runCommand(t, "profile", testPartnerID, "--output", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, testPartnerID, decoded["canonical_id"])
}

func TestProfileCommand_UnknownPartnerFails(t *testing.T) {
	setTestEnv(t, writeFixtures(t), fakeLlama(t, "unused").URL)

	_, err := runCommand(t, "profile", "11111111-1111-1111-1111-111111111111")
	require.Error(t, err)
}

func TestAssessCommand_Enhanced(t *testing.T) {
	setTestEnv(t, writeFixtures(t), fakeLlama(t, "RISK_SCORE: 35\nRATIONALE: Low activity.").URL)

	out, err := runCommand(t, "assess", testPartnerID)
	require.NoError(t, err)
	assert.Contains(t, out, "Risk score: 35 (low)")
	assert.Contains(t, out, "Feature contributions:")
	assert.Contains(t, out, "transaction_activity")
}

func TestAssessCommand_Basic(t *testing.T) {
	setTestEnv(t, writeFixtures(t), fakeLlama(t, "RISK_SCORE: 72\nRATIONALE: Burst of transfers.").URL)

	out, err := runCommand(t, "assess", testPartnerID, "--basic")
	require.NoError(t, err)
	assert.Contains(t, out, "Risk score: 72 (high)")
	assert.Contains(t, out, "Burst of transfers.")
	assert.NotContains(t, out, "Feature contributions:")
}

func TestAskCommand(t *testing.T) {
	setTestEnv(t, writeFixtures(t), fakeLlama(t, "The customer is Acme Trading Ltd.").URL)

	out, err := runCommand(t, "ask", testPartnerID, "Who", "is", "this", "customer?")
	require.NoError(t, err)
	assert.Contains(t, out, "The customer is Acme Trading Ltd.")
	assert.Contains(t, out, "Grounded in:")
}

func TestAssessCommand_RequiresArg(t *testing.T) {
	_, err := runCommand(t, "assess")
	require.Error(t, err)
}
