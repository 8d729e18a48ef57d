package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverJSONBlockObject(t *testing.T) {
	raw := "INFO starting up\nDEBUG parsed page 1\n{\"transactions\":[{\"amount\":1}]}\n"
	block, ok := recoverJSONBlock(raw)
	require.True(t, ok)
	require.Equal(t, `{"transactions":[{"amount":1}]}`, block)
}

func TestRecoverJSONBlockArray(t *testing.T) {
	raw := "log line\n[{\"a\":1},{\"b\":2}]"
	block, ok := recoverJSONBlock(raw)
	require.True(t, ok)
	require.Equal(t, `[{"a":1},{"b":2}]`, block)
}

func TestRecoverJSONBlockNoBrackets(t *testing.T) {
	_, ok := recoverJSONBlock("plain text, no json here")
	require.False(t, ok)
}

func TestIsNoCreditRowsMarker(t *testing.T) {
	require.True(t, isNoCreditRowsMarker("WARN: No credit rows found for account"))
	require.False(t, isNoCreditRowsMarker(`{"transactions":[]}`))
}

func TestParseExtractorOutputSuccess(t *testing.T) {
	raw := `{"source_file":"a.pdf","transactions":[{"amount":100,"purpose":"Оплата"}]}`
	res := parseExtractorOutput("a.pdf", raw)
	require.Empty(t, res.Error)
	require.Len(t, res.Transactions, 1)
}

func TestParseExtractorOutputErrorStatus(t *testing.T) {
	raw := `{"status":"error","error":"could not read pdf"}`
	res := parseExtractorOutput("b.pdf", raw)
	require.Equal(t, "could not read pdf", res.Error)
	require.Nil(t, res.Transactions)
}

func TestParseExtractorOutputNoCreditRows(t *testing.T) {
	res := parseExtractorOutput("c.pdf", "No credit rows found")
	require.Empty(t, res.Error)
	require.NotNil(t, res.Transactions)
	require.Len(t, res.Transactions, 0)
}
