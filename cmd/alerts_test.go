//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/risk-cli/internal/alerting"
)

func TestAlertsCmd_Metadata(t *testing.T) {
	assert.Equal(t, "alerts", alertsCmd.Use)
	names := make(map[string]bool)
	for _, c := range alertsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "watch", "subscriptions"} {
		assert.True(t, names[want], "subcommand %s", want)
	}
}

func TestReportAlertSummary_ItemErrorsStillSucceed(t *testing.T) {
	var buf bytes.Buffer
	alertsRunCmd.SetOut(&buf)
	defer alertsRunCmd.SetOut(nil)

	sum := alerting.Summary{Candidates: 4, Created: 1, Errors: 3}
	require.NoError(t, reportAlertSummary(alertsRunCmd, sum))

	var got alerting.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got.Errors)
	assert.Equal(t, 1, got.Created)
}
