package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMail_RejectsUnknownType(t *testing.T) {
	_, err := buildMail("noreply@example.com", []byte(`{"type":"reset_password","to":"a@example.com","data":{}}`))
	require.Error(t, err)
}

func TestBuildMail_RejectsMalformedBody(t *testing.T) {
	_, err := buildMail("noreply@example.com", []byte(`not json`))
	require.Error(t, err)
}

func TestBuildMail_RejectsMalformedData(t *testing.T) {
	_, err := buildMail("noreply@example.com", []byte(`{"type":"roster_import_report","to":"a@example.com","data":{"imported":"many"}}`))
	require.Error(t, err)
}

func TestMailTemplates_RosterImportReport(t *testing.T) {
	mt, ok := mailTemplates["roster_import_report"]
	require.True(t, ok)

	data, err := mt.data([]byte(`{"siteId":"s1","date":"2026-10-14","imported":3}`))
	require.NoError(t, err)
	require.NotNil(t, data)
}
