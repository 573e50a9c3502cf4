package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func noProcessEnvironment(string) (string, bool) {
	return "", false
}

func writeEnvFile(testingT *testing.T, content string) string {
	testingT.Helper()
	path := filepath.Join(testingT.TempDir(), ".env")
	require.NoError(testingT, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func completeEnvFileContent() string {
	return strings.Join([]string{
		"RECAPTCHA_SECRET_KEY=secret",
		"RECAPTCHA_SITE_KEY=site",
		"EMAIL_HOST=smtp.example.com",
		"EMAIL_PORT=587",
		"EMAIL_USER=mailer@example.com",
		"EMAIL_PASS=relay-password",
		"CONTACT_RECIPIENT=owner@example.com",
		"THROTTLE_DB_DSN=file:throttle.db",
	}, "\n")
}

func TestRunAuditAcceptsCompleteEnvironmentFile(testingT *testing.T) {
	path := writeEnvFile(testingT, completeEnvFileContent())
	result := runAudit(path, noProcessEnvironment)
	require.True(testingT, result.ok())
	require.Empty(testingT, result.warnings)
}

func TestRunAuditReportsMissingRequiredKeys(testingT *testing.T) {
	path := writeEnvFile(testingT, "RECAPTCHA_SITE_KEY=site\n")
	result := runAudit(path, noProcessEnvironment)
	require.False(testingT, result.ok())

	joined := strings.Join(result.errors, "\n")
	require.Contains(testingT, joined, environmentKeyRecaptchaSecretKey)
	require.Contains(testingT, joined, environmentKeySMTPHost)
	require.Contains(testingT, joined, environmentKeySMTPUsername)
	require.Contains(testingT, joined, environmentKeySMTPPassword)
}

func TestRunAuditReportsDuplicateKeys(testingT *testing.T) {
	path := writeEnvFile(testingT, completeEnvFileContent()+"\nEMAIL_HOST=smtp.other.example.com\n")
	result := runAudit(path, noProcessEnvironment)
	require.False(testingT, result.ok())
	require.Contains(testingT, strings.Join(result.errors, "\n"), "more than once")
}

func TestRunAuditRejectsHostCarryingPort(testingT *testing.T) {
	content := strings.Replace(completeEnvFileContent(), "EMAIL_HOST=smtp.example.com", "EMAIL_HOST=smtp.example.com:465", 1)
	path := writeEnvFile(testingT, content)
	result := runAudit(path, noProcessEnvironment)
	require.False(testingT, result.ok())
	require.Contains(testingT, strings.Join(result.errors, "\n"), "must not carry a port")
}

func TestRunAuditRejectsNonNumericSMTPPort(testingT *testing.T) {
	content := strings.Replace(completeEnvFileContent(), "EMAIL_PORT=587", "EMAIL_PORT=five87", 1)
	path := writeEnvFile(testingT, content)
	result := runAudit(path, noProcessEnvironment)
	require.False(testingT, result.ok())
	require.Contains(testingT, strings.Join(result.errors, "\n"), "not a valid port")
}

func TestRunAuditWarnsOnOptionalOmissions(testingT *testing.T) {
	path := writeEnvFile(testingT, strings.Join([]string{
		"RECAPTCHA_SECRET_KEY=secret",
		"EMAIL_HOST=smtp.example.com",
		"EMAIL_USER=mailer@example.com",
		"EMAIL_PASS=relay-password",
	}, "\n"))
	result := runAudit(path, noProcessEnvironment)
	require.True(testingT, result.ok())

	joined := strings.Join(result.warnings, "\n")
	require.Contains(testingT, joined, environmentKeyRecaptchaSiteKey)
	require.Contains(testingT, joined, environmentKeyContactRecipient)
	require.Contains(testingT, joined, environmentKeyThrottleDataSourceName)
	require.Contains(testingT, joined, environmentKeySMTPPort)
}

func TestRunAuditUsesProcessEnvironmentWhenFileMissing(testingT *testing.T) {
	processValues := map[string]string{
		environmentKeyRecaptchaSecretKey: "secret",
		environmentKeySMTPHost:           "smtp.example.com",
		environmentKeySMTPUsername:       "mailer@example.com",
		environmentKeySMTPPassword:       "relay-password",
	}
	lookup := func(key string) (string, bool) {
		value, found := processValues[key]
		return value, found
	}

	missingPath := filepath.Join(testingT.TempDir(), ".env")
	result := runAudit(missingPath, lookup)
	require.True(testingT, result.ok())
	require.Contains(testingT, strings.Join(result.warnings, "\n"), "auditing process environment only")
}

func TestRunAuditProcessEnvironmentOverridesFile(testingT *testing.T) {
	content := strings.Replace(completeEnvFileContent(), "EMAIL_PORT=587", "EMAIL_PORT=bogus", 1)
	path := writeEnvFile(testingT, content)

	lookup := func(key string) (string, bool) {
		if key == environmentKeySMTPPort {
			return "465", true
		}
		return "", false
	}

	result := runAudit(path, lookup)
	require.True(testingT, result.ok())
}

func TestParseDotEnvHandlesCommentsAndQuotes(testingT *testing.T) {
	path := writeEnvFile(testingT, strings.Join([]string{
		"# comment line",
		"",
		`export EMAIL_HOST="smtp.example.com"`,
		"EMAIL_USER='mailer@example.com'",
		"not a key value line",
	}, "\n"))

	entries, duplicates, parseErr := parseDotEnv(path)
	require.NoError(testingT, parseErr)
	require.Empty(testingT, duplicates)
	require.Equal(testingT, "smtp.example.com", entries["EMAIL_HOST"])
	require.Equal(testingT, "mailer@example.com", entries["EMAIL_USER"])
	require.Len(testingT, entries, 2)
}
