package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func completeServerConfig() ServerConfig {
	return ServerConfig{
		ApplicationAddress: defaultApplicationAddress,
		RecaptchaSecretKey: "secret-key",
		RecaptchaSiteKey:   "site-key",
		SMTPHost:           "smtp.example.com",
		SMTPPort:           defaultSMTPPort,
		SMTPUsername:       "mailer@example.com",
		SMTPPassword:       "relay-password",
		ContactRecipient:   "owner@example.com",
	}
}

func TestEnsureRequiredConfigurationAcceptsCompleteConfig(testingT *testing.T) {
	require.NoError(testingT, ensureRequiredConfiguration(completeServerConfig()))
}

func TestEnsureRequiredConfigurationReportsMissingParameters(testingT *testing.T) {
	testCases := []struct {
		name            string
		mutate          func(*ServerConfig)
		expectedMention string
	}{
		{
			name:            "missing recaptcha secret",
			mutate:          func(configuration *ServerConfig) { configuration.RecaptchaSecretKey = "" },
			expectedMention: flagNameRecaptchaSecretKey,
		},
		{
			name:            "missing smtp host",
			mutate:          func(configuration *ServerConfig) { configuration.SMTPHost = "" },
			expectedMention: flagNameSMTPHost,
		},
		{
			name:            "missing smtp username",
			mutate:          func(configuration *ServerConfig) { configuration.SMTPUsername = "" },
			expectedMention: flagNameSMTPUsername,
		},
		{
			name:            "missing smtp password",
			mutate:          func(configuration *ServerConfig) { configuration.SMTPPassword = "" },
			expectedMention: flagNameSMTPPassword,
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(subTest *testing.T) {
			configuration := completeServerConfig()
			testCase.mutate(&configuration)

			validationErr := ensureRequiredConfiguration(configuration)
			require.Error(subTest, validationErr)
			require.Contains(subTest, validationErr.Error(), testCase.expectedMention)
		})
	}
}

func TestEnsureRequiredConfigurationListsEveryMissingParameter(testingT *testing.T) {
	validationErr := ensureRequiredConfiguration(ServerConfig{})
	require.Error(testingT, validationErr)
	require.Contains(testingT, validationErr.Error(), flagNameRecaptchaSecretKey)
	require.Contains(testingT, validationErr.Error(), flagNameSMTPHost)
	require.Contains(testingT, validationErr.Error(), flagNameSMTPUsername)
	require.Contains(testingT, validationErr.Error(), flagNameSMTPPassword)
}

func TestLoadConfigurationReadsEnvironmentValues(testingT *testing.T) {
	testingT.Setenv(environmentKeyApplicationAddress, ":9090")
	testingT.Setenv(environmentKeyRecaptchaSecretKey, "env-secret")
	testingT.Setenv(environmentKeyRecaptchaSiteKey, "env-site")
	testingT.Setenv(environmentKeySMTPHost, "smtp.env.example.com")
	testingT.Setenv(environmentKeySMTPPort, "465")
	testingT.Setenv(environmentKeySMTPUsername, "env-user@example.com")
	testingT.Setenv(environmentKeySMTPPassword, "env-pass")
	testingT.Setenv(environmentKeyContactRecipient, "env-recipient@example.com")
	testingT.Setenv(environmentKeyThrottleDataSourceName, "file:throttle.db")

	application := NewServerApplication()
	_, commandErr := application.Command()
	require.NoError(testingT, commandErr)

	configuration := application.loadConfiguration()
	require.Equal(testingT, ":9090", configuration.ApplicationAddress)
	require.Equal(testingT, "env-secret", configuration.RecaptchaSecretKey)
	require.Equal(testingT, "env-site", configuration.RecaptchaSiteKey)
	require.Equal(testingT, "smtp.env.example.com", configuration.SMTPHost)
	require.Equal(testingT, 465, configuration.SMTPPort)
	require.Equal(testingT, "env-user@example.com", configuration.SMTPUsername)
	require.Equal(testingT, "env-pass", configuration.SMTPPassword)
	require.Equal(testingT, "env-recipient@example.com", configuration.ContactRecipient)
	require.Equal(testingT, "file:throttle.db", configuration.ThrottleDataSourceName)
}

func TestLoadConfigurationDefaultsRecipientToSMTPUsername(testingT *testing.T) {
	testingT.Setenv(environmentKeyRecaptchaSecretKey, "env-secret")
	testingT.Setenv(environmentKeySMTPHost, "smtp.env.example.com")
	testingT.Setenv(environmentKeySMTPUsername, "env-user@example.com")
	testingT.Setenv(environmentKeySMTPPassword, "env-pass")

	application := NewServerApplication()
	_, commandErr := application.Command()
	require.NoError(testingT, commandErr)

	configuration := application.loadConfiguration()
	require.Equal(testingT, "env-user@example.com", configuration.ContactRecipient)
	require.Equal(testingT, defaultApplicationAddress, configuration.ApplicationAddress)
	require.Equal(testingT, defaultSMTPPort, configuration.SMTPPort)
}
