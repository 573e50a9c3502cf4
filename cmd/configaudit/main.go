package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultEnvironmentFilePath = ".env"

	environmentKeyRecaptchaSecretKey     = "RECAPTCHA_SECRET_KEY"
	environmentKeyRecaptchaSiteKey       = "RECAPTCHA_SITE_KEY"
	environmentKeySMTPHost               = "EMAIL_HOST"
	environmentKeySMTPPort               = "EMAIL_PORT"
	environmentKeySMTPUsername           = "EMAIL_USER"
	environmentKeySMTPPassword           = "EMAIL_PASS"
	environmentKeyContactRecipient       = "CONTACT_RECIPIENT"
	environmentKeyThrottleDataSourceName = "THROTTLE_DB_DSN"
)

var requiredEnvironmentKeys = []string{
	environmentKeyRecaptchaSecretKey,
	environmentKeySMTPHost,
	environmentKeySMTPUsername,
	environmentKeySMTPPassword,
}

type auditResult struct {
	errors   []string
	warnings []string
}

func (result *auditResult) addError(message string, arguments ...any) {
	result.errors = append(result.errors, fmt.Sprintf(message, arguments...))
}

func (result *auditResult) addWarning(message string, arguments ...any) {
	result.warnings = append(result.warnings, fmt.Sprintf(message, arguments...))
}

func (result auditResult) ok() bool {
	return len(result.errors) == 0
}

func main() {
	environmentFilePath := defaultEnvironmentFilePath
	if len(os.Args) > 1 {
		environmentFilePath = os.Args[1]
	}

	result := runAudit(environmentFilePath, os.LookupEnv)
	sort.Strings(result.errors)
	sort.Strings(result.warnings)

	for _, warning := range result.warnings {
		_, _ = fmt.Fprintf(os.Stdout, "WARN: %s\n", warning)
	}
	for _, errorMessage := range result.errors {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %s\n", errorMessage)
	}
	if !result.ok() {
		_, _ = fmt.Fprintf(os.Stderr, "config-audit failed\n")
		os.Exit(1)
	}
	_, _ = fmt.Fprintf(os.Stdout, "config-audit OK\n")
}

func runAudit(environmentFilePath string, lookupEnvironment func(string) (string, bool)) auditResult {
	var result auditResult

	environment := make(map[string]string)
	if _, statErr := os.Stat(environmentFilePath); statErr == nil {
		fileValues, duplicates, parseErr := parseDotEnv(environmentFilePath)
		if parseErr != nil {
			result.addError("parse env file %s: %v", environmentFilePath, parseErr)
			return result
		}
		for _, duplicate := range duplicates {
			result.addError("env file %s defines %s more than once", environmentFilePath, duplicate)
		}
		for key, value := range fileValues {
			environment[key] = value
		}
	} else {
		result.addWarning("env file %s is missing, auditing process environment only", environmentFilePath)
	}

	// Process environment wins over file values, matching server startup.
	allKeys := append([]string{
		environmentKeyRecaptchaSiteKey,
		environmentKeySMTPPort,
		environmentKeyContactRecipient,
		environmentKeyThrottleDataSourceName,
	}, requiredEnvironmentKeys...)
	for _, key := range allKeys {
		if value, found := lookupEnvironment(key); found {
			environment[key] = value
		}
	}

	checkRequiredEnvironment(environment, &result)
	checkSMTPPort(environment, &result)
	checkOptionalEnvironment(environment, &result)

	return result
}

func checkRequiredEnvironment(environment map[string]string, result *auditResult) {
	for _, key := range requiredEnvironmentKeys {
		if strings.TrimSpace(environment[key]) == "" {
			result.addError("required env %s is missing or empty", key)
		}
	}

	host := strings.TrimSpace(environment[environmentKeySMTPHost])
	if host != "" {
		if _, _, splitErr := net.SplitHostPort(host); splitErr == nil {
			result.addError("env %s must not carry a port, set %s separately", environmentKeySMTPHost, environmentKeySMTPPort)
		}
	}
}

func checkSMTPPort(environment map[string]string, result *auditResult) {
	portValue := strings.TrimSpace(environment[environmentKeySMTPPort])
	if portValue == "" {
		result.addWarning("env %s is not set, server falls back to 587", environmentKeySMTPPort)
		return
	}
	port, parseErr := strconv.Atoi(portValue)
	if parseErr != nil || port < 1 || port > 65535 {
		result.addError("env %s value %q is not a valid port", environmentKeySMTPPort, portValue)
	}
}

func checkOptionalEnvironment(environment map[string]string, result *auditResult) {
	if strings.TrimSpace(environment[environmentKeyRecaptchaSiteKey]) == "" {
		result.addWarning("env %s is not set, the contact page cannot issue tokens", environmentKeyRecaptchaSiteKey)
	}
	if strings.TrimSpace(environment[environmentKeyContactRecipient]) == "" {
		result.addWarning("env %s is not set, notifications go to %s", environmentKeyContactRecipient, environmentKeySMTPUsername)
	}
	if strings.TrimSpace(environment[environmentKeyThrottleDataSourceName]) == "" {
		result.addWarning("env %s is not set, throttle counters stay in process memory", environmentKeyThrottleDataSourceName)
	}
}

func parseDotEnv(path string) (map[string]string, []string, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, nil, openErr
	}
	defer func() { _ = file.Close() }()

	entries := make(map[string]string)
	seen := make(map[string]struct{})
	var duplicates []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if _, already := seen[key]; already {
			duplicates = append(duplicates, key)
		}
		seen[key] = struct{}{}
		entries[key] = value
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, nil, scanErr
	}

	sort.Strings(duplicates)
	return entries, duplicates, nil
}
