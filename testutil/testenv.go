// Package testutil provides shared environment helpers for E2E tests against
// a live SharePoint test site. It depends only on stdlib so that E2E tests
// (which cannot import internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the E2E suite.
const (
	EnvTestDomain       = "BLOB2SPO_TEST_DOMAIN"
	EnvTestSite         = "BLOB2SPO_TEST_SITE"
	EnvTestPath         = "BLOB2SPO_TEST_PATH"
	EnvAllowedTestSites = "BLOB2SPO_ALLOWED_TEST_SITES"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// SiteKey is the allowlist form of a test destination: "domain/site".
func SiteKey(domain, site string) string {
	return strings.ToLower(domain) + "/" + strings.ToLower(site)
}

// ValidateAllowlist crashes the process unless domain/site is listed in
// BLOB2SPO_ALLOWED_TEST_SITES. The suite overwrites files, so it must never
// be pointed at a production library by accident.
func ValidateAllowlist(domain, site string) {
	allowlist := os.Getenv(EnvAllowedTestSites)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvAllowedTestSites)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintf(os.Stderr, "Example: %s=contoso/blob2spo-test\n", EnvAllowedTestSites)
		os.Exit(1)
	}

	want := SiteKey(domain, site)

	for _, entry := range strings.Split(allowlist, ",") {
		if strings.ToLower(strings.TrimSpace(entry)) == want {
			return
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s is not in %s=%q\n", want, EnvAllowedTestSites, allowlist)
	os.Exit(1)
}

// RequireEnv returns the value of name, crashing when it is unset.
func RequireEnv(name string) string {
	v := os.Getenv(name)
	if v == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", name)
		os.Exit(1)
	}

	return v
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// WriteRandomFile writes size pseudo-random bytes to dir/name and returns the
// path. The content is deterministic for a given size.
func WriteRandomFile(dir, name string, size int) (string, error) {
	data := make([]byte, size)

	var x uint32 = 2463534242
	for i := range data {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}
