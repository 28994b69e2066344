package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/observability"
)

func TestMain(m *testing.M) {
	// Commands log through the global logger; tests run without the cobra
	// PersistentPreRun that normally initializes it.
	if err := observability.InitLogger(""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func resetAnalyzeFlags(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FIRESTORE_PROJECT", "")
	t.Setenv("FIRESTORE_CREDENTIALS", "")
	analyzeURL = ""
	analyzeHTMLFile = ""
	analyzeTextFile = ""
	analyzeJSON = false
	analyzeVerbose = false
	analyzeBrowser = false
	analyzeRefresh = false
	configPath = ""
}

func TestRunAnalyze_RequiresInput(t *testing.T) {
	resetAnalyzeFlags(t)

	err := runAnalyze(analyzeCmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url")
}

func TestRunAnalyze_MissingTextFile(t *testing.T) {
	resetAnalyzeFlags(t)
	analyzeTextFile = filepath.Join(t.TempDir(), "does-not-exist.txt")

	err := runAnalyze(analyzeCmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read text file")
}

func TestRunAnalyze_TextFile(t *testing.T) {
	resetAnalyzeFlags(t)

	posting := filepath.Join(t.TempDir(), "posting.txt")
	require.NoError(t, os.WriteFile(posting, []byte(
		"Earn guaranteed income from home. Pay the registration fee and message us on WhatsApp today. No experience needed.",
	), 0644))
	analyzeTextFile = posting
	analyzeJSON = true

	err := runAnalyze(analyzeCmd, nil)

	assert.NoError(t, err)
}

func TestRunAnalyze_BadConfigPath(t *testing.T) {
	resetAnalyzeFlags(t)
	analyzeTextFile = writeTempPosting(t)
	configPath = filepath.Join(t.TempDir(), "missing.json")

	err := runAnalyze(analyzeCmd, nil)

	require.Error(t, err)
}

func writeTempPosting(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posting.txt")
	require.NoError(t, os.WriteFile(path, []byte("Full-time position with health insurance."), 0644))
	return path
}
