package mail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererBuiltins(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	html, text, err := r.Render("welcome", onboardingData{Name: "Ada", FrontendURL: "https://app.example.com"})
	require.NoError(t, err)
	assert.Contains(t, html, "Welcome, Ada!")
	assert.Contains(t, html, "https://app.example.com/dashboard")
	assert.Contains(t, text, "Ada")
	assert.NotContains(t, text, "<")
}

func TestRendererUnknownTemplate(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	_, _, err = r.Render("no-such-template", nil)
	assert.Error(t, err)
}

func TestRendererOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	custom := `<html><body>Custom for {{.Name}}</body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.html"), []byte(custom), 0644))

	r, err := NewRenderer(dir)
	require.NoError(t, err)

	html, text, err := r.Render("welcome", onboardingData{Name: "Ada"})
	require.NoError(t, err)
	assert.Contains(t, html, "Custom for Ada")
	// The built-in text counterpart still renders.
	assert.Contains(t, text, "Ada")

	// A template only present in the override dir falls back to derived
	// text.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alert.html"), []byte(`<p>Alert: {{.Name}}</p>`), 0644))
	r, err = NewRenderer(dir)
	require.NoError(t, err)
	html, text, err = r.Render("alert", onboardingData{Name: "Ada"})
	require.NoError(t, err)
	assert.Contains(t, html, "Alert: Ada")
	assert.Contains(t, text, "Alert: Ada")
}

func TestRendererMissingDirectory(t *testing.T) {
	_, err := NewRenderer(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
