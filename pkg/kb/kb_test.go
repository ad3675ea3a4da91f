package kb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/burrow/pkg/kb"
	"github.com/m-mizutani/gt"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "faq.csv", `question,answer
"How do I reset my password?","Use the reset link on the login page."
"What are the shipping costs?","Shipping is free for orders over $50."
`)

	entries, err := kb.Load(path)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
	gt.Equal(t, entries[0].Question, "How do I reset my password?")
	gt.S(t, entries[1].Answer).Contains("$50")
}

func TestLoadCSVWithoutHeader(t *testing.T) {
	path := writeFile(t, "faq.csv", `"How do refunds work?","Refunds take 5 days."
`)

	entries, err := kb.Load(path)
	gt.NoError(t, err)
	gt.A(t, entries).Length(1)
	gt.Equal(t, entries[0].Question, "How do refunds work?")
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "faq.yaml", `entries:
  - question: How do I reset my password?
    answer: Use the reset link on the login page.
  - question: What are the shipping costs?
    answer: Shipping is free for orders over $50.
`)

	entries, err := kb.Load(path)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
	gt.Equal(t, entries[0].Question, "How do I reset my password?")
}

func TestLoadEmptyAnswer(t *testing.T) {
	path := writeFile(t, "faq.yaml", `entries:
  - question: How do I reset my password?
    answer: ""
`)

	_, err := kb.Load(path)
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("answer must not be empty")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "faq.txt", "not a knowledge base")

	_, err := kb.Load(path)
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("unsupported knowledge base format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := kb.Load(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	gt.Error(t, err)
}
