// Package kb loads the FAQ knowledge base from local files. Two formats are
// supported: CSV with question/answer columns and YAML with a list of
// entries. The format is chosen by file extension.
package kb

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Load reads the knowledge base at path and returns the source entries in
// file order. Entries with an empty question or answer are rejected.
func Load(path string) ([]index.SourceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open knowledge base", goerr.V("path", path))
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return loadYAML(f, path)
	case ".csv":
		return loadCSV(f, path)
	default:
		return nil, goerr.New("unsupported knowledge base format",
			goerr.V("path", path),
			goerr.V("ext", ext),
			goerr.V("supported", []string{".csv", ".yaml", ".yml"}))
	}
}

type yamlEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type yamlFile struct {
	Entries []yamlEntry `yaml:"entries"`
}

func loadYAML(r io.Reader, path string) ([]index.SourceEntry, error) {
	var file yamlFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse knowledge base", goerr.V("path", path))
	}

	entries := make([]index.SourceEntry, 0, len(file.Entries))
	for i, e := range file.Entries {
		if err := validate(e.Question, e.Answer); err != nil {
			return nil, goerr.Wrap(err, "invalid knowledge base entry",
				goerr.V("path", path), goerr.V("entry", i))
		}
		entries = append(entries, index.SourceEntry{
			Question: e.Question,
			Answer:   e.Answer,
		})
	}
	return entries, nil
}

func loadCSV(r io.Reader, path string) ([]index.SourceEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	var entries []index.SourceEntry
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse knowledge base",
				goerr.V("path", path), goerr.V("row", row))
		}

		// Skip a header row if present.
		if row == 0 && strings.EqualFold(record[0], "question") {
			row++
			continue
		}

		question := strings.TrimSpace(record[0])
		answer := strings.TrimSpace(record[1])
		if err := validate(question, answer); err != nil {
			return nil, goerr.Wrap(err, "invalid knowledge base entry",
				goerr.V("path", path), goerr.V("row", row))
		}

		entries = append(entries, index.SourceEntry{
			Question: question,
			Answer:   answer,
		})
		row++
	}
	return entries, nil
}

func validate(question, answer string) error {
	if question == "" {
		return goerr.New("question must not be empty")
	}
	if answer == "" {
		return goerr.New("answer must not be empty")
	}
	return nil
}
