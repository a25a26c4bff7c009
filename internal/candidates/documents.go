package candidates

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// DocumentSource lists the documents to ingest in a stable order.
type DocumentSource interface {
	List(ctx context.Context) ([]Document, error)
}

// TextExtractor returns the plain text of a document.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

var defaultExtensions = []string{".pdf", ".txt", ".md"}

// FolderSource lists files with supported extensions in a single folder, sorted by name.
type FolderSource struct {
	Dir        string
	Extensions []string
}

func NewFolderSource(dir string) *FolderSource {
	return &FolderSource{Dir: dir, Extensions: defaultExtensions}
}

func (s *FolderSource) List(ctx context.Context) ([]Document, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return nil, fmt.Errorf("resume folder is not configured")
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read resume folder: %w", err)
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !s.supported(entry.Name()) {
			continue
		}
		docs = append(docs, NewDocument(filepath.Join(s.Dir, entry.Name())))
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func (s *FolderSource) supported(name string) bool {
	exts := s.Extensions
	if len(exts) == 0 {
		exts = defaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// FileExtractor reads PDFs through their text layer and other files verbatim.
type FileExtractor struct{}

func (FileExtractor) Extract(_ context.Context, doc Document) (string, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(doc.Path), ".pdf") {
		text, err = readPDF(doc.Path)
	} else {
		var data []byte
		data, err = os.ReadFile(doc.Path)
		text = string(data)
	}
	if err != nil {
		return "", err
	}
	return NormalizeText(text), nil
}

func readPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// NormalizeText applies NFKC, drops control characters other than newlines and
// tabs, and trims surrounding whitespace.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}
