// Package docx tokenizes Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"

	"docextract/internal/domain"
)

// ErrNoBody is returned when the archive has no word/document.xml part.
var ErrNoBody = errors.New("docx has no document body")

// DocconvTokenizer extracts text with docconv.
type DocconvTokenizer struct{}

// NewDocconvTokenizer creates a DocconvTokenizer.
func NewDocconvTokenizer() *DocconvTokenizer {
	return &DocconvTokenizer{}
}

func (t *DocconvTokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("docconv: %w", err)
	}
	return &domain.Document{RawText: text, PageCount: 1}, nil
}

// XMLTokenizer reads the paragraphs of word/document.xml directly. It keeps
// working on files docconv rejects, such as archives with unusual parts.
type XMLTokenizer struct{}

// NewXMLTokenizer creates an XMLTokenizer.
func NewXMLTokenizer() *XMLTokenizer {
	return &XMLTokenizer{}
}

func (t *XMLTokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		text, err := paragraphs(rc)
		if err != nil {
			return nil, err
		}
		return &domain.Document{RawText: text, PageCount: 1}, nil
	}
	return nil, ErrNoBody
}

// paragraphs writes one line per w:p. The cells of a table row share one
// line, separated by spaces, so a label cell stays next to its value.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb, para strings.Builder
	flush := func() {
		if line := strings.TrimSpace(para.String()); line != "" {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		para.Reset()
	}
	inText, cells := false, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br":
				para.WriteString(" ")
			case "tc":
				cells++
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if cells > 0 {
					para.WriteString(" ")
				} else {
					flush()
				}
			case "tc":
				cells--
			case "tr":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		}
	}
	flush()
	return sb.String(), nil
}
