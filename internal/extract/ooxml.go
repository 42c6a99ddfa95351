package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// OOXML (docx/pptx) is a zip of XML parts. We pull the text runs out of the
// relevant parts directly: w:t elements for Word bodies, a:t for slide
// shapes. Styling and layout are discarded.

func extractDocx(_ context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		return readOOXMLText(f, "t")
	}
	return "", fmt.Errorf("docx has no word/document.xml")
}

func extractPptx(_ context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].Name < slides[j].Name })

	var texts []string
	for _, f := range slides {
		txt, err := readOOXMLText(f, "t")
		if err != nil {
			return "", err
		}
		if txt != "" {
			texts = append(texts, txt)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// readOOXMLText streams one XML part and concatenates the character data of
// every element with the given local name, one paragraph-ish run per line.
func readOOXMLText(f *zip.File, local string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var parts []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == local && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				if txt := string(t); txt != "" {
					parts = append(parts, txt)
				}
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

func init() {
	Register(".docx", extractDocx)
	Register(".pptx", extractPptx)
}
