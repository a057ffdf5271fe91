package extraction

import (
	"bytes"
	"fmt"
	"strings"

	"baliance.com/gooxml/document"
	"baliance.com/gooxml/schema/soo/wml"
)

// FromDOCX returns the text of every non-blank paragraph in document order,
// newline-separated. Blank paragraphs are dropped.
func FromDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &DocumentParseError{Format: FormatDOCX, Cause: fmt.Errorf("empty file")}
	}

	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &DocumentParseError{Format: FormatDOCX, Cause: err}
	}

	lines := make([]string, 0)
	for _, para := range doc.Paragraphs() {
		text := paragraphText(para)
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, text)
	}

	return strings.Join(lines, "\n"), nil
}

// paragraphText concatenates the paragraph's runs in document order,
// including the runs nested in hyperlinks.
func paragraphText(para document.Paragraph) string {
	var sb strings.Builder
	writeContent(&sb, para.X().EG_PContent)
	return sb.String()
}

func writeContent(sb *strings.Builder, contents []*wml.EG_PContent) {
	for _, pc := range contents {
		for _, rc := range pc.EG_ContentRunContent {
			if rc.R != nil {
				writeRun(sb, rc.R)
			}
		}
		if pc.Hyperlink != nil {
			writeContent(sb, pc.Hyperlink.EG_PContent)
		}
	}
}

func writeRun(sb *strings.Builder, run *wml.CT_R) {
	for _, ric := range run.EG_RunInnerContent {
		if ric.T != nil {
			sb.WriteString(ric.T.Content)
		}
		if ric.Tab != nil {
			sb.WriteByte('\t')
		}
	}
}
