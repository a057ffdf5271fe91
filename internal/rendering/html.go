package rendering

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The newline after <pre> is dropped by HTML parsers, so text that itself
// starts with a newline keeps it.
var documentTemplate = template.Must(template.New("resume").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Enhanced Resume</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; margin: 40px; }
.resume { border: 1px solid #ccc; padding: 20px; border-radius: 10px; max-width: 800px; }
pre { white-space: pre-wrap; font-family: inherit; }
</style>
</head>
<body>
<div class="resume"><pre>
{{.}}</pre></div>
</body>
</html>
`))

// RenderHTML wraps text, escaped and otherwise verbatim, in the resume document.
func RenderHTML(text string) (string, error) {
	var sb strings.Builder
	if err := documentTemplate.Execute(&sb, text); err != nil {
		return "", &TemplateError{Message: "failed to execute resume template", Cause: err}
	}
	return sb.String(), nil
}

// CleanHTML removes every asterisk from the text of the document's pre block,
// leaving the markup untouched.
func CleanHTML(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", &TemplateError{Message: "failed to parse rendered HTML", Cause: err}
	}

	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return "", &TemplateError{Message: "rendered HTML has no pre block"}
	}
	pre.SetText(strings.ReplaceAll(pre.Text(), "*", ""))

	cleaned, err := doc.Html()
	if err != nil {
		return "", &TemplateError{Message: "failed to serialize cleaned HTML", Cause: err}
	}
	return cleaned, nil
}

