package report

import (
	"bytes"
	"html/template"
	"time"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; color: #333; }
        table { border-collapse: collapse; margin-bottom: 12px; }
        th, td { border: 1px solid #bbb; padding: 4px 8px; font-size: 13px; text-align: left; }
        th { background-color: #2c3e50; color: white; }
        .division td { background-color: #ecf0f1; font-weight: bold; }
    </style>
</head>
<body>
{{- range $i, $s := .Sections}}
{{- if $i}}
<hr>
{{- end}}
{{- if eq $s.Kind "grid"}}
<h2>{{$s.Title}}</h2>
<table>
    <tr><th>Team</th>{{range $s.Grid.Dates}}<th>{{gridDate .}}</th>{{end}}</tr>
    {{- range $s.Grid.Groups}}
    <tr class="division"><td colspan="{{inc (len $s.Grid.Dates)}}">{{.Name}}</td></tr>
    {{- range .Teams}}
    <tr><td>{{.Team}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
    {{- end}}
    {{- end}}
</table>
{{- else if eq $s.Kind "moved"}}
<h2>{{$s.Title}}</h2>
<table>
    <tr><th>Pitcher</th><th>Team</th><th>Old Date</th><th>Old Opp</th><th>New Date</th><th>New Opp</th></tr>
    {{- range $s.Moves}}
    <tr><td>{{.Pitcher}}</td><td>{{.Team}}</td><td>{{.OldDate}}</td><td>{{.OldOpponent}}</td><td>{{.NewDate}}</td><td>{{.NewOpponent}}</td></tr>
    {{- end}}
</table>
{{- else}}
{{- range $s.Days}}
<h2>{{$s.Title}} - {{dayTitle .Date}}</h2>
<table>
    <tr><th>Name</th><th>Team</th><th>Opponent</th></tr>
    {{- range .Rows}}
    <tr><td>{{.Name}}</td><td>{{.Team}}</td><td>{{.Opponent}}</td></tr>
    {{- end}}
</table>
{{- end}}
{{- end}}
{{- end}}
</body>
</html>
`

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"gridDate": func(t time.Time) string { return t.Format("Mon 01/02") },
	"dayTitle": func(t time.Time) string { return t.Format("2006-01-02 (Monday)") },
	"inc":      func(n int) int { return n + 1 },
}).Parse(reportTemplate))

// Render produces the HTML email body for the selected sections.
func Render(sections []Section) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Sections []Section }{sections}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
