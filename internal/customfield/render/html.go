package render

import (
	"html/template"
	"io"
)

var formTmpl = template.Must(template.New("form").Parse(`<form class="custom-fields">
{{- range . }}
<div class="field field-{{ .Kind }}">
{{- if eq .Kind "checkbox" }}
<label><input type="checkbox" name="{{ .Name }}" value="true"{{ if .Checked }} checked{{ end }}> {{ .Label }}{{ if .Required }} <span class="required">*</span>{{ end }}</label>
{{- else }}
<label for="cf-{{ .Name }}">{{ .Label }}{{ if .Required }} <span class="required">*</span>{{ end }}</label>
{{- if eq .Kind "select" }}
<select id="cf-{{ .Name }}" name="{{ .Name }}">
{{- range .Options }}
<option value="{{ .Value }}"{{ if .Selected }} selected{{ end }}>{{ .Label }}</option>
{{- end }}
</select>
{{- else if eq .Kind "radio" }}
{{- $name := .Name }}
{{- range .Options }}
<label><input type="radio" name="{{ $name }}" value="{{ .Value }}"{{ if .Selected }} checked{{ end }}> {{ .Label }}</label>
{{- end }}
{{- else if eq .Kind "textarea" }}
<textarea id="cf-{{ .Name }}" name="{{ .Name }}"{{ with .Placeholder }} placeholder="{{ . }}"{{ end }}>{{ .Value }}</textarea>
{{- else }}
<input id="cf-{{ .Name }}" type="{{ .InputType }}" name="{{ .Name }}"{{ if ne .InputType "file" }} value="{{ .Value }}"{{ end }}{{ with .Placeholder }} placeholder="{{ . }}"{{ end }}>
{{- end }}
{{- end }}
</div>
{{- end }}
</form>
`))

// WriteHTML writes an HTML form for inputs.
func WriteHTML(w io.Writer, inputs []Input) error {
	return formTmpl.Execute(w, inputs)
}
