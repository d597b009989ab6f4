package web

import (
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/monitor"
)

type page struct {
	Status  monitor.Status
	Polled  bool
	NtfyURL string
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"stateClass": func(s charger.SlotState) string {
		return strings.ToLower(string(s))
	},
	"clock": func(t time.Time) string {
		return t.Local().Format(time.DateTime)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>BC-211 Battery Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.empty { color: #888; }
.charging { color: #c60; font-weight: bold; }
.full { color: green; font-weight: bold; }
.error { color: red; font-weight: bold; }
.fault { color: red; }
</style>
</head>
<body>
<h1>BC-211 Battery Monitor</h1>
<table id="slots">
<tr><th>Slot</th><th>State</th><th>R</th><th>G</th></tr>
{{- range .Status.Slots}}
<tr><td>S{{.Slot}}</td><td class="{{stateClass .State}}">{{.State}}</td><td>{{.Red}}</td><td>{{.Green}}</td></tr>
{{- end}}
</table>
<p id="info">
{{- if not .Polled}}waiting for first poll
{{- else if .Status.Err}}<span class="fault">{{.Status.Err}}</span>
{{- else}}bits {{.Status.Snapshot}} at {{clock .Status.Time}}{{end -}}
</p>
<p>notifications: {{if .NtfyURL}}{{.NtfyURL}}{{else}}disabled{{end}}</p>
<script>
function render(s) {
  var rows = '<tr><th>Slot</th><th>State</th><th>R</th><th>G</th></tr>';
  s.slots.forEach(function (r) {
    rows += '<tr><td>S' + r.slot + '</td><td class="' + r.state.toLowerCase() + '">' + r.state +
      '</td><td>' + r.R + '</td><td>' + r.G + '</td></tr>';
  });
  document.getElementById('slots').innerHTML = rows;
  var info = document.getElementById('info');
  if (s.error) {
    info.innerHTML = '<span class="fault"></span>';
    info.firstChild.textContent = s.error;
  } else {
    info.textContent = 'bits ' + s.bits12.toString(2).padStart(12, '0') + ' at ' + new Date(s.timestamp * 1000).toLocaleString();
  }
}
function poll() {
  fetch('/api/status').then(function (r) { return r.json(); }).then(render).catch(function () {});
}
poll();
setInterval(poll, 5000);
</script>
</body>
</html>
`

func renderHTML(w io.Writer, p page) {
	_ = indexTmpl.Execute(w, p)
}
