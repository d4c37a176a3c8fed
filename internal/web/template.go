package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/hydration-cup/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"grams": func(g float64) string {
		return fmt.Sprintf("%.1f g", g)
	},
	"stateClass": func(s string) string {
		switch s {
		case "IDLE":
			return "idle"
		case "MONITORING":
			return "monitoring"
		case "ALERTING":
			return "alerting"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Hydration Cup</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.idle { color: #888; }
.monitoring { color: green; font-weight: bold; }
.alerting { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Hydration Cup</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass (printf "%s" .State)}}">{{.State}}</td></tr>
<tr><th>Weight</th><td id="weight">{{if .HasWeight}}{{grams .LastWeightG}}{{else}}no reading{{end}}</td></tr>
{{with .Session}}<tr><th>Reference</th><td>{{grams .ReferenceWeight}}</td></tr>
<tr><th>Monitoring since</th><td>{{.StartedAt.Format "15:04:05"}}</td></tr>{{end}}
{{if .Session}}<tr><th>Alert in</th><td id="remaining">{{duration .Remaining}}</td></tr>{{end}}
{{if not .LastIntake.IsZero}}<tr><th>Last drink</th><td>{{grams .LastIntakeG}} at {{.LastIntake.Format "15:04:05"}}</td></tr>{{end}}
{{if .HasToday}}<tr><th>Today</th><td id="today">{{.TodayML}} ml in {{.TodayDrinks}} drinks</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}none{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Cups placed</th><td>{{.Counts.CupsPlaced}}</td></tr>
<tr><th>Drinks</th><td id="intakes">{{.Counts.Intakes}}</td></tr>
<tr><th>Alerts</th><td>{{.Counts.Alerts}}</td></tr>
<tr><th>Acknowledged</th><td>{{.Counts.AlertsAcknowledged}}</td></tr>
<tr><th>Aborted</th><td>{{.Counts.AlertsAborted}}</td></tr>
<tr><th>Sensor faults</th><td>{{.Counts.SensorFaults}}</td></tr>
<tr><th>Servo faults</th><td>{{.Counts.ActuatorFaults}}</td></tr>
<tr><th>Log faults</th><td>{{.Counts.LogFaults}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Threshold</th><td>{{grams .Config.ThresholdG}}</td></tr>
<tr><th>Monitoring</th><td>{{.Config.MonitoringS}}s</td></tr>
<tr><th>Alert</th><td>{{.Config.AlertS}}s</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatS 0}}disabled{{else}}{{.Config.HeartbeatS}}s{{end}}</td></tr>
<tr><th>Log</th><td>{{.Config.LogPath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .HasToday}} | <a href="/intakes.json">intakes</a>{{end}} | <a href="/metrics">metrics</a></p>
</body>
</html>
`

// pageData is what the template sees. Durations are fields so the template
// does not call Snapshot methods.
type pageData struct {
	status.Snapshot
	Uptime    time.Duration
	Remaining time.Duration

	HasToday    bool
	TodayML     int
	TodayDrinks int
}

func renderHTML(w io.Writer, page pageData) {
	page.Uptime = page.Snapshot.Uptime()
	page.Remaining = page.Snapshot.Remaining()
	indexTmpl.Execute(w, page)
}
