// Package renderer turns an aggregation result into a markdown report.
package renderer

import (
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/collector"
)

// Report is the presentation model of one aggregation run.
type Report struct {
	Snapshot *collector.Snapshot
	Failures map[collector.Broker]error
	// Positions includes position-level detail in the output.
	Positions bool
}

type cashRow struct {
	Broker, Account, Currency, Kind, Amount string
}

type positionRow struct {
	Broker, Account, Symbol, Quantity, MarketValue string
}

type totalRow struct {
	Currency, Total string
}

type failureRow struct {
	Broker, Reason string
}

type reportData struct {
	Time      string
	Cash      []cashRow
	Positions []positionRow
	Totals    []totalRow
	Failures  []failureRow
}

var reportTmpl = template.Must(template.New("snapshot").Parse(`# Holdings on {{.Time}}

{{if .Cash}}| Broker | Account | Currency | Kind | Amount |
|---|---|---|---|---:|
{{range .Cash}}| {{.Broker}} | {{.Account}} | {{.Currency}} | {{.Kind}} | {{.Amount}} |
{{end}}{{else}}No balances.
{{end}}
{{- if .Positions}}
## Positions

| Broker | Account | Symbol | Quantity | Market Value |
|---|---|---|---:|---:|
{{range .Positions}}| {{.Broker}} | {{.Account}} | {{.Symbol}} | {{.Quantity}} | {{.MarketValue}} |
{{end}}
{{- end}}
{{- if .Totals}}
## Totals by currency

| Currency | Total |
|---|---:|
{{range .Totals}}| {{.Currency}} | {{.Total}} |
{{end}}
{{- end}}
{{- if .Failures}}
## Unavailable

{{range .Failures}}- **{{.Broker}}**: {{.Reason}}
{{end}}
{{- end}}`))

// SnapshotMarkdown renders the report to a markdown string. Amounts are
// printed with their exact decimal representation; no rounding happens in
// the presentation layer.
func SnapshotMarkdown(r Report) string {
	var data reportData
	if r.Snapshot != nil {
		data.Time = r.Snapshot.On().Format(time.RFC3339)
		for _, balance := range r.Snapshot.Balances() {
			for _, entry := range balance.Cash {
				data.Cash = append(data.Cash, cashRow{
					Broker:   balance.Broker.String(),
					Account:  balance.AccountID,
					Currency: entry.Amount.Currency(),
					Kind:     entry.Kind.String(),
					Amount:   entry.Amount.Amount().String(),
				})
			}
			if !r.Positions {
				continue
			}
			for _, position := range balance.Positions {
				row := positionRow{
					Broker:   balance.Broker.String(),
					Account:  balance.AccountID,
					Symbol:   position.Symbol,
					Quantity: position.Quantity.String(),
				}
				if position.MarketValue != nil {
					row.MarketValue = position.MarketValue.Amount().String() + " " + position.MarketValue.Currency()
				}
				data.Positions = append(data.Positions, row)
			}
		}
		for _, code := range r.Snapshot.Currencies() {
			data.Totals = append(data.Totals, totalRow{Currency: code, Total: r.Snapshot.Total(code).String()})
		}
	}

	// stable failure order for deterministic output
	brokers := make([]collector.Broker, 0, len(r.Failures))
	for broker := range r.Failures {
		brokers = append(brokers, broker)
	}
	sort.Slice(brokers, func(i, j int) bool { return brokers[i] < brokers[j] })
	for _, broker := range brokers {
		data.Failures = append(data.Failures, failureRow{Broker: broker.String(), Reason: r.Failures[broker].Error()})
	}

	var b strings.Builder
	if err := reportTmpl.Execute(&b, data); err != nil {
		// the template is static and the data contains no user input that
		// can fail execution
		panic(err)
	}
	return b.String()
}
