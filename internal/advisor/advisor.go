// Package advisor produces short written market briefs for the desk.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zappabad/agriflow/internal/market"
	"github.com/zappabad/agriflow/internal/projection"
	"github.com/zappabad/agriflow/internal/weather"
)

var (
	ErrDisabled      = errors.New("advisor disabled: no api key configured")
	ErrEmptyResponse = errors.New("advisor returned an empty brief")
)

// Request is everything a brief is written from.
type Request struct {
	Prices  []market.Instrument
	Regimes market.Regimes
	Weather *weather.Report
	Plots   *projection.Summary
}

// Briefer writes a markdown brief for a request.
type Briefer interface {
	Brief(ctx context.Context, req Request) (string, error)
}

// BuildPrompt renders req as a plain-text prompt.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are an agronomist advising a smallholder farm. ")
	b.WriteString("Write a concise market brief in markdown: a one-line headline, ")
	b.WriteString("then at most four bullets on what to sell, hold, or buy this week.\n\n")

	b.WriteString("Market prices:\n")
	for _, in := range req.Prices {
		fmt.Fprintf(&b, "- %s: %.2f %s (%+.1f%%, %s)", in.Name, in.Price, in.Unit, in.ChangePercentage, in.Trend)
		if rec, ok := req.Regimes[in.Name]; ok {
			fmt.Fprintf(&b, ", regime %s", rec.Direction)
		}
		b.WriteByte('\n')
	}

	if w := req.Weather; w != nil {
		fmt.Fprintf(&b, "\nWeather at %s: %s, %.0f°C, humidity %.0f%%, wind %.0f km/h, climate risk %s. %s\n",
			w.LocationName, w.Condition, w.Temp, w.Humidity, w.WindSpeed, w.Risk, w.Forecast)
	}

	if p := req.Plots; p != nil && len(p.Lines) > 0 {
		b.WriteString("\nPlanted fields:\n")
		for _, l := range p.Lines {
			fmt.Fprintf(&b, "- %s, %.1f acres, soil %s, water %s, projected revenue %.0f\n",
				l.Plot.Name, l.Plot.Area, l.Plot.SoilHealth, l.Plot.WaterEfficiency, l.Revenue)
		}
	}

	return b.String()
}

// Local writes a brief without calling a model. It is the fallback when the
// model is unavailable.
type Local struct{}

// Brief summarizes the biggest movers.
func (Local) Brief(_ context.Context, req Request) (string, error) {
	var b strings.Builder
	b.WriteString("## Market brief (offline)\n\n")

	if len(req.Prices) == 0 {
		b.WriteString("No prices available yet.\n")
		return b.String(), nil
	}

	best, worst := req.Prices[0], req.Prices[0]
	for _, in := range req.Prices[1:] {
		if in.ChangePercentage > best.ChangePercentage {
			best = in
		}
		if in.ChangePercentage < worst.ChangePercentage {
			worst = in
		}
	}

	fmt.Fprintf(&b, "- Strongest: **%s** %+.1f%% at %.2f %s\n", best.Name, best.ChangePercentage, best.Price, best.Unit)
	fmt.Fprintf(&b, "- Weakest: **%s** %+.1f%% at %.2f %s\n", worst.Name, worst.ChangePercentage, worst.Price, worst.Unit)
	if w := req.Weather; w != nil {
		fmt.Fprintf(&b, "- Weather: %s, risk %s. %s\n", w.Condition, w.Risk, w.Forecast)
	}
	return b.String(), nil
}

// Fallback tries primary and answers with secondary when it fails.
type Fallback struct {
	Primary   Briefer
	Secondary Briefer
}

// Brief implements Briefer.
func (f Fallback) Brief(ctx context.Context, req Request) (string, error) {
	text, err := f.Primary.Brief(ctx, req)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return f.Secondary.Brief(ctx, req)
}

// CleanOutput strips a surrounding code fence and whitespace from model output.
func CleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
