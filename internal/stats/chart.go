package stats

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultChartBaseURL is the image chart service the descriptors point at.
const DefaultChartBaseURL = "http://chart.apis.google.com/chart"

// scaleMargin is added to the largest count so the tallest bar does not touch the frame.
const scaleMargin = 10

// CountryChart holds the two descriptors drawn for a country series.
type CountryChart struct {
	Map string
	Bar string
}

// ChartRenderer builds chart descriptor URLs. It performs no I/O.
type ChartRenderer struct {
	baseURL string
}

// NewChartRenderer creates a renderer for baseURL, or DefaultChartBaseURL when it is empty.
func NewChartRenderer(baseURL string) *ChartRenderer {
	if baseURL == "" {
		baseURL = DefaultChartBaseURL
	}

	return &ChartRenderer{baseURL: baseURL}
}

// RenderDailyChart draws a vertical bar chart labelled day/month, in series order.
func (r *ChartRenderer) RenderDailyChart(series []DailyCount) string {
	labels := make([]string, len(series))
	data := make([]string, len(series))

	var peak int64

	for i, c := range series {
		labels[i] = fmt.Sprintf("%d/%d", c.Date.Day(), int(c.Date.Month()))
		data[i] = strconv.FormatInt(c.Count, 10)
		peak = max(peak, c.Count)
	}

	return fmt.Sprintf(
		"%s?chs=820x180&cht=bvs&chxt=x&chco=a4b3f4&chm=N,000000,0,-1,11&chxl=0:|%s&chds=0,%d&chd=t:%s",
		r.baseURL,
		strings.Join(labels, "|"),
		peak+scaleMargin,
		strings.Join(data, ","),
	)
}

// RenderCountryChart draws a map of region shaded by visits and a horizontal bar chart.
func (r *ChartRenderer) RenderCountryChart(series []CountryCount, region Region) CountryChart {
	codes := make([]string, len(series))
	data := make([]string, len(series))

	var peak int64

	for i, c := range series {
		codes[i] = c.Country
		data[i] = strconv.FormatInt(c.Count, 10)
		peak = max(peak, c.Count)
	}

	// Horizontal bar charts draw the y axis bottom-up.
	reversed := make([]string, len(codes))
	for i, code := range codes {
		reversed[len(codes)-1-i] = code
	}

	counts := strings.Join(data, ",")

	return CountryChart{
		Map: fmt.Sprintf(
			"%s?chs=440x220&cht=t&chtm=%s&chco=FFFFFF,a4b3f4,0000FF&chld=%s&chd=t:%s",
			r.baseURL, region, strings.Join(codes, ""), counts,
		),
		Bar: fmt.Sprintf(
			"%s?chs=320x240&cht=bhs&chco=a4b3f4&chm=N,000000,0,-1,11&chbh=a&chds=0,%d&chd=t:%s&chxt=x,y&chxl=1:|%s",
			r.baseURL, peak+scaleMargin, counts, strings.Join(reversed, "|"),
		),
	}
}
