package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/merlin/internal/model"
)

// Output formats accepted by WriteRecords.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// FormatLeaderboard renders one line per company, in the given order. A
// positive limit keeps only the first limit records.
func FormatLeaderboard(records []model.ScoredCompanyRecord, limit int) string {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%-30s Total: %6.2f  (Team: %6.2f, Market: %6.2f, Funding: %6.2f)\n",
			truncateName(r.Name, 30), r.Scores.Total, r.Scores.Team, r.Scores.Market, r.Scores.Funding)
	}
	return b.String()
}

func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// WriteRecords writes records in the requested format.
func WriteRecords(w io.Writer, records []model.ScoredCompanyRecord, format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return writeTable(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		if records == nil {
			records = []model.ScoredCompanyRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(records), "pipeline: write json")
	default:
		return eris.Errorf("pipeline: unknown output format %q", format)
	}
}

func writeTable(out io.Writer, records []model.ScoredCompanyRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tNAME\tDOMAIN\tSTAGE\tTOTAL\tTEAM\tMARKET\tFUNDING")
	_, _ = fmt.Fprintln(w, "-\t----\t------\t-----\t-----\t----\t------\t-------")
	for i, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
			i+1, r.Name, r.WebsiteDomain, r.Stage,
			r.Scores.Total, r.Scores.Team, r.Scores.Market, r.Scores.Funding)
	}
	return eris.Wrap(w.Flush(), "pipeline: write table")
}

var csvHeader = []string{
	"name", "website_url", "website_domain", "stage", "funding_total", "headcount",
	"location", "country", "state", "sectors", "sub_sectors",
	"score_total", "score_team", "score_market", "score_funding",
}

func writeCSV(out io.Writer, records []model.ScoredCompanyRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "pipeline: write csv header")
	}
	for _, r := range records {
		row := []string{
			r.Name, r.WebsiteURL, r.WebsiteDomain, r.Stage,
			optInt64(r.FundingTotal), optInt(r.Headcount),
			r.Location, r.Country, r.State,
			strings.Join(r.Sectors, "; "), strings.Join(r.SubSectors, "; "),
			fmtScore(r.Scores.Total), fmtScore(r.Scores.Team), fmtScore(r.Scores.Market), fmtScore(r.Scores.Funding),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "pipeline: write csv row %s", r.Name)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "pipeline: flush csv")
}

func fmtScore(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func optInt64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
