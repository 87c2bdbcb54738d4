package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/flagship-core/internal/rollout"
	"github.com/TimurManjosov/flagship-core/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// jobRow is the printable form of a job record
type jobRow struct {
	Name       string `json:"name" yaml:"name"`
	Bucket     string `json:"bucket" yaml:"bucket"`
	Stage      string `json:"stage" yaml:"stage"`
	FinishedAt string `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

// resultRow is the printable form of a rollout evaluation
type resultRow struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	GroupID      string  `json:"groupId" yaml:"groupId"`
	Stickiness   string  `json:"stickiness" yaml:"stickiness"`
	StickinessID string  `json:"stickinessId,omitempty" yaml:"stickinessId,omitempty"`
	Normalized   int     `json:"normalized" yaml:"normalized"`
	Percentage   float64 `json:"percentage" yaml:"percentage"`
}

// PrintJobs outputs job records in the specified format
func PrintJobs(w io.Writer, jobs []store.Job, format OutputFormat) error {
	rows := make([]jobRow, 0, len(jobs))
	for _, j := range jobs {
		row := jobRow{Name: j.Name, Bucket: j.Bucket.UTC().Format(time.RFC3339), Stage: string(j.Stage)}
		if j.FinishedAt != nil {
			row.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]jobRow{"jobs": rows})
	case FormatYAML:
		return printYAML(w, rows)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Name", "Bucket", "Stage", "Finished At")
		for _, r := range rows {
			finished := r.FinishedAt
			if finished == "" {
				finished = "-"
			}
			if err := table.Append(r.Name, r.Bucket, r.Stage, finished); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintResult outputs one rollout evaluation in the specified format
func PrintResult(w io.Writer, res rollout.Result, format OutputFormat) error {
	row := resultRow{
		Enabled:      res.Enabled,
		GroupID:      res.GroupID,
		Stickiness:   res.Stickiness,
		StickinessID: res.StickinessID,
		Normalized:   res.Normalized,
		Percentage:   res.Percentage,
	}

	switch format {
	case FormatJSON:
		return printJSON(w, row)
	case FormatYAML:
		return printYAML(w, row)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Enabled", "Group ID", "Stickiness", "Stickiness ID", "Normalized", "Rollout")
		if err := table.Append(
			strconv.FormatBool(row.Enabled),
			row.GroupID,
			row.Stickiness,
			row.StickinessID,
			strconv.Itoa(row.Normalized),
			strconv.FormatFloat(row.Percentage, 'f', -1, 64)+"%",
		); err != nil {
			return err
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}
