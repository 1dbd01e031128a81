package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/handsense/internal/telemetry"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse recorded sensor lines from a file or stdin and print them as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		policy, err := telemetry.ParseIndexPolicy(cfg.GetIndexPolicy())
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return parseStream(in, cmd.OutOrStdout(), telemetry.Parser{Policy: policy})
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

type parsedSample struct {
	Sensor string `json:"sensor"`
	Name   string `json:"name"`
	telemetry.Sample
}

type parsedLine struct {
	Line    int            `json:"line"`
	Format  string         `json:"format"`
	Samples []parsedSample `json:"samples"`
}

// parseStream writes one JSON object per non-empty input line.
func parseStream(r io.Reader, w io.Writer, p telemetry.Parser) error {
	enc := json.NewEncoder(w)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for sc.Scan() {
		n++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		res := p.Parse(sc.Text())
		out := parsedLine{Line: n, Format: res.Format.String(), Samples: make([]parsedSample, 0, len(res.Updates))}
		for _, u := range res.Updates {
			out.Samples = append(out.Samples, parsedSample{Sensor: u.Index.Label(), Name: u.Index.Name(), Sample: u.Sample})
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
