package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bher20/billoptimizer/internal/tariff"
)

var (
	billUnits     float64
	billCategory  string
	billBreakdown bool
)

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Compute the monthly bill for a consumption",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tariff.ParseCategory(billCategory)
		if err != nil {
			return err
		}
		t, err := seedTable()
		if err != nil {
			return err
		}
		bill, err := t.Breakdown(billUnits, c)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if billBreakdown {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLAB\tUNITS\tRATE\tCOST")
			for _, l := range bill.Lines {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Label, l.Units, l.Rate.StringFixed(2), l.Cost.StringFixed(2))
			}
			fmt.Fprintf(tw, "TOTAL\t\t\t%s\n", bill.Total.StringFixed(2))
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "Rs. %d\n", bill.Amount)
		return nil
	},
}

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "Print the active tariff table as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := seedTable()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(t)
	},
}

var (
	importCategory string
	importPDF      string
	importText     string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Extract a category schedule from a tariff notification and print the merged table",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tariff.ParseCategory(importCategory)
		if err != nil {
			return err
		}
		var s tariff.Schedule
		switch {
		case importPDF != "":
			s, err = tariff.ParseSchedulePDF(c, importPDF)
		case importText != "":
			var data []byte
			data, err = os.ReadFile(importText)
			if err == nil {
				s, err = tariff.ParseScheduleText(c, string(data))
			}
		default:
			return fmt.Errorf("one of --pdf or --text is required")
		}
		if err != nil {
			return err
		}
		t, err := seedTable()
		if err != nil {
			return err
		}
		t[c] = s
		if err := t.Validate(); err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(t)
	},
}

func init() {
	billCmd.Flags().Float64Var(&billUnits, "units", 0, "monthly consumption in units")
	billCmd.Flags().StringVar(&billCategory, "category", string(tariff.General), "tariff category")
	billCmd.Flags().BoolVar(&billBreakdown, "breakdown", false, "print the per-slab breakdown")

	importCmd.Flags().StringVar(&importCategory, "category", "", "tariff category the notification covers")
	importCmd.Flags().StringVar(&importPDF, "pdf", "", "path to a tariff notification PDF")
	importCmd.Flags().StringVar(&importText, "text", "", "path to a plain-text tariff notification")
	_ = importCmd.MarkFlagRequired("category")
}
