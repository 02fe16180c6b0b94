package main

import (
	"github.com/spf13/cobra"

	"github.com/hazyhaar/advfind/finder"
)

var (
	term1         string
	term2         string
	distance      int
	unit          string
	ordered       bool
	sameContainer bool
)

var proximityCmd = &cobra.Command{
	Use:   "proximity FILE|URL",
	Short: "Highlight two terms appearing near each other",
	Args:  cobra.ExactArgs(1),
	RunE:  runProximity,
}

func init() {
	fs := proximityCmd.Flags()
	fs.StringVar(&term1, "term1", "", "first term")
	fs.StringVar(&term2, "term2", "", "second term")
	fs.IntVarP(&distance, "distance", "d", 5, "maximum distance between the terms")
	fs.StringVar(&unit, "unit", "words", "distance unit: words or chars")
	fs.BoolVar(&ordered, "ordered", false, "term1 must come before term2")
	fs.BoolVar(&sameContainer, "same-container", false, "both terms must share a paragraph-like element")
	addSearchFlags(fs, false)
	addOutputFlags(fs)
	proximityCmd.MarkFlagRequired("term1")
	proximityCmd.MarkFlagRequired("term2")
	rootCmd.AddCommand(proximityCmd)
}

func proximitySpec() finder.ProximitySpec {
	return finder.ProximitySpec{
		SecondTerm:    term2,
		MaxDistance:   distance,
		Unit:          finder.Unit(unit),
		RequireOrder:  ordered,
		SameContainer: sameContainer,
	}
}

func runProximity(cmd *cobra.Command, args []string) error {
	return query(cmd, args[0], func(e *finder.Engine) (finder.Result, error) {
		return e.SearchProximity(cmd.Context(), term1, term2, proximitySpec(), options())
	})
}
