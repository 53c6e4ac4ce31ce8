package main

import (
	"github.com/spf13/cobra"

	"litpipe/internal/predict"
	"litpipe/internal/report"
)

func newPredictCommand() *cobra.Command {
	var (
		targetCount int
		domain      string
		experience  float64
		expectation float64
		custom      bool
	)

	cmd := &cobra.Command{
		Use:         "predict",
		Short:       "Forecast time, quality and risk for a planned run",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			prediction := predict.NewEstimator().Predict(predict.TaskParams{
				TargetCount:        targetCount,
				Domain:             domain,
				UserExperience:     experience,
				QualityExpectation: expectation,
				CustomRequirements: custom,
			})
			renderSections(cmd.OutOrStdout(), report.PredictionSections(&prediction))
			return nil
		},
	}

	cmd.Flags().IntVarP(&targetCount, "count", "n", 100, "Target number of literature items")
	cmd.Flags().StringVar(&domain, "domain", "", "Subject domain")
	cmd.Flags().Float64Var(&experience, "experience", 5, "Self-reported familiarity with the domain (0-10)")
	cmd.Flags().Float64Var(&expectation, "expectation", 7, "Expected quality level (0-10)")
	cmd.Flags().BoolVar(&custom, "custom-requirements", false, "The run has custom extraction requirements")
	return cmd
}
