package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gita-knowledge-api/internal/audio"
	"github.com/gita-knowledge-api/internal/bootstrap"
)

func newGenerateAudioCmd() *cobra.Command {
	var (
		langs []string
		rate  float64
	)

	cmd := &cobra.Command{
		Use:   "generate-audio",
		Short: "Pre-generate verse audio files",
		Long: `Synthesizes an MP3 for every verse and language that has no file yet.
Sanskrit verses are read with a Hindi voice, falling back to Kannada.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, openOptions{})
			if err != nil {
				return err
			}
			defer e.close()

			selected := make([]audio.Language, 0, len(langs))
			for _, code := range langs {
				l, err := audio.ParseLanguage(code)
				if err != nil {
					return err
				}
				selected = append(selected, l)
			}

			synth := bootstrap.NewSynthesizer(ctx, e.logger)
			if synth == nil {
				return audio.ErrSynthesisDisabled
			}
			if !cmd.Flags().Changed("rate") {
				rate = e.cfg.TTSRatePerSec
			}

			store := audio.NewDiskStore(e.cfg.AudioDir)
			sum, err := audio.NewGenerator(store, synth, rate, e.logger).Generate(ctx, e.chapter.Verses(), selected)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, sum)
			}
			cmd.Println("Summary")
			cmd.Printf("  Verses processed: %d\n", sum.Processed)
			cmd.Printf("  Files generated:  %d\n", sum.Generated)
			cmd.Printf("  Already present:  %d\n", sum.Skipped)
			cmd.Printf("  Errors:           %d\n", sum.Errors)
			cmd.Printf("Audio files saved in %s\n", store.Root())
			if sum.Errors > 0 {
				return fmt.Errorf("%d tracks failed", sum.Errors)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", []string{"sa", "kn", "en"}, "languages to generate")
	cmd.Flags().Float64Var(&rate, "rate", 1, "synthesis requests per second")
	return cmd
}
