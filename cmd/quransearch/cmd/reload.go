package cmd

import (
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
	"github.com/spf13/cobra"
)

func newReloadCmd(g *globalOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask every running searcher to reload the corpus",
		Long: `Publish a corpus-reload event to Kafka. Each searcher consuming the
reload topic rebuilds its index from its configured source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !g.cfg.Kafka.Enabled() {
				return errors.New("reload requires kafka.brokers (or QS_KAFKA_BROKERS)")
			}
			producer := kafka.NewProducer(g.cfg.Kafka, g.cfg.Kafka.Topics.CorpusReload)
			defer producer.Close()

			if err := consumer.RequestReload(cmd.Context(), producer, reason, "quransearch@"+hostname()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reload requested on topic %s\n", g.cfg.Kafka.Topics.CorpusReload)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "manual", "Reason recorded with the reload event")
	return cmd
}
