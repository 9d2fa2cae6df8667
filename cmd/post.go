package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yoldauz/dispatchd/app"
	"github.com/yoldauz/dispatchd/config"
	"github.com/yoldauz/dispatchd/core/model"
	"github.com/yoldauz/dispatchd/infra/logger"
)

var (
	postOrigin      string
	postDestination string
	postCargoType   string
	postWeight      float64
	postPrice       int64
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Inject a test cargo posting",
	RunE:  postCargo,
}

func init() {
	postCmd.Flags().StringVar(&postOrigin, "origin", "Tashkent", "origin city")
	postCmd.Flags().StringVar(&postDestination, "destination", "Samarkand", "destination city")
	postCmd.Flags().StringVar(&postCargoType, "type", "general", "cargo type")
	postCmd.Flags().Float64Var(&postWeight, "weight", 10, "weight in tons")
	postCmd.Flags().Int64Var(&postPrice, "price", 0, "offered price in UZS, 0 for negotiable")
	rootCmd.AddCommand(postCmd)
}

func postCargo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("post-command")
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	cargo := model.CargoPosting{
		Origin:           postOrigin,
		Destination:      postDestination,
		CargoType:        postCargoType,
		WeightTons:       postWeight,
		PriceUZS:         postPrice,
		AuthorID:         "cli",
		AuthorRole:       model.RoleShipper,
		TruckRequirement: "any",
	}
	posted, err := svc.Engine.OnNewCargoPosted(cargo)
	if err != nil {
		return fmt.Errorf("post cargo: %w", err)
	}
	logg.Infof("posted cargo %s %s -> %s", posted.ID, posted.Origin, posted.Destination)

	go func() {
		if err := svc.Run(ctx); err != nil {
			logg.Errorf("service run: %v", err)
		}
	}()
	<-ctx.Done()
	return nil
}
