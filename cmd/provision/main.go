// provision seeds villages and employee accounts from a YAML fixture and
// disables accounts. It talks to the same storage as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/villagegrid/outage-alerts/internal/core/service"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/config"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/storage"
	"github.com/villagegrid/outage-alerts/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var filePath, disableMobile string

	flagSet := pflag.NewFlagSet("provision", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "", "YAML fixture with villages and employees")
	flagSet.StringVar(&disableMobile, "disable", "", "disable the account with this mobile number")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if filePath == "" && disableMobile == "" {
		printHelp(flagSet)
		return errors.New("nothing to do: pass --file or --disable")
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.StorageBackend == storage.BackendMemory {
		return errors.New("provisioning needs a persistent backend; STORAGE_BACKEND is memory")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "provision"})

	store, err := storage.Open(ctx, cfg, logger.Component("storage"))
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	p := &provisioner{
		villages: service.NewVillageService(store.Villages, log),
		identity: service.NewIdentityService(store.Users, store.Villages, store.Sessions, store.Idempotency,
			service.IdentityConfig{JWTSecret: cfg.Auth.JWTSecret, BcryptCost: cfg.Auth.BcryptCost}, log),
		users: store.Users,
		log:   log,
	}

	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return err
		}
		fx, err := decodeFixture(f)
		f.Close()
		if err != nil {
			return err
		}
		sum, err := p.apply(ctx, fx)
		if err != nil {
			return err
		}
		log.Info().
			Int("villages_created", sum.VillagesCreated).
			Int("villages_existing", sum.VillagesExisting).
			Int("employees_created", sum.EmployeesCreated).
			Int("employees_skipped", sum.EmployeesSkipped).
			Msg("fixture applied")
	}

	if disableMobile != "" {
		if err := p.disable(ctx, disableMobile); err != nil {
			return err
		}
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `provision — seed villages and employee accounts.

Usage:
  provision --file fixture.yaml
  provision --disable 9876543210

Reads the same environment (.env, MONGO_URI, REDIS_ADDR, ...) as the server.

Flags:
%s`, flagSet.FlagUsages())
}
