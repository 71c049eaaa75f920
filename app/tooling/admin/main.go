// This program performs administrative tasks against the block storage of a
// stopped node.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/dxidlabs/ledger/app/tooling/admin/commands"
	"github.com/dxidlabs/ledger/foundation/blockchain/genesis"
	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/blockchain/storage"
	"github.com/dxidlabs/ledger/foundation/logger"
	"github.com/dxidlabs/ledger/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN", os.Getenv("ADMIN_LOG_LEVEL"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args    conf.Args
		Scheme  string `conf:"default:ed25519"`
		Storage struct {
			Kind string `conf:"default:disk"`
			Path string `conf:"default:zblock/miner1/"`
		}
		Genesis struct {
			Path string `conf:"default:zblock/genesis.json"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			fmt.Println("commands: bals [account], trans [account], supply")
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	provider, err := signature.Retrieve(cfg.Scheme)
	if err != nil {
		return err
	}

	ns, err := nameservice.New(cfg.NameService.Folder, provider)
	if err != nil {
		return err
	}

	gen, err := genesis.Load(cfg.Genesis.Path)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.Kind, cfg.Storage.Path)
	if err != nil {
		return err
	}

	// Replaying the stored blocks rebuilds the chain state.
	st, err := state.New(state.Config{
		Genesis: gen,
		Crypto:  provider,
		Storage: store,
		EvHandler: func(v string, args ...any) {
			log.Debugf(v, args...)
		},
	})
	if err != nil {
		store.Close()
		return err
	}
	defer st.Shutdown()

	return processCommands(cfg.Args, ns, st)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, ns *nameservice.NameService, st *state.State) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(args.Num(1), ns, st); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args.Num(1), ns, st); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	case "supply":
		commands.Supply(st)
	default:
		return fmt.Errorf("unknown command %q", args.Num(0))
	}

	return nil
}
